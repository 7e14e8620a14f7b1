package invoices

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"
)

var printScript = template.Must(template.New("print").Parse(
	`<script>window.addEventListener("load",function(){setTimeout(function(){window.print();},{{.}});});</script>`))

// PrintPageOpener renders invoices as a standalone page on an HTTP response.
// Requests that cannot become a top-level or framed document are treated as blocked.
type PrintPageOpener struct {
	w http.ResponseWriter
	r *http.Request
}

// NewPrintPageOpener binds the opener to one request.
func NewPrintPageOpener(w http.ResponseWriter, r *http.Request) *PrintPageOpener {
	return &PrintPageOpener{w: w, r: r}
}

func (o *PrintPageOpener) Open(ctx context.Context) (Surface, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch dest := strings.ToLower(strings.TrimSpace(o.r.Header.Get("Sec-Fetch-Dest"))); dest {
	case "", "document", "iframe", "frame":
	default:
		return nil, fmt.Errorf("%w: destination %q", ErrSurfaceBlocked, dest)
	}
	return &printPage{w: o.w}, nil
}

type printPage struct {
	w    http.ResponseWriter
	html string
}

func (p *printPage) Load(html string) error {
	if strings.TrimSpace(html) == "" {
		return fmt.Errorf("empty invoice document")
	}
	p.html = html
	return nil
}

func (p *printPage) PrintAfter(delay time.Duration) error {
	var script bytes.Buffer
	if err := printScript.Execute(&script, delay.Milliseconds()); err != nil {
		return err
	}
	body := injectBeforeBodyEnd(p.html, script.String())
	p.w.Header().Set("Content-Type", "text/html; charset=utf-8")
	p.w.Header().Set("Cache-Control", "no-store")
	p.w.WriteHeader(http.StatusOK)
	_, err := p.w.Write([]byte(body))
	return err
}

func injectBeforeBodyEnd(doc, snippet string) string {
	idx := strings.LastIndex(strings.ToLower(doc), "</body>")
	if idx < 0 {
		return doc + snippet
	}
	return doc[:idx] + snippet + doc[idx:]
}
