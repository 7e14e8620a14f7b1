package payments

import (
	"bytes"
	"html/template"
	"net/url"

	"github.com/stanton-energie/heizoel-backend/pkg/nexi"
)

var landingTemplate = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html lang="de">
<head><meta charset="utf-8"><title>Weiterleitung zur Zahlung</title></head>
<body>
{{- if .Advisory}}
<p class="payment-advisory" role="alert">{{.Advisory}}</p>
{{- end}}
<p>Sie werden zur sicheren Zahlungsseite weitergeleitet.</p>
{{.Form}}
</body>
</html>`))

var cancelTemplate = template.Must(template.New("cancel").Parse(`<!DOCTYPE html>
<html lang="de">
<head><meta charset="utf-8"><title>Zahlung abgebrochen</title></head>
<body>
<h1>Zahlung abgebrochen</h1>
{{- if .OrderNumber}}
<p>Ihre Bestellung {{.OrderNumber}} wurde nicht bezahlt.</p>
<a class="retry" href="{{.RetryURL}}">Zahlung erneut versuchen</a>
{{- else}}
<a class="retry" href="/checkout">Zurück zur Kasse</a>
{{- end}}
</body>
</html>`))

// RenderLanding renders the page that auto-submits the stored gateway form.
func RenderLanding(handoff *Handoff) ([]byte, error) {
	data := struct {
		Advisory string
		// generated by the gateway client from escaped fields
		Form template.HTML
	}{
		Form: template.HTML(handoff.FormHTML),
	}
	if handoff.Environment == nexi.EnvironmentTest {
		data.Advisory = TestModeAdvisory
	}
	var buf bytes.Buffer
	if err := landingTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RetryURL is the checkout link offered after a cancelled payment.
func RetryURL(orderNumber string) string {
	return "/checkout?retry=" + url.QueryEscape(orderNumber)
}

// RenderCancel renders the cancellation view with a retry link.
func RenderCancel(orderNumber string) ([]byte, error) {
	data := struct {
		OrderNumber string
		RetryURL    string
	}{OrderNumber: orderNumber}
	if orderNumber != "" {
		data.RetryURL = RetryURL(orderNumber)
	}
	var buf bytes.Buffer
	if err := cancelTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
