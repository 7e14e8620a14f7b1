package invoices

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/stanton-energie/heizoel-backend/pkg/errors"
)

// DefaultPrintDelay lets layout settle before print is triggered.
const DefaultPrintDelay = 500 * time.Millisecond

// ErrSurfaceBlocked is returned by openers that cannot present a new surface.
var ErrSurfaceBlocked = errors.New("rendering surface blocked")

// Surface is a place an invoice document can be rendered and printed from.
type Surface interface {
	Load(html string) error
	PrintAfter(delay time.Duration) error
}

// SurfaceOpener opens a fresh rendering surface.
type SurfaceOpener interface {
	Open(ctx context.Context) (Surface, error)
}

// Deliver renders the generated document on a new surface and schedules printing.
func Deliver(ctx context.Context, opener SurfaceOpener, result *Result, delay time.Duration) error {
	if result == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "no invoice to deliver")
	}
	if delay <= 0 {
		delay = DefaultPrintDelay
	}
	surface, err := opener.Open(ctx)
	if err != nil {
		if errors.Is(err, ErrSurfaceBlocked) {
			return pkgerrors.New(pkgerrors.CodeUserAction, "invoice window was blocked").
				WithDetails(map[string]string{"action": "allow pop-ups and retry"})
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "open invoice surface")
	}
	if err := surface.Load(result.HTMLContent); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load invoice content")
	}
	if err := surface.PrintAfter(delay); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "schedule invoice print")
	}
	return nil
}
