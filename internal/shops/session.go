package shops

import (
	"context"

	"github.com/stanton-energie/heizoel-backend/pkg/enums"
)

// CheckoutSession is the per-request shop resolution passed down explicitly
// instead of being read from ambient storage.
type CheckoutSession struct {
	Shop     ShopConfig `json:"shop"`
	Referrer string     `json:"referrer,omitempty"`
	Belgian  bool       `json:"belgian"`
}

// VariantSettings are the order flags that differ between checkout variants.
type VariantSettings struct {
	CustomerLanguage            string `json:"customerLanguage"`
	ShouldSendOrderConfirmation bool   `json:"shouldSendOrderConfirmation"`
	ShouldSendInvoice           bool   `json:"shouldSendInvoice"`
}

// Variant returns the order flags for the session.
func (s CheckoutSession) Variant() VariantSettings {
	if s.Belgian {
		return VariantSettings{
			CustomerLanguage:            "nl",
			ShouldSendOrderConfirmation: false,
			ShouldSendInvoice:           true,
		}
	}
	return VariantSettings{
		CustomerLanguage:            s.Shop.Language,
		ShouldSendOrderConfirmation: true,
		ShouldSendInvoice:           false,
	}
}

// SettlementSystem is the bank account key used for the session. The Belgian
// variant always settles through the Belgian shop, even when entered from
// another domain via the referrer marker.
func (s CheckoutSession) SettlementSystem() string {
	if s.Belgian {
		return ConfigFor(enums.ShopBelgium).SystemName
	}
	return s.Shop.SystemName
}

type sessionKey struct{}

// WithSession stores the resolved session on ctx.
func WithSession(ctx context.Context, session CheckoutSession) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// SessionFromContext returns the session stored by WithSession.
func SessionFromContext(ctx context.Context) (CheckoutSession, bool) {
	if ctx == nil {
		return CheckoutSession{}, false
	}
	session, ok := ctx.Value(sessionKey{}).(CheckoutSession)
	return session, ok
}
