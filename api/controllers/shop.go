package controllers

import (
	"net/http"
	"strings"

	"github.com/stanton-energie/heizoel-backend/api/responses"
	"github.com/stanton-energie/heizoel-backend/api/validators"
	"github.com/stanton-energie/heizoel-backend/internal/shops"
	pkgerrors "github.com/stanton-energie/heizoel-backend/pkg/errors"
	"github.com/stanton-energie/heizoel-backend/pkg/logger"
)

type shopResponse struct {
	Shop           shops.ShopConfig      `json:"shop"`
	IsBelgian      bool                  `json:"isBelgianCheckout"`
	Variant        shops.VariantSettings `json:"variant"`
	SettlementName string                `json:"settlementSystem"`
}

// CurrentShop returns the shop and checkout variant for the calling storefront.
func CurrentShop(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := shops.SessionFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout session unavailable"))
			return
		}
		responses.WriteSuccess(w, shopResponse{
			Shop:           session.Shop,
			IsBelgian:      session.Belgian,
			Variant:        session.Variant(),
			SettlementName: session.SettlementSystem(),
		})
	}
}

type referrerRequest struct {
	Referrer string `json:"referrer" validate:"max=255"`
}

// SetReferrer stores the storefront entry path in a session cookie. An empty
// referrer clears it. The shop comes from the request's checkout session.
func SetReferrer(registry *shops.Registry, cookieName string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		current, ok := shops.SessionFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout session unavailable"))
			return
		}
		var req referrerRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		referrer := strings.TrimSpace(req.Referrer)
		cookie := &http.Cookie{
			Name:     cookieName,
			Value:    referrer,
			Path:     "/",
			HttpOnly: true,
			Secure:   r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https"),
			SameSite: http.SameSiteLaxMode,
		}
		if referrer == "" {
			cookie.MaxAge = -1
		}
		http.SetCookie(w, cookie)

		session := registry.WithReferrer(current.Shop, referrer)
		responses.WriteSuccess(w, shopResponse{
			Shop:           session.Shop,
			IsBelgian:      session.Belgian,
			Variant:        session.Variant(),
			SettlementName: session.SettlementSystem(),
		})
	}
}
