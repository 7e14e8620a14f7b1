package middleware

import (
	"net/http"
	"strings"

	"github.com/stanton-energie/heizoel-backend/internal/shops"
	"github.com/stanton-energie/heizoel-backend/pkg/logger"
)

// ForwardedHostHeader carries the storefront domain when the API sits behind the shop's proxy.
const ForwardedHostHeader = "X-Forwarded-Host"

// CheckoutSession resolves the shop and checkout variant for every request from the
// storefront host and the referrer cookie. Nothing is cached between requests.
func CheckoutSession(registry *shops.Registry, cookieName string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := strings.TrimSpace(r.Header.Get(ForwardedHostHeader))
			if host == "" {
				host = r.Host
			}
			if i := strings.IndexByte(host, ','); i >= 0 {
				host = host[:i]
			}
			referrer := ""
			if cookie, err := r.Cookie(cookieName); err == nil {
				referrer = cookie.Value
			}

			session := registry.Resolve(host, referrer)
			ctx := shops.WithSession(r.Context(), session)
			if logg != nil {
				ctx = logg.WithShop(ctx, string(session.Shop.ShopType), session.Belgian)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
