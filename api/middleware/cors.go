package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/cors"

	"github.com/stanton-energie/heizoel-backend/internal/shops"
)

// CORS allows the storefront domains plus any explicitly configured origins.
func CORS(registry *shops.Registry, extraOrigins []string) func(http.Handler) http.Handler {
	extra := make(map[string]struct{}, len(extraOrigins))
	for _, origin := range extraOrigins {
		if trimmed := strings.TrimRight(strings.TrimSpace(origin), "/"); trimmed != "" {
			extra[strings.ToLower(trimmed)] = struct{}{}
		}
	}
	return cors.New(cors.Options{
		AllowOriginFunc: func(_ *http.Request, origin string) bool {
			if _, ok := extra[strings.ToLower(origin)]; ok {
				return true
			}
			u, err := url.Parse(origin)
			if err != nil || u.Scheme != "https" {
				return false
			}
			return registry != nil && registry.Knows(u.Host)
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Requested-With", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
