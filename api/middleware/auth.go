package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/stanton-energie/heizoel-backend/api/responses"
	pkgAuth "github.com/stanton-energie/heizoel-backend/pkg/auth"
	"github.com/stanton-energie/heizoel-backend/pkg/config"
	"github.com/stanton-energie/heizoel-backend/pkg/enums"
	pkgerrors "github.com/stanton-energie/heizoel-backend/pkg/errors"
	"github.com/stanton-energie/heizoel-backend/pkg/logger"
)

type operatorKey struct{}

type operator struct {
	name string
	role enums.AdminRole
}

// WithOperator records the authenticated back-office operator on ctx.
func WithOperator(ctx context.Context, name, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, operatorKey{}, operator{name: name, role: enums.AdminRole(role)})
}

func operatorFrom(ctx context.Context) operator {
	if ctx == nil {
		return operator{}
	}
	op, _ := ctx.Value(operatorKey{}).(operator)
	return op
}

func OperatorFromContext(ctx context.Context) string { return operatorFrom(ctx).name }

func RoleFromContext(ctx context.Context) string { return string(operatorFrom(ctx).role) }

// bearerToken reads the Authorization header. EventSource clients cannot set
// headers, so the live audit stream may pass access_token in the query.
func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}

// Auth admits requests carrying a valid back-office token.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			raw := bearerToken(r)
			if raw == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			claims, err := pkgAuth.ParseAccessToken(cfg, raw)
			switch {
			case err != nil:
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			case claims.ID == "":
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing token id"))
				return
			}

			role := string(claims.Role)
			ctx = WithOperator(ctx, claims.Operator, role)
			if logg != nil {
				ctx = logg.WithOperator(ctx, claims.Operator, role)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireWrite rejects read-only operators on mutating routes.
func RequireWrite(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !operatorFrom(r.Context()).role.CanWrite() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
