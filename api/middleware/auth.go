package middleware

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/angelmondragon/backoffice-api/api/responses"
	pkgAuth "github.com/angelmondragon/backoffice-api/pkg/auth"
	"github.com/angelmondragon/backoffice-api/pkg/auth/session"
	"github.com/angelmondragon/backoffice-api/pkg/config"
	"github.com/angelmondragon/backoffice-api/pkg/enums"
	pkgerrors "github.com/angelmondragon/backoffice-api/pkg/errors"
	"github.com/angelmondragon/backoffice-api/pkg/logger"
)

const bearerPrefix = "bearer "

// Auth requires a valid access token whose session is still live, then
// attaches the caller to the request context. A nil checker skips the
// session lookup.
func Auth(cfg config.JWTConfig, checker session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := authenticate(r.Context(), cfg, checker, BearerToken(r))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithPrincipal(r.Context(), principal)
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id": principal.UserID.String(),
					"role":    string(principal.Role),
				})
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(ctx context.Context, cfg config.JWTConfig, checker session.AccessSessionChecker, token string) (pkgAuth.Principal, error) {
	if token == "" {
		return pkgAuth.Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "No token, authorization denied")
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if err != nil {
		return pkgAuth.Principal{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "Token is not valid")
	}
	if claims.ID == "" {
		return pkgAuth.Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "Token is not valid")
	}
	if checker != nil {
		live, err := checker.HasSession(ctx, claims.ID)
		if err != nil {
			return pkgAuth.Principal{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
		}
		if !live {
			return pkgAuth.Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "Session has been revoked")
		}
	}
	return pkgAuth.Principal{UserID: claims.UserID, Role: claims.Role}, nil
}

// RequireRoles runs after Auth and admits only the listed roles.
func RequireRoles(logg *logger.Logger, allowed ...enums.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := PrincipalFromContext(r.Context())
			switch {
			case !ok:
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "No token, authorization denied"))
			case !slices.Contains(allowed, caller.Role):
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "Access denied"))
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// BearerToken reads the Authorization header. The "Bearer " scheme is
// optional and matched case-insensitively.
func BearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(raw) >= len(bearerPrefix) && strings.EqualFold(raw[:len(bearerPrefix)], bearerPrefix) {
		raw = strings.TrimSpace(raw[len(bearerPrefix):])
	}
	return raw
}
