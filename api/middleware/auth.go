package middleware

import (
	"net/http"

	"github.com/angelmondragon/workboard-backend/api/responses"
	pkgAuth "github.com/angelmondragon/workboard-backend/pkg/auth"
	"github.com/angelmondragon/workboard-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/workboard-backend/pkg/errors"
	"github.com/angelmondragon/workboard-backend/pkg/logger"
)

// Auth rejects requests without a valid bearer token. Accepted requests
// carry the caller principal and its ids in the log context.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := authenticate(cfg, r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithPrincipal(r.Context(), principal)
			ctx = logg.WithUserID(ctx, principal.UserID.String())
			ctx = logg.WithOrganizationID(ctx, principal.OrganizationID.String())
			ctx = logg.WithField(ctx, "actor_role", string(principal.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(cfg config.JWTConfig, r *http.Request) (pkgAuth.Principal, error) {
	token, ok := pkgAuth.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return pkgAuth.Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if err != nil {
		return pkgAuth.Principal{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	return claims.Principal(), nil
}
