package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/hostelhub-backend/api/responses"
	pkgAuth "github.com/angelmondragon/hostelhub-backend/pkg/auth"
	"github.com/angelmondragon/hostelhub-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/hostelhub-backend/pkg/errors"
	"github.com/angelmondragon/hostelhub-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the caller.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(cfg, logg, false, true)
}

// OptionalAuth decodes a bearer token when one is sent and lets anonymous
// requests through.
func OptionalAuth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(cfg, logg, false, false)
}

// QueryTokenAuth also accepts ?token= since browsers cannot set headers on a
// WebSocket handshake.
func QueryTokenAuth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(cfg, logg, true, true)
}

func authenticate(cfg config.JWTConfig, logg *logger.Logger, allowQuery, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" && allowQuery {
				token = strings.TrimSpace(r.URL.Query().Get("token"))
			}
			if token == "" {
				if !required {
					next.ServeHTTP(w, r)
					return
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			id := Identity{
				UserID:   claims.UserID(),
				Role:     claims.Role,
				HostelID: claims.HostelID,
				Email:    claims.Email,
				Name:     claims.Name,
			}
			ctx := WithIdentity(r.Context(), id)
			if logg != nil {
				ctx = logg.WithUserID(ctx, id.UserID)
				ctx = logg.WithActorRole(ctx, id.Role.String())
				if id.HostelID != "" {
					ctx = logg.WithHostelID(ctx, id.HostelID)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}
