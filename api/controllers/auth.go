package controllers

import (
	"net/http"

	"github.com/angelmondragon/hostelhub-backend/api/middleware"
	"github.com/angelmondragon/hostelhub-backend/api/responses"
	"github.com/angelmondragon/hostelhub-backend/api/validators"
	"github.com/angelmondragon/hostelhub-backend/internal/auth"
	pkgerrors "github.com/angelmondragon/hostelhub-backend/pkg/errors"
	"github.com/angelmondragon/hostelhub-backend/pkg/logger"
)

// AuthLogin wires the login endpoint into the HTTP layer.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// UnlockUser answers POST /api/users/{id}/unlock.
func UnlockUser(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}
		id, err := idParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		caller := middleware.IdentityFromContext(r.Context())
		rec, err := svc.Unlock(r.Context(), auth.Actor{
			UserID:   caller.UserID,
			Role:     caller.Role,
			HostelID: caller.HostelID,
		}, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rec)
	}
}
