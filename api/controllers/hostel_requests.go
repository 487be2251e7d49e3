package controllers

import (
	"net/http"

	"github.com/angelmondragon/hostelhub-backend/api/middleware"
	"github.com/angelmondragon/hostelhub-backend/api/responses"
	"github.com/angelmondragon/hostelhub-backend/api/validators"
	"github.com/angelmondragon/hostelhub-backend/internal/provisioning"
	pkgerrors "github.com/angelmondragon/hostelhub-backend/pkg/errors"
	"github.com/angelmondragon/hostelhub-backend/pkg/logger"
)

type approveBody struct {
	Domain   string `json:"domain" validate:"max=253"`
	PlanType string `json:"planType" validate:"max=64"`
	Notes    string `json:"notes" validate:"max=2000"`
}

type rejectBody struct {
	Notes string `json:"notes" validate:"max=2000"`
}

// ApproveHostelRequest answers POST /api/hostelRequests/{id}/approve. The
// response carries the new admin's one-time credentials.
func ApproveHostelRequest(svc provisioning.ApprovalService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "approval service unavailable"))
			return
		}
		id, err := idParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body approveBody
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Approve(r.Context(), id, provisioning.ApproveInput{
			ActorID:  middleware.UserIDFromContext(r.Context()),
			Domain:   validators.SanitizeString(body.Domain, 253),
			PlanType: validators.SanitizeString(body.PlanType, 64),
			Notes:    validators.SanitizeString(body.Notes, 2000),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		noStore(w)
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// RejectHostelRequest answers POST /api/hostelRequests/{id}/reject.
func RejectHostelRequest(svc provisioning.ApprovalService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "approval service unavailable"))
			return
		}
		id, err := idParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body rejectBody
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rec, err := svc.Reject(r.Context(), id, provisioning.RejectInput{
			ActorID: middleware.UserIDFromContext(r.Context()),
			Notes:   validators.SanitizeString(body.Notes, 2000),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rec)
	}
}
