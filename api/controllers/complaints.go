package controllers

import (
	"net/http"

	"github.com/angelmondragon/hostelhub-backend/api/responses"
	"github.com/angelmondragon/hostelhub-backend/api/validators"
	"github.com/angelmondragon/hostelhub-backend/internal/complaints"
	"github.com/angelmondragon/hostelhub-backend/internal/docstore"
	pkgerrors "github.com/angelmondragon/hostelhub-backend/pkg/errors"
	"github.com/angelmondragon/hostelhub-backend/pkg/logger"
)

type complaintStatusBody struct {
	Status     string `json:"status" validate:"required"`
	Note       string `json:"note" validate:"max=2000"`
	ReopenedBy string `json:"reopenedBy"`
}

type complaintCommentBody struct {
	Body string `json:"body" validate:"required,max=4000"`
}

type transitionResponse struct {
	Complaint docstore.Record `json:"complaint"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Changed   bool            `json:"changed"`
}

// ComplaintStatus answers POST /api/complaints/{id}/status.
func ComplaintStatus(svc complaints.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "complaints service unavailable"))
			return
		}
		id, err := idParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body complaintStatusBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Transition(r.Context(), id, complaints.TransitionInput{
			Status:     body.Status,
			Actor:      complaintActor(r),
			ReopenedBy: validators.SanitizeString(body.ReopenedBy, 128),
			Note:       validators.SanitizeString(body.Note, 2000),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, transitionResponse{
			Complaint: result.Complaint,
			From:      result.From.String(),
			To:        result.To.String(),
			Changed:   result.Changed,
		})
	}
}

// ComplaintComment answers POST /api/complaints/{id}/comments.
func ComplaintComment(svc complaints.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "complaints service unavailable"))
			return
		}
		id, err := idParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body complaintCommentBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		complaint, err := svc.AddComment(r.Context(), id, complaints.CommentInput{
			Actor: complaintActor(r),
			Body:  validators.SanitizeString(body.Body, 4000),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, complaint)
	}
}
