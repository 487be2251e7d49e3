package controllers

import (
	"net/http"

	"github.com/angelmondragon/hostelhub-backend/api/responses"
	"github.com/angelmondragon/hostelhub-backend/api/validators"
	"github.com/angelmondragon/hostelhub-backend/internal/docstore"
	"github.com/angelmondragon/hostelhub-backend/internal/entities"
	"github.com/angelmondragon/hostelhub-backend/internal/provisioning"
	"github.com/angelmondragon/hostelhub-backend/internal/repository"
	pkgerrors "github.com/angelmondragon/hostelhub-backend/pkg/errors"
	"github.com/angelmondragon/hostelhub-backend/pkg/logger"
)

const overrideParam = "override"

type createResponse struct {
	Record      docstore.Record           `json:"record"`
	Credentials *provisioning.Credentials `json:"credentials,omitempty"`
}

type deleteResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

func entitiesUnavailable() error {
	return pkgerrors.New(pkgerrors.CodeInternal, "entities service unavailable")
}

// ListRecords answers GET /api/{collection} with ?field=value filters.
func ListRecords(svc entities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, entitiesUnavailable())
			return
		}
		c, err := collectionParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		records, err := svc.List(r.Context(), principalFrom(r), c, validators.QueryFilters(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, records)
	}
}

func GetRecord(svc entities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, entitiesUnavailable())
			return
		}
		c, err := collectionParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := idParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rec, err := svc.Get(r.Context(), principalFrom(r), c, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rec)
	}
}

// CreateRecord answers POST /api/{collection}. Provisioned tenants and staff
// come back with the one-time credentials of their login account.
func CreateRecord(svc entities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, entitiesUnavailable())
			return
		}
		c, err := collectionParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := validators.DecodeRecord(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithCollection(r.Context(), c.String())
		result, err := svc.Create(ctx, principalFrom(r), c, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if result.Credentials != nil {
			noStore(w)
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, createResponse{
			Record:      result.Record,
			Credentials: result.Credentials,
		})
	}
}

func UpdateRecord(svc entities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, entitiesUnavailable())
			return
		}
		c, err := collectionParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := idParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		patch, err := validators.DecodeRecord(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithCollection(r.Context(), c.String())
		rec, err := svc.Update(ctx, principalFrom(r), c, id, patch)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, rec)
	}
}

// DeleteRecord answers DELETE /api/{collection}/{id}. ?override=true asks to
// bypass the delete guards and is honoured for administrators only.
func DeleteRecord(svc entities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, entitiesUnavailable())
			return
		}
		c, err := collectionParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := idParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		override, err := validators.ParseQueryBool(r, overrideParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithCollection(r.Context(), c.String())
		if err := svc.Delete(ctx, principalFrom(r), c, id, repository.DeleteOptions{AdminOverride: override}); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, deleteResponse{ID: id, Deleted: true})
	}
}

// PaymentSummary answers GET /api/payments/summary?month=&year=.
func PaymentSummary(svc entities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, entitiesUnavailable())
			return
		}
		month, err := validators.ParseQueryInt(r, "month", 0, 0, 12)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		year, err := validators.ParseQueryInt(r, "year", 0, 0, 9999)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hostelID := validators.SanitizeString(r.URL.Query().Get("hostelId"), 64)
		summary, err := svc.PaymentSummary(r.Context(), principalFrom(r), hostelID, entities.PaymentPeriod{Month: month, Year: year})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
