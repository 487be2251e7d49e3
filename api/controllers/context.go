package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/hostelhub-backend/api/middleware"
	"github.com/angelmondragon/hostelhub-backend/internal/complaints"
	"github.com/angelmondragon/hostelhub-backend/internal/entities"
	"github.com/angelmondragon/hostelhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hostelhub-backend/pkg/errors"
)

func principalFrom(r *http.Request) entities.Principal {
	id := middleware.IdentityFromContext(r.Context())
	return entities.Principal{
		UserID:   id.UserID,
		Name:     id.Name,
		Role:     id.Role,
		HostelID: id.HostelID,
	}
}

func complaintActor(r *http.Request) complaints.Actor {
	id := middleware.IdentityFromContext(r.Context())
	return complaints.Actor{ID: id.UserID, Name: id.Name, Role: id.Role, HostelID: id.HostelID}
}

// collectionParam resolves {collection}; unknown names are NOT_FOUND like
// any other missing route.
func collectionParam(r *http.Request) (enums.Collection, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "collection"))
	c, err := enums.ParseCollection(raw)
	if err != nil {
		return "", pkgerrors.Newf(pkgerrors.CodeNotFound, "unknown collection %q", raw)
	}
	return c, nil
}

func idParam(r *http.Request, name string) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, name))
	if id == "" {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "%s is required", name)
	}
	return id, nil
}

// noStore keeps responses carrying one-time credentials out of caches.
func noStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}
