package notifications

import (
	"context"

	"github.com/angelmondragon/hostelhub-backend/internal/docstore"
	"github.com/angelmondragon/hostelhub-backend/internal/repository"
	"github.com/angelmondragon/hostelhub-backend/pkg/enums"
)

type recordLister interface {
	List(ctx context.Context, c enums.Collection, filter repository.Filter) ([]docstore.Record, error)
}

// UserDirectory resolves audiences against the users collection.
type UserDirectory struct {
	repo recordLister
}

func NewUserDirectory(repo recordLister) *UserDirectory {
	return &UserDirectory{repo: repo}
}

func (u *UserDirectory) Principals(ctx context.Context, aud Audience) ([]Principal, error) {
	filter := repository.Filter{Where: map[string]string{}}
	if aud.UserID != "" {
		filter.Where["id"] = aud.UserID
	} else {
		if aud.Role != "" {
			filter.Where["role"] = aud.Role.String()
		}
		filter.HostelID = aud.HostelID
	}
	records, err := u.repo.List(ctx, enums.CollectionUsers, filter)
	if err != nil {
		return nil, err
	}
	out := make([]Principal, 0, len(records))
	for _, rec := range records {
		p := Principal{UserID: rec.ID(), Role: enums.Role(rec.String("role")), HostelID: rec.HostelID()}
		if p.UserID == "" || !aud.Matches(p) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
