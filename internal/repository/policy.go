package repository

import (
	"strings"

	"github.com/angelmondragon/hostelhub-backend/internal/docstore"
	"github.com/angelmondragon/hostelhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hostelhub-backend/pkg/errors"
)

// Scope tells how far a uniqueness rule reaches.
type Scope string

const (
	ScopeGlobal Scope = "global"
	ScopeHostel Scope = "hostel"
)

// Policy lists the fields that must be unique inside a collection.
type Policy struct {
	UniqueFields []string
	Scope        Scope
}

var policies = map[enums.Collection]Policy{
	enums.CollectionUsers:          {UniqueFields: []string{"email"}, Scope: ScopeGlobal},
	enums.CollectionHostels:        {UniqueFields: []string{"name"}, Scope: ScopeGlobal},
	enums.CollectionHostelRequests: {UniqueFields: []string{"email"}, Scope: ScopeGlobal},
	enums.CollectionTenants:        {UniqueFields: []string{"email", "phone", "aadharNumber"}, Scope: ScopeHostel},
	enums.CollectionRooms:          {UniqueFields: []string{"roomNumber"}, Scope: ScopeHostel},
	enums.CollectionStaff:          {UniqueFields: []string{"phone", "email"}, Scope: ScopeHostel},
}

// PolicyFor returns the uniqueness policy of c. Collections without rules get
// an empty policy.
func PolicyFor(c enums.Collection) Policy {
	p, ok := policies[c]
	if !ok {
		return Policy{Scope: ScopeHostel}
	}
	return Policy{UniqueFields: append([]string(nil), p.UniqueFields...), Scope: p.Scope}
}

// checkUnique compares candidate against records, skipping the record that
// carries ignoreID.
func checkUnique(policy Policy, records []docstore.Record, candidate docstore.Record, ignoreID string) error {
	for _, field := range policy.UniqueFields {
		value := strings.TrimSpace(candidate.String(field))
		if value == "" {
			continue
		}
		for _, existing := range records {
			if ignoreID != "" && existing.ID() == ignoreID {
				continue
			}
			if policy.Scope == ScopeHostel && !strings.EqualFold(existing.HostelID(), candidate.HostelID()) {
				continue
			}
			if strings.EqualFold(strings.TrimSpace(existing.String(field)), value) {
				return uniquenessError(field, value, policy.Scope)
			}
		}
	}
	return nil
}

func uniquenessError(field, value string, scope Scope) error {
	msg := field + " '" + value + "' already exists"
	if scope == ScopeHostel {
		msg += " in this hostel"
	}
	return pkgerrors.New(pkgerrors.CodeConflict, msg).WithDetails(map[string]any{
		"field": field,
		"value": value,
		"scope": string(scope),
	})
}
