package complaints

import (
	"strings"
	"time"

	"github.com/angelmondragon/hostelhub-backend/internal/docstore"
	"github.com/angelmondragon/hostelhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hostelhub-backend/pkg/errors"
)

const (
	systemResolvedComment = "marked as resolved by admin"
	defaultPriority       = "medium"
)

var transitions = map[enums.ComplaintStatus][]enums.ComplaintStatus{
	enums.ComplaintStatusOpen:       {enums.ComplaintStatusInProgress},
	enums.ComplaintStatusInProgress: {enums.ComplaintStatusResolved},
	enums.ComplaintStatusResolved:   {enums.ComplaintStatusReopen},
	enums.ComplaintStatusReopen:     {enums.ComplaintStatusInProgress},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to enums.ComplaintStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns STATE_CONFLICT for pairs outside the table.
func ValidateTransition(from, to enums.ComplaintStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return pkgerrors.Newf(pkgerrors.CodeStateConflict, "complaint cannot move from %s to %s", from, to).
		WithDetails(map[string]any{"from": from.String(), "to": to.String()})
}

// Actor is whoever performs a lifecycle operation.
type Actor struct {
	ID       string
	Name     string
	Role     enums.Role
	HostelID string
}

// TransitionInput requests a status change. Fields are merged onto the
// complaint before the transition and committed with it.
type TransitionInput struct {
	Status     string
	Actor      Actor
	ReopenedBy string
	Note       string
	Fields     docstore.Record
}

// CommentInput appends a comment.
type CommentInput struct {
	Actor Actor
	Body  string
}

// Status returns the complaint status, treating a missing value as open.
func Status(rec docstore.Record) (enums.ComplaintStatus, error) {
	raw := rec.String("status")
	if raw == "" {
		return enums.ComplaintStatusOpen, nil
	}
	status, err := enums.ParseComplaintStatus(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	return status, nil
}

// Prepare fills the create defaults: status open, priority medium and an
// empty comment list.
func Prepare(rec docstore.Record) error {
	if raw := rec.String("status"); raw != "" {
		status, err := enums.ParseComplaintStatus(raw)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
		}
		if status != enums.ComplaintStatusOpen {
			return pkgerrors.New(pkgerrors.CodeValidation, "new complaints start as open")
		}
	}
	rec["status"] = enums.ComplaintStatusOpen.String()
	if rec.String("priority") == "" {
		rec["priority"] = defaultPriority
	}
	rec["comments"] = []any{}
	return nil
}

// SplitPatch separates a lifecycle status change from a generic update.
// Comments can only be appended through AddComment.
func SplitPatch(patch docstore.Record) (docstore.Record, string, error) {
	if _, ok := patch["comments"]; ok {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "comments are append-only; use the comments endpoint")
	}
	rest := patch.Clone()
	status := strings.TrimSpace(rest.String("status"))
	delete(rest, "status")
	for _, field := range []string{"resolvedAt", "resolvedBy", "reopenedAt", "reopenedBy"} {
		delete(rest, field)
	}
	return rest, status, nil
}

// Apply runs one transition against rec and returns the updated copy with the
// source and target statuses. A request for the current status changes nothing.
func Apply(rec docstore.Record, input TransitionInput, now time.Time, newID func() string) (docstore.Record, enums.ComplaintStatus, enums.ComplaintStatus, bool, error) {
	from, err := Status(rec)
	if err != nil {
		return nil, "", "", false, err
	}
	to, err := enums.ParseComplaintStatus(strings.TrimSpace(input.Status))
	if err != nil {
		return nil, "", "", false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	if from == to {
		return rec.Clone(), from, to, false, nil
	}
	if err := ValidateTransition(from, to); err != nil {
		return nil, from, to, false, err
	}

	next := rec.Clone()
	next["status"] = to.String()
	stamp := docstore.FormatTime(now)
	comments := Comments(next)

	switch to {
	case enums.ComplaintStatusResolved:
		next["resolvedAt"] = stamp
		next["resolvedBy"] = input.Actor.ID
		if strings.TrimSpace(input.ReopenedBy) == "" {
			comments = append(comments, newComment(newID(), input.Actor, systemResolvedComment, true, now))
		}
	case enums.ComplaintStatusReopen:
		next["reopenedAt"] = stamp
		reopenedBy := strings.TrimSpace(input.ReopenedBy)
		if reopenedBy == "" {
			reopenedBy = input.Actor.ID
		}
		next["reopenedBy"] = reopenedBy
	}
	if note := strings.TrimSpace(input.Note); note != "" {
		comments = append(comments, newComment(newID(), input.Actor, note, false, now))
	}
	next["comments"] = comments
	return next, from, to, true, nil
}

// Comments returns the comment list of rec as a fresh slice.
func Comments(rec docstore.Record) []any {
	switch list := rec["comments"].(type) {
	case []any:
		return append([]any(nil), list...)
	case []map[string]any:
		out := make([]any, 0, len(list))
		for _, c := range list {
			out = append(out, c)
		}
		return out
	}
	return []any{}
}

func newComment(id string, actor Actor, body string, system bool, now time.Time) map[string]any {
	return map[string]any{
		"id":         id,
		"authorId":   actor.ID,
		"authorName": actor.Name,
		"role":       actor.Role.String(),
		"body":       body,
		"createdAt":  docstore.FormatTime(now),
		"system":     system,
	}
}
