package complaints

import (
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/hostelhub-backend/internal/docstore"
	"github.com/angelmondragon/hostelhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hostelhub-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("c%d", n)
	}
}

var admin = Actor{ID: "u-admin", Name: "Asha", Role: enums.RoleAdmin, HostelID: "h1"}

func TestTransitionTable(t *testing.T) {
	statuses := []enums.ComplaintStatus{
		enums.ComplaintStatusOpen,
		enums.ComplaintStatusInProgress,
		enums.ComplaintStatusResolved,
		enums.ComplaintStatusReopen,
	}
	allowed := map[[2]enums.ComplaintStatus]bool{
		{enums.ComplaintStatusOpen, enums.ComplaintStatusInProgress}:     true,
		{enums.ComplaintStatusInProgress, enums.ComplaintStatusResolved}: true,
		{enums.ComplaintStatusResolved, enums.ComplaintStatusReopen}:     true,
		{enums.ComplaintStatusReopen, enums.ComplaintStatusInProgress}:   true,
	}
	for _, from := range statuses {
		for _, to := range statuses {
			assert.Equal(t, allowed[[2]enums.ComplaintStatus{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestValidateTransitionReportsStateConflict(t *testing.T) {
	err := ValidateTransition(enums.ComplaintStatusResolved, enums.ComplaintStatusOpen)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	assert.Equal(t, map[string]any{"from": "resolved", "to": "open"}, typed.Details())
}

func TestApplyFullLifecycle(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	ids := sequentialIDs()
	rec := docstore.Record{"id": "1", "status": "open", "comments": []any{}}

	rec, _, _, changed, err := Apply(rec, TransitionInput{Status: "in-progress", Actor: admin}, now, ids)
	require.NoError(t, err)
	assert.True(t, changed)

	rec, _, _, _, err = Apply(rec, TransitionInput{Status: "resolved", Actor: admin}, now, ids)
	require.NoError(t, err)
	assert.Equal(t, "resolved", rec.String("status"))
	assert.Equal(t, "2026-03-02T09:00:00.000Z", rec.String("resolvedAt"))
	assert.Equal(t, "u-admin", rec.String("resolvedBy"))
	comments := Comments(rec)
	require.Len(t, comments, 1)
	system := comments[0].(map[string]any)
	assert.Equal(t, systemResolvedComment, system["body"])
	assert.Equal(t, true, system["system"])

	_, _, _, _, err = Apply(rec, TransitionInput{Status: "open", Actor: admin}, now, ids)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	tenant := Actor{ID: "u-t1", Role: enums.RoleTenant, HostelID: "h1"}
	rec, _, _, _, err = Apply(rec, TransitionInput{Status: "reopen", Actor: tenant, Note: "still leaking"}, now, ids)
	require.NoError(t, err)
	assert.Equal(t, "u-t1", rec.String("reopenedBy"))
	require.Len(t, Comments(rec), 2)

	_, _, _, _, err = Apply(rec, TransitionInput{Status: "open", Actor: admin}, now, ids)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	rec, _, _, _, err = Apply(rec, TransitionInput{Status: "in-progress", Actor: admin}, now, ids)
	require.NoError(t, err)
	assert.Equal(t, "in-progress", rec.String("status"))
}

func TestApplyResolveWithReopenMarkerSkipsSystemComment(t *testing.T) {
	rec := docstore.Record{"id": "1", "status": "in-progress"}
	next, _, _, _, err := Apply(rec, TransitionInput{Status: "resolved", Actor: admin, ReopenedBy: "u-t1"}, time.Now(), sequentialIDs())
	require.NoError(t, err)
	assert.Empty(t, Comments(next))
}

func TestApplySameStatusIsNoop(t *testing.T) {
	rec := docstore.Record{"id": "1", "status": "resolved"}
	next, from, to, changed, err := Apply(rec, TransitionInput{Status: "resolved", Actor: admin}, time.Now(), sequentialIDs())
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, enums.ComplaintStatusResolved, from)
	assert.Equal(t, enums.ComplaintStatusResolved, to)
	assert.Equal(t, rec, next)
}

func TestApplyRejectsUnknownStatus(t *testing.T) {
	_, _, _, _, err := Apply(docstore.Record{"id": "1"}, TransitionInput{Status: "closed"}, time.Now(), sequentialIDs())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestPrepareDefaults(t *testing.T) {
	rec := docstore.Record{"title": "Fan", "comments": []any{"smuggled"}}
	require.NoError(t, Prepare(rec))
	assert.Equal(t, "open", rec["status"])
	assert.Equal(t, "medium", rec["priority"])
	assert.Equal(t, []any{}, rec["comments"])

	assert.Error(t, Prepare(docstore.Record{"status": "resolved"}))
}

func TestSplitPatch(t *testing.T) {
	rest, status, err := SplitPatch(docstore.Record{"status": "resolved", "priority": "high", "resolvedBy": "x"})
	require.NoError(t, err)
	assert.Equal(t, "resolved", status)
	assert.Equal(t, docstore.Record{"priority": "high"}, rest)

	_, _, err = SplitPatch(docstore.Record{"comments": []any{}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
