package cron

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/hostelhub-backend/internal/docstore"
	"github.com/angelmondragon/hostelhub-backend/internal/notifications"
	"github.com/angelmondragon/hostelhub-backend/internal/repository"
	"github.com/angelmondragon/hostelhub-backend/pkg/enums"
	"github.com/angelmondragon/hostelhub-backend/pkg/logger"
)

type memStore struct {
	mu  sync.Mutex
	doc docstore.Document
}

func (m *memStore) Load(context.Context) (docstore.Document, error) { return m.doc, nil }

func (m *memStore) Enqueue(_ context.Context, doc docstore.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc = doc
	return nil
}

type recordingPublisher struct {
	events []notifications.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e notifications.Event) {
	p.events = append(p.events, e)
}

func TestTrialExpiryJobDeactivatesLapsedTrials(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	doc := docstore.NewDocument()
	doc["hostels"] = []docstore.Record{
		{"id": "h1", "name": "Sunrise PG", "status": "active", "planStatus": "trial", "trialExpiryDate": docstore.FormatTime(now.Add(-time.Hour))},
		{"id": "h2", "name": "Lakeview Hostel", "status": "active", "planStatus": "trial", "trialExpiryDate": docstore.FormatTime(now.Add(48 * time.Hour))},
		{"id": "h3", "name": "Green Nest", "status": "active", "planStatus": "active", "trialExpiryDate": docstore.FormatTime(now.Add(-72 * time.Hour))},
		{"id": "h4", "name": "Old Fort PG", "status": "inactive", "planStatus": "trial", "trialExpiryDate": docstore.FormatTime(now.Add(-72 * time.Hour))},
	}
	store := &memStore{doc: doc}
	repo, err := repository.New(context.Background(), repository.Params{
		Store: store, Writer: store, Logger: logger.Nop(), Now: func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("repository.New: %v", err)
	}
	publisher := &recordingPublisher{}
	job, err := NewTrialExpiryJob(TrialExpiryJobParams{
		Logger:    logger.Nop(),
		Repo:      repo,
		Publisher: publisher,
		Now:       func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewTrialExpiryJob: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	h1, err := repo.Get(context.Background(), enums.CollectionHostels, "h1")
	if err != nil {
		t.Fatalf("get h1: %v", err)
	}
	if h1.String("status") != "inactive" || h1.String("planStatus") != "expired" {
		t.Fatalf("expected h1 inactive/expired, got %s/%s", h1.String("status"), h1.String("planStatus"))
	}
	for _, id := range []string{"h2", "h3"} {
		rec, _ := repo.Get(context.Background(), enums.CollectionHostels, id)
		if rec.String("status") != "active" {
			t.Fatalf("expected %s untouched, got %s", id, rec.String("status"))
		}
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(publisher.events))
	}
	event := publisher.events[0]
	if event.Type != enums.NotificationHostelDeactivated || event.HostelID != "h1" {
		t.Fatalf("unexpected event %+v", event)
	}
	if event.Data["reason"] != trialExpiredReason {
		t.Fatalf("expected reason %q, got %v", trialExpiredReason, event.Data["reason"])
	}

	publisher.events = nil
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if len(publisher.events) != 0 {
		t.Fatalf("expected second sweep to be a no-op, got %d events", len(publisher.events))
	}
}

func TestTrialExpiryJobRequiresRepository(t *testing.T) {
	if _, err := NewTrialExpiryJob(TrialExpiryJobParams{Logger: logger.Nop()}); err == nil {
		t.Fatal("expected error without repository")
	}
}
