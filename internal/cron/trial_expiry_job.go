package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/hostelhub-backend/internal/docstore"
	"github.com/angelmondragon/hostelhub-backend/internal/notifications"
	"github.com/angelmondragon/hostelhub-backend/internal/repository"
	"github.com/angelmondragon/hostelhub-backend/pkg/enums"
	"github.com/angelmondragon/hostelhub-backend/pkg/logger"
)

const trialExpiredReason = "trial_expired"

type hostelTransactor interface {
	Transact(ctx context.Context, collections []enums.Collection, fn func(tx *repository.Tx) error) error
}

type eventPublisher interface {
	Publish(ctx context.Context, e notifications.Event)
}

// TrialExpiryJobParams configures the trial expiry sweep.
type TrialExpiryJobParams struct {
	Logger    *logger.Logger
	Repo      hostelTransactor
	Publisher eventPublisher
	Now       func() time.Time
}

// NewTrialExpiryJob deactivates hostels whose free trial has lapsed.
func NewTrialExpiryJob(params TrialExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &trialExpiryJob{
		logg:      params.Logger,
		repo:      params.Repo,
		publisher: params.Publisher,
		now:       now,
	}, nil
}

type trialExpiryJob struct {
	logg      *logger.Logger
	repo      hostelTransactor
	publisher eventPublisher
	now       func() time.Time
}

func (j *trialExpiryJob) Name() string { return "trial-expiry" }

func (j *trialExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var expired []docstore.Record
	err := j.repo.Transact(ctx, []enums.Collection{enums.CollectionHostels}, func(tx *repository.Tx) error {
		expired = expired[:0]
		for _, hostel := range tx.List(enums.CollectionHostels, repository.Filter{}) {
			if !trialLapsed(hostel, now) {
				continue
			}
			updated, err := tx.Update(enums.CollectionHostels, hostel.ID(), docstore.Record{
				"status":     enums.HostelStatusInactive.String(),
				"planStatus": enums.PlanStatusExpired.String(),
			})
			if err != nil {
				return err
			}
			expired = append(expired, updated)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("expire trials: %w", err)
	}

	for _, hostel := range expired {
		if j.publisher != nil {
			event := notifications.NewEvent(enums.NotificationHostelDeactivated, hostel.ID(), map[string]any{
				"hostelId": hostel.ID(),
				"name":     hostel.String("name"),
				"reason":   trialExpiredReason,
			})
			event.At = now
			j.publisher.Publish(ctx, event)
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"hostels_expired": len(expired),
	})
	j.logg.Info(logCtx, "trial expiry sweep complete")
	return nil
}

func trialLapsed(hostel docstore.Record, now time.Time) bool {
	if hostel.String("planStatus") != enums.PlanStatusTrial.String() {
		return false
	}
	if hostel.String("status") != enums.HostelStatusActive.String() {
		return false
	}
	expiry, ok := hostel.Time("trialExpiryDate")
	return ok && expiry.Before(now)
}
