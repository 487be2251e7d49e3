package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/hostelhub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/hostelhub-backend/pkg/errors"
	"github.com/angelmondragon/hostelhub-backend/pkg/logger"
	"github.com/angelmondragon/hostelhub-backend/pkg/metrics"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultDocumentID is the row key used when none is configured.
const DefaultDocumentID = "hostelhub"

type dbClient interface {
	DB() *gorm.DB
	Ping(ctx context.Context) error
}

// SQLStoreParams configure an SQLStore.
type SQLStoreParams struct {
	DB             dbClient
	DocumentID     string
	RepairAttempts int
	Logger         *logger.Logger
	Metrics        *metrics.StoreMetrics
	Now            func() time.Time
}

// SQLStore keeps the serialized document in a single store_documents row. The
// body goes through the same decode and repair path as the file backend.
type SQLStore struct {
	db       dbClient
	id       string
	attempts int
	logg     *logger.Logger
	metrics  *metrics.StoreMetrics
	now      func() time.Time
}

// NewSQLStore validates params and returns an SQLStore.
func NewSQLStore(params SQLStoreParams) (*SQLStore, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	id := params.DocumentID
	if id == "" {
		id = DefaultDocumentID
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &SQLStore{
		db:       params.DB,
		id:       id,
		attempts: params.RepairAttempts,
		logg:     params.Logger,
		metrics:  params.Metrics,
		now:      now,
	}, nil
}

func (s *SQLStore) Load(ctx context.Context) (Document, error) {
	ctx = s.logg.WithField(ctx, "document_id", s.id)

	var row models.StoreDocument
	err := s.db.DB().WithContext(ctx).Where("id = ?", s.id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		doc := NewDocument()
		if err := s.Save(ctx, doc); err != nil {
			return nil, fmt.Errorf("initialize store: %w", err)
		}
		s.logg.Info(ctx, "store document created")
		return doc, nil
	}
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "error_dump", pkgerrors.Dump(err)), "failed to read store document", err)
		return nil, fmt.Errorf("read store document: %w", err)
	}

	doc, outcome, dropped := parse([]byte(row.Body), s.attempts)
	if outcome == "" {
		return doc, nil
	}
	warnDropped(ctx, s.logg, dropped)
	s.metrics.IncRepair(outcome)
	s.logg.Warn(s.logg.WithField(ctx, "outcome", outcome), "store document recovered on load")
	if err := s.Save(ctx, doc); err != nil {
		s.logg.Error(ctx, "failed to persist recovered store document", err)
	}
	return doc, nil
}

func (s *SQLStore) Save(ctx context.Context, doc Document) error {
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("validate document: %w", err)
	}
	data, err := roundTrip(doc)
	if err != nil {
		return err
	}
	row := models.StoreDocument{
		ID:        s.id,
		Body:      string(data),
		UpdatedAt: s.now().UTC(),
	}
	err = s.db.DB().WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"body", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "error_dump", pkgerrors.Dump(err)), "failed to write store document", err)
		return fmt.Errorf("write store document: %w", err)
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
