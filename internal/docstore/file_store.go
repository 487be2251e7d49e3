package docstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/angelmondragon/hostelhub-backend/pkg/logger"
	"github.com/angelmondragon/hostelhub-backend/pkg/metrics"
)

// FileStoreParams configure a FileStore.
type FileStoreParams struct {
	Path           string
	RepairAttempts int
	Logger         *logger.Logger
	Metrics        *metrics.StoreMetrics
}

// FileStore keeps the document in one JSON file. Saves go through a temp file
// in the same directory followed by a rename, so readers never observe a
// partially written document.
type FileStore struct {
	path     string
	attempts int
	logg     *logger.Logger
	metrics  *metrics.StoreMetrics

	mu sync.Mutex
}

// NewFileStore builds a FileStore, creating the parent directory when needed.
func NewFileStore(params FileStoreParams) (*FileStore, error) {
	if params.Path == "" {
		return nil, fmt.Errorf("store path required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := os.MkdirAll(filepath.Dir(params.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{
		path:     params.Path,
		attempts: params.RepairAttempts,
		logg:     params.Logger,
		metrics:  params.Metrics,
	}, nil
}

// Path returns the file backing the store.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(ctx context.Context) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx = s.logg.WithField(ctx, "store_path", s.path)
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		doc := NewDocument()
		if err := s.write(doc); err != nil {
			return nil, fmt.Errorf("initialize store: %w", err)
		}
		s.logg.Info(ctx, "store file created")
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}

	doc, outcome, dropped := parse(data, s.attempts)
	if outcome == "" {
		return doc, nil
	}
	warnDropped(ctx, s.logg, dropped)

	s.metrics.IncRepair(outcome)
	s.logg.Warn(s.logg.WithField(ctx, "outcome", outcome), "store document recovered on load")
	if err := s.write(doc); err != nil {
		// the recovered document is still served; the next load repeats the repair
		s.logg.Error(ctx, "failed to persist recovered store document", err)
	}
	return doc, nil
}

func (s *FileStore) Save(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(doc)
}

// Ping verifies the store directory is reachable.
func (s *FileStore) Ping(ctx context.Context) error {
	info, err := os.Stat(filepath.Dir(s.path))
	if err != nil {
		return fmt.Errorf("stat store dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("store dir %s is not a directory", filepath.Dir(s.path))
	}
	return nil
}

func (s *FileStore) write(doc Document) error {
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("validate document: %w", err)
	}
	data, err := roundTrip(doc)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".store-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}
