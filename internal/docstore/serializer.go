package docstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/hostelhub-backend/pkg/logger"
	"github.com/angelmondragon/hostelhub-backend/pkg/metrics"
)

const (
	defaultQueueSize    = 256
	defaultWriteTimeout = 10 * time.Second
)

// ErrSerializerClosed is returned for writes submitted after Close.
var ErrSerializerClosed = errors.New("write serializer closed")

// SerializerParams configure a Serializer.
type SerializerParams struct {
	Store        Store
	Logger       *logger.Logger
	Metrics      *metrics.StoreMetrics
	QueueSize    int
	WriteTimeout time.Duration
}

type writeJob struct {
	ctx  context.Context
	doc  Document
	done chan error
}

// Serializer funnels every whole-document save through one goroutine so writes
// commit one at a time in admission order. A failed write reports its error to
// its own caller and the queue moves on.
type Serializer struct {
	store   Store
	logg    *logger.Logger
	metrics *metrics.StoreMetrics
	timeout time.Duration

	jobs chan writeJob

	mu       sync.RWMutex
	closed   bool
	finished chan struct{}
}

// NewSerializer starts the writer goroutine.
func NewSerializer(params SerializerParams) (*Serializer, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	size := params.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	timeout := params.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}

	s := &Serializer{
		store:    params.Store,
		logg:     params.Logger,
		metrics:  params.Metrics,
		timeout:  timeout,
		jobs:     make(chan writeJob, size),
		finished: make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// Submit admits doc to the queue and returns a channel that yields the write
// result. ctx bounds admission only; an admitted write always runs.
func (s *Serializer) Submit(ctx context.Context, doc Document) (<-chan error, error) {
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("validate document: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrSerializerClosed
	}

	job := writeJob{
		ctx:  context.WithoutCancel(ctx),
		doc:  doc,
		done: make(chan error, 1),
	}
	select {
	case s.jobs <- job:
		s.metrics.QueueDepthDelta(1)
		return job.done, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Enqueue submits doc and waits for it to be committed.
func (s *Serializer) Enqueue(ctx context.Context, doc Document) error {
	done, err := s.Submit(ctx, doc)
	if err != nil {
		return err
	}
	return <-done
}

// Close stops admission, drains pending writes and waits for the writer to exit.
func (s *Serializer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.finished
		return nil
	}
	s.closed = true
	close(s.jobs)
	s.mu.Unlock()

	<-s.finished
	return nil
}

func (s *Serializer) run() {
	defer close(s.finished)
	for job := range s.jobs {
		s.metrics.QueueDepthDelta(-1)
		err := s.write(job)
		if err != nil {
			s.logg.Error(job.ctx, "store write failed", err)
		}
		job.done <- err
	}
}

func (s *Serializer) write(job writeJob) (err error) {
	ctx, cancel := context.WithTimeout(job.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("store write panicked: %v", r)
		}
		s.metrics.ObserveWrite(time.Since(start), err)
	}()
	return s.store.Save(ctx, job.doc)
}
