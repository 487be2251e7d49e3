package docstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/hostelhub-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	mu     sync.Mutex
	saved  []string
	saveFn func(doc Document) error
	gate   chan struct{}
}

func (s *stubStore) Load(context.Context) (Document, error) {
	return NewDocument(), nil
}

func (s *stubStore) Save(_ context.Context, doc Document) error {
	if s.gate != nil {
		<-s.gate
	}
	if s.saveFn != nil {
		if err := s.saveFn(doc); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, doc["notices"][0].ID())
	return nil
}

func (s *stubStore) savedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.saved...)
}

func noticeDoc(id string) Document {
	doc := NewDocument()
	doc["notices"] = []Record{{"id": id}}
	return doc
}

func newTestSerializer(t *testing.T, store Store) *Serializer {
	t.Helper()
	s, err := NewSerializer(SerializerParams{Store: store, Logger: logger.Nop(), QueueSize: 64})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSerializerCommitsInSubmissionOrder(t *testing.T) {
	store := &stubStore{gate: make(chan struct{})}
	s := newTestSerializer(t, store)
	ctx := context.Background()

	var pending []<-chan error
	var want []string
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("n%02d", i)
		done, err := s.Submit(ctx, noticeDoc(id))
		require.NoError(t, err)
		pending = append(pending, done)
		want = append(want, id)
	}
	close(store.gate)

	for _, done := range pending {
		require.NoError(t, <-done)
	}
	assert.Equal(t, want, store.savedIDs())
}

func TestSerializerFailureDoesNotPoisonQueue(t *testing.T) {
	boom := errors.New("disk full")
	store := &stubStore{saveFn: func(doc Document) error {
		if doc["notices"][0].ID() == "bad" {
			return boom
		}
		return nil
	}}
	s := newTestSerializer(t, store)
	ctx := context.Background()

	require.NoError(t, s.Enqueue(ctx, noticeDoc("a")))
	assert.ErrorIs(t, s.Enqueue(ctx, noticeDoc("bad")), boom)
	require.NoError(t, s.Enqueue(ctx, noticeDoc("b")))

	assert.Equal(t, []string{"a", "b"}, store.savedIDs())
}

func TestSerializerRecoversPanickingStore(t *testing.T) {
	store := &stubStore{saveFn: func(doc Document) error {
		if doc["notices"][0].ID() == "panic" {
			panic("corrupt handle")
		}
		return nil
	}}
	s := newTestSerializer(t, store)
	ctx := context.Background()

	err := s.Enqueue(ctx, noticeDoc("panic"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	require.NoError(t, s.Enqueue(ctx, noticeDoc("after")))
}

func TestSerializerRejectsInvalidDocument(t *testing.T) {
	store := &stubStore{}
	s := newTestSerializer(t, store)

	_, err := s.Submit(context.Background(), Document{"notices": []Record{{"id": "1"}}})
	assert.Error(t, err)
	assert.Empty(t, store.savedIDs())
}

func TestSerializerCloseDrainsAndRejects(t *testing.T) {
	store := &stubStore{gate: make(chan struct{})}
	s, err := NewSerializer(SerializerParams{Store: store, Logger: logger.Nop()})
	require.NoError(t, err)

	done, err := s.Submit(context.Background(), noticeDoc("last"))
	require.NoError(t, err)

	closed := make(chan struct{})
	go func() {
		_ = s.Close()
		close(closed)
	}()
	close(store.gate)

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("close did not return")
	}
	require.NoError(t, <-done)
	assert.Equal(t, []string{"last"}, store.savedIDs())

	_, err = s.Submit(context.Background(), noticeDoc("late"))
	assert.ErrorIs(t, err, ErrSerializerClosed)
	assert.NoError(t, s.Close())
}

func TestSerializerSubmitHonoursContextWhenFull(t *testing.T) {
	store := &stubStore{gate: make(chan struct{})}
	s, err := NewSerializer(SerializerParams{Store: store, Logger: logger.Nop(), QueueSize: 1})
	require.NoError(t, err)
	defer func() {
		close(store.gate)
		_ = s.Close()
	}()

	// one job blocks in Save, one fills the buffer
	_, err = s.Submit(context.Background(), noticeDoc("1"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(s.jobs) == 0 }, time.Second, time.Millisecond)
	_, err = s.Submit(context.Background(), noticeDoc("2"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.Submit(ctx, noticeDoc("3"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
