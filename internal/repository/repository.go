package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/angelmondragon/hostelhub-backend/internal/docstore"
	"github.com/angelmondragon/hostelhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hostelhub-backend/pkg/errors"
	"github.com/angelmondragon/hostelhub-backend/pkg/logger"
)

type documentWriter interface {
	Enqueue(ctx context.Context, doc docstore.Document) error
}

type documentLoader interface {
	Load(ctx context.Context) (docstore.Document, error)
}

// Params configure a Repository.
type Params struct {
	Store  documentLoader
	Writer documentWriter
	Logger *logger.Logger
	Now    func() time.Time
}

// Filter narrows List results. Empty fields match everything.
type Filter struct {
	HostelID string
	Where    map[string]string
}

// DeleteOptions carry caller privileges for guarded deletes.
type DeleteOptions struct {
	AdminOverride bool
}

type collection struct {
	mu sync.RWMutex
	// records is replaced, never mutated in place. Writes hold both mu and
	// the repository commit mutex.
	records []docstore.Record
	lastID  int64
}

// Repository owns the in-memory document and guards it with one lock per
// collection. Every mutation commits through the write serializer before it
// becomes visible.
type Repository struct {
	writer documentWriter
	logg   *logger.Logger
	now    func() time.Time

	cols map[string]*collection

	// commit orders snapshots so each persisted document contains every
	// earlier committed change.
	commit sync.Mutex
}

// New loads the document once and returns a Repository over it.
func New(ctx context.Context, params Params) (*Repository, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if params.Writer == nil {
		return nil, fmt.Errorf("writer required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}

	doc, err := params.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load store: %w", err)
	}
	cols := make(map[string]*collection, len(doc))
	for _, c := range enums.Collections() {
		cols[c.String()] = &collection{records: []docstore.Record{}}
	}
	for name, records := range doc {
		col := &collection{records: records}
		if col.records == nil {
			col.records = []docstore.Record{}
		}
		cols[name] = col
	}

	return &Repository{
		writer: params.Writer,
		logg:   params.Logger,
		now:    now,
		cols:   cols,
	}, nil
}

func (r *Repository) col(c enums.Collection) (*collection, error) {
	col, ok := r.cols[c.String()]
	if !ok {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "unknown collection %q", c)
	}
	return col, nil
}

// List returns clones of the records matching filter, in stored order.
func (r *Repository) List(ctx context.Context, c enums.Collection, filter Filter) ([]docstore.Record, error) {
	col, err := r.col(c)
	if err != nil {
		return nil, err
	}
	col.mu.RLock()
	defer col.mu.RUnlock()
	return filterRecords(col.records, filter), nil
}

// Get returns a clone of the record with id.
func (r *Repository) Get(ctx context.Context, c enums.Collection, id string) (docstore.Record, error) {
	col, err := r.col(c)
	if err != nil {
		return nil, err
	}
	col.mu.RLock()
	defer col.mu.RUnlock()
	if _, rec := indexOf(col.records, id); rec != nil {
		return rec.Clone(), nil
	}
	return nil, notFound(c, id)
}

// Create inserts input as a new record.
func (r *Repository) Create(ctx context.Context, c enums.Collection, input docstore.Record) (docstore.Record, error) {
	var created docstore.Record
	err := r.Transact(ctx, []enums.Collection{c}, func(tx *Tx) error {
		rec, err := tx.Insert(c, input)
		created = rec
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update merges patch onto the stored record. Omitted fields keep their value.
func (r *Repository) Update(ctx context.Context, c enums.Collection, id string, patch docstore.Record) (docstore.Record, error) {
	var updated docstore.Record
	err := r.Transact(ctx, []enums.Collection{c}, func(tx *Tx) error {
		rec, err := tx.Update(c, id, patch)
		updated = rec
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a record, refusing rooms that tenants still reference and
// complaints without an administrative override.
func (r *Repository) Delete(ctx context.Context, c enums.Collection, id string, opts DeleteOptions) error {
	collections := []enums.Collection{c}
	if c == enums.CollectionRooms {
		collections = append(collections, enums.CollectionTenants)
	}
	return r.Transact(ctx, collections, func(tx *Tx) error {
		rec, err := tx.Get(c, id)
		if err != nil {
			return err
		}
		if err := guardDelete(tx, c, rec, opts); err != nil {
			return err
		}
		return tx.Remove(c, id)
	})
}

// Transact locks collections in a fixed order, runs fn against a working copy
// and commits every touched collection in one document write. When fn or the
// write fails nothing changes.
func (r *Repository) Transact(ctx context.Context, collections []enums.Collection, fn func(tx *Tx) error) error {
	names := uniqueSorted(collections)
	locked := make([]*collection, 0, len(names))
	for _, name := range names {
		col, err := r.col(enums.Collection(name))
		if err != nil {
			return err
		}
		locked = append(locked, col)
	}
	for _, col := range locked {
		col.mu.Lock()
	}
	defer func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].mu.Unlock()
		}
	}()

	tx := newTx(r, names)
	if err := fn(tx); err != nil {
		return err
	}
	if !tx.dirty() {
		return nil
	}
	return r.commitTx(ctx, tx)
}

func (r *Repository) commitTx(ctx context.Context, tx *Tx) error {
	r.commit.Lock()
	defer r.commit.Unlock()

	doc := make(docstore.Document, len(r.cols))
	for name, col := range r.cols {
		if ws, ok := tx.work[name]; ok && ws.dirty {
			doc[name] = ws.records
			continue
		}
		doc[name] = col.records
	}

	if err := r.writer.Enqueue(ctx, doc); err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist store document")
	}

	for name, ws := range tx.work {
		if !ws.dirty {
			continue
		}
		col := r.cols[name]
		col.records = ws.records
		if ws.lastID > col.lastID {
			col.lastID = ws.lastID
		}
	}
	return nil
}

func uniqueSorted(collections []enums.Collection) []string {
	seen := make(map[string]struct{}, len(collections))
	names := make([]string, 0, len(collections))
	for _, c := range collections {
		if _, ok := seen[c.String()]; ok {
			continue
		}
		seen[c.String()] = struct{}{}
		names = append(names, c.String())
	}
	sort.Strings(names)
	return names
}

func filterRecords(records []docstore.Record, filter Filter) []docstore.Record {
	out := make([]docstore.Record, 0, len(records))
	for _, rec := range records {
		if !matches(rec, filter) {
			continue
		}
		out = append(out, rec.Clone())
	}
	return out
}

func matches(rec docstore.Record, filter Filter) bool {
	if filter.HostelID != "" && rec.HostelID() != filter.HostelID {
		return false
	}
	for field, want := range filter.Where {
		if rec.String(field) != want {
			return false
		}
	}
	return true
}

func indexOf(records []docstore.Record, id string) (int, docstore.Record) {
	if id == "" {
		return -1, nil
	}
	for i, rec := range records {
		if rec.ID() == id {
			return i, rec
		}
	}
	return -1, nil
}

func notFound(c enums.Collection, id string) error {
	return pkgerrors.Newf(pkgerrors.CodeNotFound, "%s record '%s' not found", c, id)
}
