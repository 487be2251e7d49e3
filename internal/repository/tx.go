package repository

import (
	"strconv"

	"github.com/angelmondragon/hostelhub-backend/internal/docstore"
	"github.com/angelmondragon/hostelhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hostelhub-backend/pkg/errors"
)

type workingSet struct {
	records []docstore.Record
	dirty   bool
	lastID  int64
}

// Tx is a unit of work over the collections locked by Transact. Reads see the
// transaction's own writes. A Tx must not be used after its callback returns.
type Tx struct {
	repo *Repository
	work map[string]*workingSet
}

func newTx(r *Repository, names []string) *Tx {
	work := make(map[string]*workingSet, len(names))
	for _, name := range names {
		col := r.cols[name]
		work[name] = &workingSet{records: col.records, lastID: col.lastID}
	}
	return &Tx{repo: r, work: work}
}

func (tx *Tx) dirty() bool {
	for _, ws := range tx.work {
		if ws.dirty {
			return true
		}
	}
	return false
}

func (tx *Tx) set(c enums.Collection) (*workingSet, error) {
	ws, ok := tx.work[c.String()]
	if !ok {
		return nil, pkgerrors.Newf(pkgerrors.CodeInternal, "collection %s is not part of this transaction", c)
	}
	return ws, nil
}

// mutable detaches the working slice from the committed one before the first write.
func (ws *workingSet) mutable() {
	if ws.dirty {
		return
	}
	ws.records = append(make([]docstore.Record, 0, len(ws.records)+1), ws.records...)
	ws.dirty = true
}

// Get returns a clone of the record with id or NOT_FOUND.
func (tx *Tx) Get(c enums.Collection, id string) (docstore.Record, error) {
	ws, err := tx.set(c)
	if err != nil {
		return nil, err
	}
	if _, rec := indexOf(ws.records, id); rec != nil {
		return rec.Clone(), nil
	}
	return nil, notFound(c, id)
}

// Find returns a clone of the first record satisfying match.
func (tx *Tx) Find(c enums.Collection, match func(docstore.Record) bool) (docstore.Record, bool) {
	ws, err := tx.set(c)
	if err != nil {
		return nil, false
	}
	for _, rec := range ws.records {
		if match(rec) {
			return rec.Clone(), true
		}
	}
	return nil, false
}

// List returns clones of the records matching filter.
func (tx *Tx) List(c enums.Collection, filter Filter) []docstore.Record {
	ws, err := tx.set(c)
	if err != nil {
		return nil
	}
	return filterRecords(ws.records, filter)
}

// Insert assigns an id when absent, stamps timestamps, checks uniqueness and
// appends the record.
func (tx *Tx) Insert(c enums.Collection, input docstore.Record) (docstore.Record, error) {
	ws, err := tx.set(c)
	if err != nil {
		return nil, err
	}
	rec := input.Clone()
	if rec == nil {
		rec = docstore.Record{}
	}

	id := rec.ID()
	if id == "" {
		id = ws.nextID(tx.repo.now().UnixMilli())
	} else if _, existing := indexOf(ws.records, id); existing != nil {
		return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "id '%s' already exists", id).WithDetails(map[string]any{
			"field": "id",
			"value": id,
			"scope": string(ScopeGlobal),
		})
	}
	rec["id"] = id

	stamp := docstore.FormatTime(tx.repo.now())
	rec["createdAt"] = stamp
	rec["updatedAt"] = stamp

	if err := checkUnique(PolicyFor(c), ws.records, rec, ""); err != nil {
		return nil, err
	}

	ws.mutable()
	ws.records = append(ws.records, rec)
	return rec.Clone(), nil
}

// Replace swaps the stored record carrying rec's id for rec. createdAt is kept
// from the stored record and updatedAt is stamped.
func (tx *Tx) Replace(c enums.Collection, rec docstore.Record) (docstore.Record, error) {
	ws, err := tx.set(c)
	if err != nil {
		return nil, err
	}
	id := rec.ID()
	idx, existing := indexOf(ws.records, id)
	if existing == nil {
		return nil, notFound(c, id)
	}

	next := rec.Clone()
	if created, ok := existing["createdAt"]; ok {
		next["createdAt"] = created
	}
	next["updatedAt"] = docstore.FormatTime(tx.repo.now())

	if err := checkUnique(PolicyFor(c), ws.records, next, id); err != nil {
		return nil, err
	}

	ws.mutable()
	ws.records[idx] = next
	return next.Clone(), nil
}

// Update merges patch onto the stored record. The id cannot change.
func (tx *Tx) Update(c enums.Collection, id string, patch docstore.Record) (docstore.Record, error) {
	current, err := tx.Get(c, id)
	if err != nil {
		return nil, err
	}
	for field, value := range patch.Clone() {
		if field == "id" || field == "createdAt" {
			continue
		}
		current[field] = value
	}
	return tx.Replace(c, current)
}

// Remove deletes the record with id. Delete guards are the caller's concern.
func (tx *Tx) Remove(c enums.Collection, id string) error {
	ws, err := tx.set(c)
	if err != nil {
		return err
	}
	idx, existing := indexOf(ws.records, id)
	if existing == nil {
		return notFound(c, id)
	}
	ws.mutable()
	ws.records = append(ws.records[:idx], ws.records[idx+1:]...)
	return nil
}

// nextID hands out millisecond ids that only move forward and never collide
// within the collection.
func (ws *workingSet) nextID(nowMillis int64) string {
	id := nowMillis
	if id <= ws.lastID {
		id = ws.lastID + 1
	}
	for {
		candidate := strconv.FormatInt(id, 10)
		if _, existing := indexOf(ws.records, candidate); existing == nil {
			ws.lastID = id
			return candidate
		}
		id++
	}
}

// CheckUnique runs the uniqueness policy of c against rec without writing.
// A record carrying the id of a stored record is compared as an update.
func (tx *Tx) CheckUnique(c enums.Collection, rec docstore.Record) error {
	ws, err := tx.set(c)
	if err != nil {
		return err
	}
	return checkUnique(PolicyFor(c), ws.records, rec, rec.ID())
}
