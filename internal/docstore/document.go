package docstore

import (
	"fmt"
	"sort"
	"strings"

	"github.com/angelmondragon/hostelhub-backend/pkg/enums"
)

// Record is one entity inside a collection. Unknown fields pass through untouched.
type Record map[string]any

// ID returns the record identifier as a string.
func (r Record) ID() string {
	return r.String("id")
}

// String returns the field value rendered as a string, or "" when absent.
func (r Record) String(field string) string {
	v, ok := r[field]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// Bool reports whether the field holds a truthy boolean or "true".
func (r Record) Bool(field string) bool {
	switch v := r[field].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return false
}

// HostelID returns the tenancy partition key of the record.
func (r Record) HostelID() string {
	return r.String("hostelId")
}

// Clone returns a deep copy so callers can mutate freely.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return cloneValue(map[string]any(r)).(map[string]any)
}

// Document is the whole store: collection name to ordered records.
type Document map[string][]Record

// NewDocument returns an empty-but-valid document holding every known collection.
func NewDocument() Document {
	doc := make(Document, len(enums.Collections()))
	for _, c := range enums.Collections() {
		doc[c.String()] = []Record{}
	}
	return doc
}

// Collection returns the records stored under name.
func (d Document) Collection(name string) []Record {
	return d[name]
}

// Clone deep copies every collection.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for name, records := range d {
		out[name] = cloneRecords(records)
	}
	return out
}

// Names returns the collection names in sorted order.
func (d Document) Names() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DroppedRecord identifies a stored record discarded while loading.
type DroppedRecord struct {
	Collection string
	ID         string
	Reason     string
}

const (
	dropMissingID   = "missing id"
	dropDuplicateID = "duplicate id"
	dropNotObject   = "not an object"
	dropNotList     = "collection is not a list"
)

// normalize fills missing known collections, replaces nil lists and drops
// records without an id or repeating an earlier id. It reports whether
// anything changed along with every dropped record.
func (d Document) normalize() (bool, []DroppedRecord) {
	changed := false
	var dropped []DroppedRecord
	for _, c := range enums.Collections() {
		if records, ok := d[c.String()]; !ok || records == nil {
			d[c.String()] = []Record{}
			changed = true
		}
	}
	for name, records := range d {
		if records == nil {
			d[name] = []Record{}
			changed = true
			continue
		}
		seen := make(map[string]struct{}, len(records))
		kept := records[:0]
		for _, rec := range records {
			id := rec.ID()
			if rec == nil || id == "" {
				changed = true
				dropped = append(dropped, DroppedRecord{Collection: name, Reason: dropMissingID})
				continue
			}
			if _, dup := seen[id]; dup {
				changed = true
				dropped = append(dropped, DroppedRecord{Collection: name, ID: id, Reason: dropDuplicateID})
				continue
			}
			seen[id] = struct{}{}
			kept = append(kept, rec)
		}
		d[name] = kept
	}
	return changed, dropped
}

// Validate checks the structural invariants required before a write is admitted.
func (d Document) Validate() error {
	if d == nil {
		return fmt.Errorf("document is nil")
	}
	for _, c := range enums.Collections() {
		if _, ok := d[c.String()]; !ok {
			return fmt.Errorf("document missing collection %q", c)
		}
	}
	for name, records := range d {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("document has an unnamed collection")
		}
		seen := make(map[string]struct{}, len(records))
		for i, rec := range records {
			if rec == nil {
				return fmt.Errorf("%s[%d] is null", name, i)
			}
			id := rec.ID()
			if id == "" {
				return fmt.Errorf("%s[%d] has no id", name, i)
			}
			if _, dup := seen[id]; dup {
				return fmt.Errorf("%s has duplicate id %q", name, id)
			}
			seen[id] = struct{}{}
		}
	}
	return nil
}

func cloneRecords(records []Record) []Record {
	out := make([]Record, len(records))
	for i, rec := range records {
		out[i] = rec.Clone()
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case Record:
		return Record(cloneValue(map[string]any(val)).(map[string]any))
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = item
		}
		return out
	default:
		return val
	}
}
