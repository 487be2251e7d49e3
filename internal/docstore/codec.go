package docstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Load outcomes reported to metrics and logs.
const (
	outcomeRepaired      = "repaired"
	outcomeReinitialized = "reinitialized"
	outcomeNormalized    = "normalized"
)

const defaultRepairAttempts = 64

// Encode renders the document deterministically: indented, map keys sorted.
func Encode(doc Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses a stored document. Numbers are kept as json.Number so they
// round-trip without precision loss. A collection whose value is not a list is
// reset and reported through the changed flag.
func Decode(data []byte) (doc Document, changed bool, err error) {
	doc, changed, _, err = decode(data)
	return doc, changed, err
}

func decode(data []byte) (Document, bool, []DroppedRecord, error) {
	var raw map[string]json.RawMessage
	if err := unmarshalStrict(data, &raw); err != nil {
		return nil, false, nil, err
	}
	if raw == nil {
		return nil, false, nil, errors.New("document is not an object")
	}

	var (
		doc     = make(Document, len(raw))
		changed bool
		dropped []DroppedRecord
	)
	for name, body := range raw {
		var records []Record
		if err := unmarshalStrict(body, &records); err != nil {
			doc[name] = []Record{}
			changed = true
			dropped = append(dropped, DroppedRecord{Collection: name, Reason: dropNotList})
			continue
		}
		kept := records[:0]
		for _, rec := range records {
			if rec == nil {
				changed = true
				dropped = append(dropped, DroppedRecord{Collection: name, Reason: dropNotObject})
				continue
			}
			kept = append(kept, rec)
		}
		doc[name] = kept
	}
	normalized, more := doc.normalize()
	return doc, changed || normalized, append(dropped, more...), nil
}

func unmarshalStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if rest := bytes.TrimSpace(data[dec.InputOffset():]); len(rest) > 0 {
		return errors.New("trailing data after document")
	}
	return nil
}

// roundTrip checks that the document survives its own serialization format.
func roundTrip(doc Document) ([]byte, error) {
	data, err := Encode(doc)
	if err != nil {
		return nil, err
	}
	if _, _, err := Decode(data); err != nil {
		return nil, fmt.Errorf("document does not round-trip: %w", err)
	}
	return data, nil
}

// parse decodes data, falling back to bounded repair and finally to an empty
// document. The outcome is empty when the bytes were already a valid document.
func parse(data []byte, attempts int) (Document, string, []DroppedRecord) {
	if len(bytes.TrimSpace(data)) == 0 {
		return NewDocument(), outcomeReinitialized, nil
	}
	doc, changed, dropped, err := decode(data)
	if err == nil {
		if changed {
			return doc, outcomeNormalized, dropped
		}
		return doc, "", nil
	}
	if repaired, dropped, ok := repair(data, attempts); ok {
		return repaired, outcomeRepaired, dropped
	}
	return NewDocument(), outcomeReinitialized, nil
}

// repair walks backwards over closing brackets, trimming everything after each
// candidate and re-balancing unclosed brackets. The first candidate that decodes
// wins. At most attempts candidates are tried.
func repair(data []byte, attempts int) (Document, []DroppedRecord, bool) {
	if attempts <= 0 {
		attempts = defaultRepairAttempts
	}
	tried := 0
	for i := len(data) - 1; i >= 0 && tried < attempts; i-- {
		if data[i] != '}' && data[i] != ']' {
			continue
		}
		tried++
		closers, ok := balance(data[:i+1])
		if !ok {
			continue
		}
		candidate := make([]byte, 0, i+1+len(closers))
		candidate = append(candidate, data[:i+1]...)
		candidate = append(candidate, closers...)
		if doc, _, dropped, err := decode(candidate); err == nil {
			return doc, dropped, true
		}
	}
	return nil, nil, false
}

// balance scans prefix outside of string literals and returns the closers
// needed to terminate every open object and array. It fails when the prefix
// ends inside a string or contains a mismatched closer.
func balance(prefix []byte) ([]byte, bool) {
	var stack []byte
	inString, escaped := false, false
	for _, c := range prefix {
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return nil, false
			}
			stack = stack[:len(stack)-1]
		}
	}
	if inString {
		return nil, false
	}
	closers := make([]byte, len(stack))
	for i := range stack {
		closers[i] = stack[len(stack)-1-i]
	}
	return closers, true
}
