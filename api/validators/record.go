package validators

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/angelmondragon/hostelhub-backend/internal/docstore"
	pkgerrors "github.com/angelmondragon/hostelhub-backend/pkg/errors"
)

const maxRecordBytes = 1 << 20

// DecodeRecord reads a free-form JSON object. Unknown fields are kept and
// numbers stay json.Number so money values keep their precision.
func DecodeRecord(r *http.Request) (docstore.Record, error) {
	defer func() {
		io.Copy(io.Discard, r.Body)
	}()
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxRecordBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body")
	}
	if len(raw) > maxRecordBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request body too large")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request body required")
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var rec docstore.Record
	if err := decoder.Decode(&rec); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "request body must be a JSON object").
			WithDetails(map[string]any{"error": err.Error()})
	}
	if rec == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request body must be a JSON object")
	}
	return rec, nil
}
