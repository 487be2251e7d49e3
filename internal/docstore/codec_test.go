package docstore

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeKeepsUnknownFieldsAndNumbers(t *testing.T) {
	data := []byte(`{"tenants":[{"id":"1","hostelId":"h1","rent":1200.50,"extra":{"nested":true}}],"custom":[]}`)

	doc, changed, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, changed, "missing known collections are filled in")

	tenant := doc.Collection("tenants")[0]
	assert.Equal(t, json.Number("1200.50"), tenant["rent"])
	assert.Equal(t, map[string]any{"nested": true}, tenant["extra"])
	assert.Contains(t, doc, "custom")
	assert.Contains(t, doc, "hostels")
}

func TestDecodeResetsNonArrayCollection(t *testing.T) {
	doc := NewDocument()
	data, err := Encode(doc)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	raw["rooms"] = map[string]any{"oops": 1}
	broken, err := json.Marshal(raw)
	require.NoError(t, err)

	got, changed, err := Decode(broken)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []Record{}, got["rooms"])
}

func TestDecodeRejectsTrailingData(t *testing.T) {
	_, _, err := Decode([]byte(`{"users":[]}}`))
	assert.Error(t, err)
}

func TestEncodeIsDeterministic(t *testing.T) {
	doc := NewDocument()
	doc["users"] = []Record{{"id": "1", "name": "A", "email": "a@x.com"}}

	first, err := Encode(doc)
	require.NoError(t, err)
	second, err := Encode(doc.Clone())
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestParseRepairsTruncatedDocument(t *testing.T) {
	doc := NewDocument()
	doc["rooms"] = []Record{{"id": "1", "roomNumber": "101"}, {"id": "2", "roomNumber": "102"}}
	data, err := Encode(doc)
	require.NoError(t, err)

	cut := data[:len(data)-20]
	got, outcome, _ := parse(cut, 0)
	assert.Equal(t, outcomeRepaired, outcome)
	require.NotEmpty(t, got["rooms"])
	assert.Equal(t, "1", got["rooms"][0].ID())
	assert.NoError(t, got.Validate())
}

func TestParseRepairsTrailingGarbage(t *testing.T) {
	got, outcome, _ := parse([]byte(`{"users":[{"id":"7","email":"a@b.c"}]}}]garbage`), 0)
	assert.Equal(t, outcomeRepaired, outcome)
	require.Len(t, got["users"], 1)
	assert.Equal(t, "7", got["users"][0].ID())
}

func TestParseReinitializesGarbage(t *testing.T) {
	got, outcome, _ := parse([]byte("not json at all"), 0)
	assert.Equal(t, outcomeReinitialized, outcome)
	assert.Equal(t, NewDocument(), got)

	got, outcome, _ = parse([]byte("   "), 0)
	assert.Equal(t, outcomeReinitialized, outcome)
	assert.Equal(t, NewDocument(), got)
}

func TestParseValidDocumentReportsNoOutcome(t *testing.T) {
	data, err := Encode(NewDocument())
	require.NoError(t, err)

	_, outcome, _ := parse(data, 0)
	assert.Empty(t, outcome)
}

func TestBalanceIgnoresBracketsInStrings(t *testing.T) {
	closers, ok := balance([]byte(`{"a":[{"b":"}]{["}`))
	require.True(t, ok)
	assert.Equal(t, "]}", string(closers))

	_, ok = balance([]byte(`{"a":"unterminated`))
	assert.False(t, ok)

	_, ok = balance([]byte(`{"a":[}`))
	assert.False(t, ok)
}

func TestNormalizeDropsRecordsWithoutUsableID(t *testing.T) {
	doc := Document{"notices": []Record{{"id": "1"}, {"title": "no id"}, {"id": "1", "title": "dup"}}}

	changed, dropped := doc.normalize()
	assert.True(t, changed)
	require.Len(t, doc["notices"], 1)
	assert.NoError(t, doc.Validate())
	assert.ElementsMatch(t, []DroppedRecord{
		{Collection: "notices", Reason: dropMissingID},
		{Collection: "notices", ID: "1", Reason: dropDuplicateID},
	}, dropped)
}

func TestFormatAndParseTime(t *testing.T) {
	ts := time.Date(2026, 3, 1, 10, 4, 5, 123000000, time.FixedZone("IST", 19800))
	formatted := FormatTime(ts)
	assert.Equal(t, "2026-03-01T04:34:05.123Z", formatted)

	parsed, ok := ParseTime(formatted)
	require.True(t, ok)
	assert.True(t, parsed.Equal(ts))

	day, ok := Record{"due": "2026-04-01"}.Time("due")
	require.True(t, ok)
	assert.Equal(t, 2026, day.Year())

	_, ok = ParseTime("soon")
	assert.False(t, ok)
}
