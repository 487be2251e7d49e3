package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

type rowInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// EventRow is the analytics shape of one event.
type EventRow struct {
	EventType  string    `bigquery:"event_type"`
	HostelID   string    `bigquery:"hostel_id"`
	ActorID    string    `bigquery:"actor_id"`
	Data       string    `bigquery:"data"`
	OccurredAt time.Time `bigquery:"occurred_at"`
}

// BigQuerySink streams every event into an analytics table.
type BigQuerySink struct {
	inserter rowInserter
	table    string
}

func NewBigQuerySink(inserter rowInserter, table string) (*BigQuerySink, error) {
	if inserter == nil {
		return nil, errors.New("bigquery inserter is required")
	}
	if table == "" {
		return nil, errors.New("bigquery table is required")
	}
	return &BigQuerySink{inserter: inserter, table: table}, nil
}

func (s *BigQuerySink) Name() string { return "bigquery" }

func (s *BigQuerySink) Export(ctx context.Context, e Event) error {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return err
	}
	row := EventRow{
		EventType:  e.Type.String(),
		HostelID:   e.HostelID,
		ActorID:    e.ActorID,
		Data:       string(data),
		OccurredAt: e.At.UTC(),
	}
	return s.inserter.InsertRows(ctx, s.table, []any{row})
}
