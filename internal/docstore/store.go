package docstore

import (
	"context"

	"github.com/angelmondragon/hostelhub-backend/pkg/logger"
)

// Store persists the whole document. Load never fails because of corrupt
// content: it repairs or reinitializes instead and only reports I/O errors.
type Store interface {
	Load(ctx context.Context) (Document, error)
	Save(ctx context.Context, doc Document) error
}

// Pinger exposes the readiness check of a backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// warnDropped logs every record discarded while loading the document.
func warnDropped(ctx context.Context, logg *logger.Logger, dropped []DroppedRecord) {
	for _, d := range dropped {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"collection": d.Collection,
			"record_id":  d.ID,
			"reason":     d.Reason,
		}), "record dropped on load")
	}
}
