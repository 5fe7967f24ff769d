package repositories

import (
	"context"

	"autodeposit.backend/internal/domain/entities"
)

// NotificationSource is the hand-off point with the external transport.
// Fetch returns records strictly after cursor, in order.
type NotificationSource interface {
	Name() string
	Fetch(ctx context.Context, cursor string, limit int) ([]entities.RawNotification, error)
}

// CursorStore persists the watcher watermark per source.
type CursorStore interface {
	Load(ctx context.Context, source string) (string, error)
	Save(ctx context.Context, source, cursor string) error
}
