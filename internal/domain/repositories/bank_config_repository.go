package repositories

import (
	"context"

	"autodeposit.backend/internal/domain/entities"
)

// BankConfigRepository stores per-bank payment hash configuration. Base hashes
// are returned in plain text; implementations encrypt them at rest.
type BankConfigRepository interface {
	Upsert(ctx context.Context, cfg *entities.BankConfig) error
	GetByBank(ctx context.Context, bank string) (*entities.BankConfig, error)
	List(ctx context.Context) ([]*entities.BankConfig, error)
}
