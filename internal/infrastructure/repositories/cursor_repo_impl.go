package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"autodeposit.backend/internal/infrastructure/models"
)

// CursorRepositoryImpl keeps watcher watermarks next to the data they guard.
type CursorRepositoryImpl struct {
	db *gorm.DB
}

func NewCursorRepository(db *gorm.DB) *CursorRepositoryImpl {
	return &CursorRepositoryImpl{db: db}
}

// Load returns "" when the source has never been read.
func (r *CursorRepositoryImpl) Load(ctx context.Context, source string) (string, error) {
	var row models.WatcherCursor
	err := GetDB(ctx, r.db).Where("source = ?", source).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return row.Cursor, nil
}

func (r *CursorRepositoryImpl) Save(ctx context.Context, source, cursor string) error {
	row := &models.WatcherCursor{Source: source, Cursor: cursor, UpdatedAt: time.Now().UTC()}
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source"}},
		DoUpdates: clause.AssignmentColumns([]string{"cursor", "updated_at"}),
	}).Create(row).Error
}
