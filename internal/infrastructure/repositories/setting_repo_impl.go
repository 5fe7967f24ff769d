package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"autodeposit.backend/internal/infrastructure/models"
)

// SettingRepositoryImpl implements SettingRepository
type SettingRepositoryImpl struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) *SettingRepositoryImpl {
	return &SettingRepositoryImpl{db: db}
}

func (r *SettingRepositoryImpl) GetAll(ctx context.Context) (map[string]string, error) {
	var rows []models.Setting
	if err := GetDB(ctx, r.db).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}

func (r *SettingRepositoryImpl) Set(ctx context.Context, key, value string) error {
	row := &models.Setting{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(row).Error
}
