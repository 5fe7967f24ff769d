package repositories

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"autodeposit.backend/internal/domain/entities"
	"autodeposit.backend/internal/infrastructure/models"
)

// SecretSealer encrypts base hashes before they reach the table.
type SecretSealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// BankConfigRepositoryImpl implements BankConfigRepository
type BankConfigRepositoryImpl struct {
	db     *gorm.DB
	sealer SecretSealer
}

func NewBankConfigRepository(db *gorm.DB, sealer SecretSealer) *BankConfigRepositoryImpl {
	return &BankConfigRepositoryImpl{db: db, sealer: sealer}
}

func (r *BankConfigRepositoryImpl) Upsert(ctx context.Context, cfg *entities.BankConfig) error {
	sealed, err := r.sealer.Seal(cfg.BaseHash)
	if err != nil {
		return fmt.Errorf("seal base hash for %s: %w", cfg.Bank, err)
	}
	now := time.Now().UTC()
	cfg.UpdatedAt = now
	m := &models.BankConfig{
		Bank:           cfg.Bank,
		BaseHash:       sealed,
		Codec:          cfg.Codec,
		URLTemplate:    cfg.URLTemplate,
		MinAmountMinor: cfg.MinAmount.Minor(),
		MaxAmountMinor: cfg.MaxAmount.Minor(),
		Enabled:        cfg.Enabled,
		MaxWaitMinutes: cfg.MaxWaitMinutes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "bank"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"base_hash", "codec", "url_template", "min_amount_minor", "max_amount_minor",
			"enabled", "max_wait_minutes", "updated_at",
		}),
	}).Create(m).Error
}

func (r *BankConfigRepositoryImpl) GetByBank(ctx context.Context, bank string) (*entities.BankConfig, error) {
	var m models.BankConfig
	if err := GetDB(ctx, r.db).Where("bank = ?", bank).First(&m).Error; err != nil {
		return nil, notFound("bank config", err)
	}
	return r.toEntity(&m)
}

func (r *BankConfigRepositoryImpl) List(ctx context.Context) ([]*entities.BankConfig, error) {
	var ms []models.BankConfig
	if err := GetDB(ctx, r.db).Order("bank ASC").Find(&ms).Error; err != nil {
		return nil, err
	}
	out := make([]*entities.BankConfig, 0, len(ms))
	for i := range ms {
		cfg, err := r.toEntity(&ms[i])
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

func (r *BankConfigRepositoryImpl) toEntity(m *models.BankConfig) (*entities.BankConfig, error) {
	base, err := r.sealer.Open(m.BaseHash)
	if err != nil {
		return nil, fmt.Errorf("open base hash for %s: %w", m.Bank, err)
	}
	return &entities.BankConfig{
		Bank:           m.Bank,
		BaseHash:       base,
		Codec:          m.Codec,
		URLTemplate:    m.URLTemplate,
		MinAmount:      entities.MoneyFromMinor(m.MinAmountMinor),
		MaxAmount:      entities.MoneyFromMinor(m.MaxAmountMinor),
		Enabled:        m.Enabled,
		MaxWaitMinutes: m.MaxWaitMinutes,
		UpdatedAt:      m.UpdatedAt,
	}, nil
}
