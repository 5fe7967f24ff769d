package usecases

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"

	"autodeposit.backend/internal/domain/entities"
	domainerrors "autodeposit.backend/internal/domain/errors"
	"autodeposit.backend/internal/domain/repositories"
	"autodeposit.backend/internal/paylink"
	"autodeposit.backend/pkg/logger"
)

// UpsertBankConfigInput is an operator update of one bank. Nil pointers keep
// the stored value.
type UpsertBankConfigInput struct {
	Bank           string  `json:"-"`
	BaseHash       *string `json:"baseHash"`
	Codec          *string `json:"codec"`
	URLTemplate    *string `json:"urlTemplate"`
	MinAmount      *string `json:"minAmount"`
	MaxAmount      *string `json:"maxAmount"`
	Enabled        *bool   `json:"enabled"`
	MaxWaitMinutes *int    `json:"maxWaitMinutes"`
}

// BankView is a bank configuration as operators see it; the base hash
// itself never leaves the service.
type BankView struct {
	*entities.BankConfig
	HasBaseHash bool                `json:"hasBaseHash"`
	Scheme      *paylink.SchemeInfo `json:"scheme,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// BankConfigUsecase owns bank configuration and keeps the link registry in
// step with the table.
type BankConfigUsecase struct {
	repo             repositories.BankConfigRepository
	registry         *paylink.Registry
	builder          *paylink.Builder
	defaultTemplates map[string]string
}

func NewBankConfigUsecase(repo repositories.BankConfigRepository, registry *paylink.Registry, defaultTemplates map[string]string) *BankConfigUsecase {
	return &BankConfigUsecase{
		repo:             repo,
		registry:         registry,
		builder:          paylink.NewBuilder(registry),
		defaultTemplates: defaultTemplates,
	}
}

// Load fills the registry from the table. A broken bank is logged and left
// out; the others still load.
func (u *BankConfigUsecase) Load(ctx context.Context) (map[string]error, error) {
	cfgs, err := u.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	failed := map[string]error{}
	for _, cfg := range cfgs {
		u.applyDefaults(cfg)
		if err := u.registry.Upsert(cfg); err != nil {
			failed[cfg.Bank] = err
			logger.Error(ctx, "Bank configuration rejected", zap.String("bank", cfg.Bank), zap.Error(err))
		}
	}
	return failed, nil
}

func (u *BankConfigUsecase) Upsert(ctx context.Context, in UpsertBankConfigInput) (*BankView, error) {
	bank := paylink.NormalizeBank(in.Bank)
	if bank == "" {
		return nil, domainerrors.Validation("bank identifier is empty")
	}

	cfg, err := u.repo.GetByBank(ctx, bank)
	if errors.Is(err, domainerrors.ErrNotFound) {
		cfg = &entities.BankConfig{Bank: bank}
	} else if err != nil {
		return nil, err
	}

	if in.BaseHash != nil {
		cfg.BaseHash = *in.BaseHash
	}
	if in.Codec != nil {
		cfg.Codec = *in.Codec
	}
	if in.URLTemplate != nil {
		cfg.URLTemplate = *in.URLTemplate
	}
	if in.MinAmount != nil {
		if cfg.MinAmount, err = parseLimit("minAmount", *in.MinAmount); err != nil {
			return nil, err
		}
	}
	if in.MaxAmount != nil {
		if cfg.MaxAmount, err = parseLimit("maxAmount", *in.MaxAmount); err != nil {
			return nil, err
		}
	}
	if in.Enabled != nil {
		cfg.Enabled = *in.Enabled
	}
	if in.MaxWaitMinutes != nil {
		if *in.MaxWaitMinutes < 0 {
			return nil, domainerrors.Validation("maxWaitMinutes must not be negative")
		}
		cfg.MaxWaitMinutes = null.NewInt(*in.MaxWaitMinutes, *in.MaxWaitMinutes > 0)
	}
	u.applyDefaults(cfg)

	if cfg.Enabled && cfg.BaseHash == "" {
		return nil, domainerrors.Configuration("bank %s: an enabled bank needs a base hash", bank)
	}
	if err := u.registry.Check(cfg); err != nil {
		return nil, err
	}
	if err := u.repo.Upsert(ctx, cfg); err != nil {
		return nil, err
	}
	if err := u.registry.Upsert(cfg); err != nil {
		return nil, err
	}

	logger.Info(ctx, "Bank configuration updated",
		zap.String("bank", bank),
		zap.Bool("enabled", cfg.Enabled),
		zap.String("codec", cfg.Codec),
	)
	return u.view(cfg), nil
}

func (u *BankConfigUsecase) List(ctx context.Context) ([]*BankView, error) {
	cfgs, err := u.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(cfgs, func(i, j int) bool { return cfgs[i].Bank < cfgs[j].Bank })
	out := make([]*BankView, 0, len(cfgs))
	for _, cfg := range cfgs {
		u.applyDefaults(cfg)
		out = append(out, u.view(cfg))
	}
	return out, nil
}

// BaseHash returns the plain base hash for link generation.
func (u *BankConfigUsecase) BaseHash(ctx context.Context, bank string) (string, error) {
	cfg, err := u.repo.GetByBank(ctx, paylink.NormalizeBank(bank))
	if errors.Is(err, domainerrors.ErrNotFound) {
		return "", fmt.Errorf("%s: %w", bank, domainerrors.ErrBankNotConfigured)
	}
	if err != nil {
		return "", err
	}
	return cfg.BaseHash, nil
}

func (u *BankConfigUsecase) applyDefaults(cfg *entities.BankConfig) {
	if cfg.URLTemplate == "" {
		cfg.URLTemplate = u.defaultTemplates[cfg.Bank]
	}
}

func (u *BankConfigUsecase) view(cfg *entities.BankConfig) *BankView {
	v := &BankView{BankConfig: cfg, HasBaseHash: cfg.HasBaseHash()}
	if info, err := u.builder.Describe(cfg.Bank); err == nil {
		v.Scheme = &info
	} else if checkErr := u.registry.Check(cfg); checkErr != nil {
		v.Error = checkErr.Error()
	}
	return v
}

func parseLimit(name, value string) (entities.Money, error) {
	if value == "" {
		return entities.Zero, nil
	}
	m, err := entities.ParseMoney(value)
	if err != nil || m.Cmp(entities.Zero) < 0 {
		return entities.Zero, domainerrors.Validation("%s must be a non-negative amount", name)
	}
	return m, nil
}
