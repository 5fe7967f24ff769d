package usecases

import (
	"context"
	"strconv"
	"strings"
	"time"

	"autodeposit.backend/internal/domain/entities"
	domainerrors "autodeposit.backend/internal/domain/errors"
	"autodeposit.backend/internal/domain/repositories"
)

// SettingsUsecase layers operator overrides from the settings table on top
// of the environment defaults.
type SettingsUsecase struct {
	repo     repositories.SettingRepository
	defaults entities.ReconcileSettings
}

func NewSettingsUsecase(repo repositories.SettingRepository, defaults entities.ReconcileSettings) *SettingsUsecase {
	return &SettingsUsecase{repo: repo, defaults: defaults}
}

// SettingsView is what operators see: the raw overrides and the values in force.
type SettingsView struct {
	Overrides map[string]string          `json:"overrides"`
	Effective entities.ReconcileSettings `json:"effective"`
}

func (u *SettingsUsecase) Defaults() entities.ReconcileSettings {
	return u.defaults
}

// Effective returns the settings in force right now.
func (u *SettingsUsecase) Effective(ctx context.Context) (entities.ReconcileSettings, error) {
	kv, err := u.repo.GetAll(ctx)
	if err != nil {
		return u.defaults, domainerrors.Transient(err)
	}
	return u.defaults.Apply(kv), nil
}

func (u *SettingsUsecase) View(ctx context.Context) (*SettingsView, error) {
	kv, err := u.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return &SettingsView{Overrides: kv, Effective: u.defaults.Apply(kv)}, nil
}

// Set validates and persists one override.
func (u *SettingsUsecase) Set(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if !entities.KnownSettings[key] {
		return domainerrors.Validation("unknown setting %q", key)
	}
	if err := validateSetting(key, value); err != nil {
		return err
	}
	return u.repo.Set(ctx, key, value)
}

func validateSetting(key, value string) error {
	switch key {
	case entities.SettingAutodepositEnabled:
		if _, err := strconv.ParseBool(value); err != nil {
			return domainerrors.Validation("%s must be a boolean", key)
		}
	case entities.SettingAmountTolerance:
		m, err := entities.ParseMoney(value)
		if err != nil || m.Cmp(entities.Zero) < 0 {
			return domainerrors.Validation("%s must be a non-negative amount", key)
		}
	default:
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return domainerrors.Validation("%s must be a positive duration", key)
		}
	}
	return nil
}
