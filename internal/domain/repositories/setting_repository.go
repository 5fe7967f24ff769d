package repositories

import "context"

// SettingRepository is the persisted operator key/value store.
type SettingRepository interface {
	GetAll(ctx context.Context) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
}
