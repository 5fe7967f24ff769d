package repositories

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"autodeposit.backend/internal/domain/entities"
	domainerrors "autodeposit.backend/internal/domain/errors"
	"autodeposit.backend/internal/infrastructure/models"
	"autodeposit.backend/pkg/secretbox"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func newSealer(t *testing.T) *secretbox.Sealer {
	t.Helper()
	s, err := secretbox.New(testKeyHex)
	require.NoError(t, err)
	return s
}

func TestBankConfigRepository_UpsertEncryptsAtRest(t *testing.T) {
	db := newMigratedDB(t)
	repo := NewBankConfigRepository(db, newSealer(t))
	ctx := context.Background()

	cfg := &entities.BankConfig{
		Bank:        "bakai",
		BaseHash:    "base123",
		Codec:       "tagged",
		URLTemplate: "https://bakai.example/pay/{hash}",
		MinAmount:   entities.MustMoney("1.00"),
		MaxAmount:   entities.MustMoney("100000.00"),
		Enabled:     true,
	}
	require.NoError(t, repo.Upsert(ctx, cfg))

	var row models.BankConfig
	require.NoError(t, db.Where("bank = ?", "bakai").First(&row).Error)
	require.NotContains(t, row.BaseHash, "base123")
	require.Equal(t, 4, strings.Count(row.BaseHash, "."))

	got, err := repo.GetByBank(ctx, "bakai")
	require.NoError(t, err)
	require.Equal(t, "base123", got.BaseHash)
	require.Equal(t, "100000.00", got.MaxAmount.String())

	cfg.Enabled = false
	cfg.MaxWaitMinutes = null.IntFrom(30)
	require.NoError(t, repo.Upsert(ctx, cfg))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.False(t, all[0].Enabled)
	wait, ok := all[0].MaxWait()
	require.True(t, ok)
	require.Equal(t, 30.0, wait.Minutes())

	_, err = repo.GetByBank(ctx, "optima")
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestBankConfigRepository_WrongKeyFailsToOpen(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()
	require.NoError(t, NewBankConfigRepository(db, newSealer(t)).Upsert(ctx, &entities.BankConfig{
		Bank: "bakai", BaseHash: "base123", URLTemplate: "https://x/{hash}", Enabled: true,
	}))

	other, err := secretbox.New(strings.Repeat("ab", 32))
	require.NoError(t, err)
	_, err = NewBankConfigRepository(db, other).List(ctx)
	require.ErrorIs(t, err, secretbox.ErrCorruptSecret)
}
