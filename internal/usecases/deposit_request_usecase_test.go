package usecases_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autodeposit.backend/internal/domain/entities"
	domainerrors "autodeposit.backend/internal/domain/errors"
	"autodeposit.backend/internal/infrastructure/repositories"
	"autodeposit.backend/internal/paylink"
	"autodeposit.backend/internal/usecases"
)

func newDepositRequestUsecase(t *testing.T, env *testEnv) *usecases.DepositRequestUsecase {
	t.Helper()
	banks, registry := newBankConfigUsecase(t, env)
	_, err := banks.Upsert(context.Background(), usecases.UpsertBankConfigInput{
		Bank:      "bakai",
		BaseHash:  ptr("base123"),
		MinAmount: ptr("10"),
		MaxAmount: ptr("50000"),
		Enabled:   ptr(true),
	})
	require.NoError(t, err)
	_, err = banks.Upsert(context.Background(), usecases.UpsertBankConfigInput{
		Bank:        "kicb",
		BaseHash:    ptr("base123"),
		URLTemplate: ptr("https://kicb.net/p/{hash}"),
		Enabled:     ptr(false),
	})
	require.NoError(t, err)
	return usecases.NewDepositRequestUsecase(env.requests, banks, paylink.NewBuilder(registry), repositories.NewUnitOfWork(env.db))
}

func TestDepositRequestUsecase_CreateBuildsLink(t *testing.T) {
	env := newTestEnv(t)
	uc := newDepositRequestUsecase(t, env)
	ctx := context.Background()

	req, err := uc.Create(ctx, usecases.CreateDepositRequestInput{
		RequesterID: "player-9",
		Bank:        "Bakai",
		Amount:      "750.00",
		Account:     " acc-1 ",
	})
	require.NoError(t, err)
	assert.Equal(t, entities.DepositRequestStatusPending, req.Status)
	assert.Equal(t, "bakai", req.Bank)
	assert.Equal(t, "acc-1", req.Account)
	assert.Equal(t, uuid.Version(7), req.ID.Version())
	assert.True(t, strings.HasPrefix(req.PaymentURL, "https://bakai24.app/pay/"))
	assert.Equal(t, string(paylink.CodecTagged), req.Codec)

	amount, ok := paylink.NewBuilder(mustRegistry(t, env)).DecodeHash("bakai", req.PaymentHash)
	require.True(t, ok)
	assert.Equal(t, "750.00", amount.String())

	got, err := uc.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.PaymentURL, got.PaymentURL)
}

func mustRegistry(t *testing.T, env *testEnv) *paylink.Registry {
	t.Helper()
	cfgs, err := env.banks.List(context.Background())
	require.NoError(t, err)
	r, _ := paylink.NewRegistry(cfgs, nil)
	return r
}

func TestDepositRequestUsecase_CreateRejects(t *testing.T) {
	env := newTestEnv(t)
	uc := newDepositRequestUsecase(t, env)
	ctx := context.Background()

	cases := []struct {
		in   usecases.CreateDepositRequestInput
		want error
	}{
		{usecases.CreateDepositRequestInput{RequesterID: "", Bank: "bakai", Amount: "10"}, domainerrors.ErrValidation},
		{usecases.CreateDepositRequestInput{RequesterID: "u", Bank: "bakai", Amount: "ten"}, domainerrors.ErrInvalidAmount},
		{usecases.CreateDepositRequestInput{RequesterID: "u", Bank: "bakai", Amount: "5"}, domainerrors.ErrAmountOutOfRange},
		{usecases.CreateDepositRequestInput{RequesterID: "u", Bank: "bakai", Amount: "60000"}, domainerrors.ErrAmountOutOfRange},
		{usecases.CreateDepositRequestInput{RequesterID: "u", Bank: "nobank", Amount: "10"}, domainerrors.ErrBankNotConfigured},
		{usecases.CreateDepositRequestInput{RequesterID: "u", Bank: "kicb", Amount: "10"}, domainerrors.ErrBankDisabled},
	}
	for _, tc := range cases {
		_, err := uc.Create(ctx, tc.in)
		assert.ErrorIs(t, err, tc.want, "%+v", tc.in)
	}

	var count int64
	require.NoError(t, env.db.Table("deposit_requests").Count(&count).Error)
	assert.Zero(t, count)
}

func TestDepositRequestUsecase_ExpireAndReject(t *testing.T) {
	env := newTestEnv(t)
	uc := newDepositRequestUsecase(t, env)
	ctx := context.Background()

	a := env.addRequest(t, "bakai", "100.00", t0)
	b := env.addRequest(t, "bakai", "200.00", t0)

	expired, err := uc.Expire(ctx, a.ID, "customer gave up")
	require.NoError(t, err)
	assert.Equal(t, entities.DepositRequestStatusExpired, expired.Status)
	assert.Equal(t, "customer gave up", expired.StatusReason.String)

	rejected, err := uc.Reject(ctx, b.ID, "fraud")
	require.NoError(t, err)
	assert.Equal(t, entities.DepositRequestStatusRejected, rejected.Status)

	_, err = uc.Reject(ctx, a.ID, "again")
	assert.ErrorIs(t, err, domainerrors.ErrRequestNotPending)
	assert.ErrorIs(t, err, domainerrors.ErrConflict)
}

func TestDepositRequestUsecase_ExpireStale(t *testing.T) {
	env := newTestEnv(t)
	uc := newDepositRequestUsecase(t, env)
	ctx := context.Background()

	now := time.Now().UTC()
	old1 := env.addRequest(t, "bakai", "10.00", now.Add(-48*time.Hour))
	old2 := env.addRequest(t, "bakai", "11.00", now.Add(-30*time.Hour))
	old3 := env.addRequest(t, "bakai", "12.00", now.Add(-25*time.Hour))
	fresh := env.addRequest(t, "bakai", "13.00", now.Add(-time.Hour))

	stale, total, err := uc.ListStale(ctx, 24*time.Hour, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, stale, 3)

	n, err := uc.ExpireStale(ctx, 24*time.Hour, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	for _, r := range []*entities.DepositRequest{old1, old2, old3} {
		assert.Equal(t, entities.DepositRequestStatusExpired, env.status(t, r.ID))
	}
	assert.Equal(t, entities.DepositRequestStatusPending, env.status(t, fresh.ID))

	n, err = uc.ExpireStale(ctx, 24*time.Hour, 2)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = uc.ExpireStale(ctx, 0, 2)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, _, err = uc.ListStale(ctx, -time.Second, 10, 0)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}
