package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"autodeposit.backend/internal/domain/entities"
	domainerrors "autodeposit.backend/internal/domain/errors"
	domainRepos "autodeposit.backend/internal/domain/repositories"
)

var baseTime = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newDepositRequest(bank, amount string, createdAt time.Time) *entities.DepositRequest {
	return &entities.DepositRequest{
		ID:          uuid.New(),
		RequesterID: "user-1",
		Bank:        bank,
		Amount:      entities.MustMoney(amount),
		PaymentHash: "hash",
		PaymentURL:  "https://pay.example/hash",
		Codec:       "tagged",
		Status:      entities.DepositRequestStatusPending,
		CreatedAt:   createdAt,
	}
}

func TestDepositRequestRepository_CreateAndGet(t *testing.T) {
	repo := NewDepositRequestRepository(newMigratedDB(t))
	ctx := context.Background()

	req := newDepositRequest("bakai", "750.00", baseTime)
	require.NoError(t, repo.Create(ctx, req))

	got, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	require.Equal(t, "750.00", got.Amount.String())
	require.Equal(t, entities.DepositRequestStatusPending, got.Status)
	require.True(t, got.CreatedAt.Equal(baseTime))
	require.Equal(t, "https://pay.example/hash", got.PaymentURL)

	_, err = repo.GetByID(ctx, uuid.New())
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestDepositRequestRepository_FindCandidatesOrderAndFilters(t *testing.T) {
	repo := NewDepositRequestRepository(newMigratedDB(t))
	ctx := context.Background()

	second := newDepositRequest("bakai", "100.00", baseTime.Add(2*time.Minute))
	first := newDepositRequest("bakai", "100.00", baseTime.Add(time.Minute))
	otherBank := newDepositRequest("mbank", "100.00", baseTime)
	tooBig := newDepositRequest("bakai", "100.02", baseTime)
	tooLate := newDepositRequest("bakai", "100.00", baseTime.Add(time.Hour))
	done := newDepositRequest("bakai", "100.00", baseTime)
	for _, r := range []*entities.DepositRequest{second, first, otherBank, tooBig, tooLate, done} {
		require.NoError(t, repo.Create(ctx, r))
	}
	require.NoError(t, repo.Transition(ctx, entities.StatusTransition{
		RequestID: done.ID, To: entities.DepositRequestStatusExpired, At: baseTime,
	}))

	got, err := repo.FindCandidates(ctx, domainRepos.CandidateQuery{
		Bank:          "bakai",
		MinAmount:     entities.MustMoney("99.99"),
		MaxAmount:     entities.MustMoney("100.01"),
		CreatedAfter:  baseTime.Add(-time.Hour),
		CreatedBefore: baseTime.Add(10 * time.Minute),
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, first.ID, got[0].ID)
	require.Equal(t, second.ID, got[1].ID)

	limited, err := repo.FindCandidates(ctx, domainRepos.CandidateQuery{
		Bank:          "bakai",
		MinAmount:     entities.MustMoney("100.00"),
		MaxAmount:     entities.MustMoney("100.00"),
		CreatedBefore: baseTime.Add(10 * time.Minute),
		Limit:         1,
	})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	require.Equal(t, first.ID, limited[0].ID)
}

func TestDepositRequestRepository_TransitionIsCompareAndSet(t *testing.T) {
	repo := NewDepositRequestRepository(newMigratedDB(t))
	ctx := context.Background()

	req := newDepositRequest("bakai", "10.00", baseTime)
	require.NoError(t, repo.Create(ctx, req))

	done := baseTime.Add(5 * time.Minute)
	require.NoError(t, repo.Transition(ctx, entities.StatusTransition{
		RequestID: req.ID, To: entities.DepositRequestStatusCompleted, At: done,
	}))

	got, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	require.Equal(t, entities.DepositRequestStatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	require.True(t, got.CompletedAt.Equal(done))

	err = repo.Transition(ctx, entities.StatusTransition{
		RequestID: req.ID, To: entities.DepositRequestStatusExpired, At: done,
	})
	require.ErrorIs(t, err, domainerrors.ErrRequestNotPending)

	err = repo.Transition(ctx, entities.StatusTransition{
		RequestID: uuid.New(), To: entities.DepositRequestStatusExpired, At: done,
	})
	require.ErrorIs(t, err, domainerrors.ErrNotFound)

	err = repo.Transition(ctx, entities.StatusTransition{
		RequestID: req.ID, To: entities.DepositRequestStatusPending, At: done,
	})
	require.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestDepositRequestRepository_TransitionKeepsReason(t *testing.T) {
	repo := NewDepositRequestRepository(newMigratedDB(t))
	ctx := context.Background()

	req := newDepositRequest("bakai", "10.00", baseTime)
	require.NoError(t, repo.Create(ctx, req))
	require.NoError(t, repo.Transition(ctx, entities.StatusTransition{
		RequestID: req.ID, To: entities.DepositRequestStatusRejected, Reason: "duplicate deposit", At: baseTime,
	}))

	got, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	require.Equal(t, "duplicate deposit", got.StatusReason.String)
	require.Nil(t, got.CompletedAt)
}

func TestDepositRequestRepository_ListPendingOlderThan(t *testing.T) {
	repo := NewDepositRequestRepository(newMigratedDB(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, newDepositRequest("bakai", "5.00", baseTime.Add(time.Duration(i)*time.Minute))))
	}
	require.NoError(t, repo.Create(ctx, newDepositRequest("bakai", "5.00", baseTime.Add(time.Hour))))

	items, total, err := repo.ListPendingOlderThan(ctx, baseTime.Add(30*time.Minute), 2, 0)
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, items, 2)
	require.True(t, items[0].CreatedAt.Before(items[1].CreatedAt))

	items, _, err = repo.ListPendingOlderThan(ctx, baseTime.Add(30*time.Minute), 2, 2)
	require.NoError(t, err)
	require.Len(t, items, 1)
}
