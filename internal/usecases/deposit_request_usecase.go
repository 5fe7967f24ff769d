package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"autodeposit.backend/internal/domain/entities"
	domainerrors "autodeposit.backend/internal/domain/errors"
	"autodeposit.backend/internal/domain/repositories"
	"autodeposit.backend/internal/paylink"
	"autodeposit.backend/pkg/logger"
	"autodeposit.backend/pkg/metrics"
	"autodeposit.backend/pkg/utils"
)

// BaseHashSource resolves a bank's base hash at link-generation time.
type BaseHashSource interface {
	BaseHash(ctx context.Context, bank string) (string, error)
}

// LinkBuilder builds customer-facing payment links.
type LinkBuilder interface {
	Build(bankID string, amount entities.Money, baseHash string) (*paylink.Link, error)
}

type CreateDepositRequestInput struct {
	RequesterID string `json:"requesterId" binding:"required"`
	Bank        string `json:"bank" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
	Account     string `json:"account"`
}

// DepositRequestUsecase creates deposit requests with their payment link and
// applies operator transitions to them.
type DepositRequestUsecase struct {
	requests   repositories.DepositRequestRepository
	baseHashes BaseHashSource
	links      LinkBuilder
	uow        repositories.UnitOfWork
	now        func() time.Time
}

func NewDepositRequestUsecase(
	requests repositories.DepositRequestRepository,
	baseHashes BaseHashSource,
	links LinkBuilder,
	uow repositories.UnitOfWork,
) *DepositRequestUsecase {
	return &DepositRequestUsecase{
		requests:   requests,
		baseHashes: baseHashes,
		links:      links,
		uow:        uow,
		now:        time.Now,
	}
}

func (u *DepositRequestUsecase) Create(ctx context.Context, in CreateDepositRequestInput) (*entities.DepositRequest, error) {
	requester := strings.TrimSpace(in.RequesterID)
	if requester == "" {
		return nil, domainerrors.Validation("requesterId is required")
	}
	bank := paylink.NormalizeBank(in.Bank)
	if bank == "" {
		return nil, domainerrors.Validation("bank is required")
	}
	amount, err := entities.ParseMoney(in.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", domainerrors.ErrInvalidAmount, in.Amount)
	}

	baseHash, err := u.baseHashes.BaseHash(ctx, bank)
	if err != nil {
		return nil, err
	}
	link, err := u.links.Build(bank, amount, baseHash)
	if err != nil {
		return nil, err
	}

	now := u.now().UTC()
	req := &entities.DepositRequest{
		ID:          utils.GenerateUUIDv7(),
		RequesterID: requester,
		Bank:        bank,
		Amount:      amount,
		Account:     strings.TrimSpace(in.Account),
		PaymentHash: link.Hash,
		PaymentURL:  link.URL,
		Codec:       string(link.Codec),
		Status:      entities.DepositRequestStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := u.requests.Create(ctx, req); err != nil {
		return nil, err
	}

	logger.Info(ctx, "Deposit request created",
		zap.String("request_id", req.ID.String()),
		zap.String("bank", bank),
		zap.String("amount", amount.String()),
		zap.String("codec", req.Codec),
		zap.Bool("codec_fallback", link.Fallback),
	)
	return req, nil
}

func (u *DepositRequestUsecase) Get(ctx context.Context, id uuid.UUID) (*entities.DepositRequest, error) {
	return u.requests.GetByID(ctx, id)
}

// Expire moves a pending request to expired. Terminal requests report a conflict.
func (u *DepositRequestUsecase) Expire(ctx context.Context, id uuid.UUID, reason string) (*entities.DepositRequest, error) {
	return u.transition(ctx, id, entities.DepositRequestStatusExpired, reason)
}

// Reject moves a pending request to rejected. Terminal requests report a conflict.
func (u *DepositRequestUsecase) Reject(ctx context.Context, id uuid.UUID, reason string) (*entities.DepositRequest, error) {
	return u.transition(ctx, id, entities.DepositRequestStatusRejected, reason)
}

func (u *DepositRequestUsecase) transition(ctx context.Context, id uuid.UUID, to entities.DepositRequestStatus, reason string) (*entities.DepositRequest, error) {
	var out *entities.DepositRequest
	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		if err := u.requests.Transition(txCtx, entities.StatusTransition{
			RequestID: id,
			To:        to,
			Reason:    strings.TrimSpace(reason),
			At:        u.now().UTC(),
		}); err != nil {
			return err
		}
		req, err := u.requests.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "Deposit request closed",
		zap.String("request_id", id.String()),
		zap.String("status", string(to)),
		zap.String("reason", reason),
	)
	return out, nil
}

// ListStale lists pending requests created more than olderThan ago.
func (u *DepositRequestUsecase) ListStale(ctx context.Context, olderThan time.Duration, limit, offset int) ([]*entities.DepositRequest, int, error) {
	if olderThan < 0 {
		return nil, 0, domainerrors.Validation("older_than must not be negative")
	}
	return u.requests.ListPendingOlderThan(ctx, u.now().Add(-olderThan), limit, offset)
}

// ExpireStale expires every pending request older than ttl, batch by batch.
// Requests that leave pending concurrently are skipped.
func (u *DepositRequestUsecase) ExpireStale(ctx context.Context, ttl time.Duration, batch int) (int, error) {
	if ttl <= 0 {
		return 0, nil
	}
	if batch <= 0 {
		batch = 100
	}
	cutoff := u.now().Add(-ttl)
	reason := fmt.Sprintf("not paid within %s", ttl)

	expired := 0
	for {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		stale, _, err := u.requests.ListPendingOlderThan(ctx, cutoff, batch, 0)
		if err != nil {
			return expired, err
		}
		progressed := 0
		for _, req := range stale {
			_, err := u.transition(ctx, req.ID, entities.DepositRequestStatusExpired, reason)
			switch {
			case err == nil:
				expired++
				progressed++
				metrics.RequestsExpiredTotal.Inc()
			case errors.Is(err, domainerrors.ErrRequestNotPending):
				progressed++
			default:
				return expired, err
			}
		}
		if len(stale) < batch || progressed == 0 {
			return expired, nil
		}
	}
}
