package usecases

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"autodeposit.backend/internal/domain/entities"
	domainerrors "autodeposit.backend/internal/domain/errors"
	"autodeposit.backend/internal/domain/repositories"
	"autodeposit.backend/pkg/logger"
	"autodeposit.backend/pkg/metrics"
)

// MatchOutcome is what happened to one payment in one matcher run.
type MatchOutcome string

const (
	OutcomeMatched          MatchOutcome = "matched"
	OutcomeUnmatched        MatchOutcome = "unmatched"
	OutcomeUnmatchable      MatchOutcome = "unmatchable"
	OutcomeInvalid          MatchOutcome = "invalid"
	OutcomeAlreadyProcessed MatchOutcome = "already_processed"
)

const (
	// candidateLimit bounds one candidate query; FIFO means only the head matters.
	candidateLimit = 50
	// ReviewUnknownBank is set on payments the matcher cannot place.
	ReviewUnknownBank = "bank unknown"
)

type MatchResult struct {
	PaymentID uuid.UUID     `json:"paymentId"`
	Outcome   MatchOutcome  `json:"outcome"`
	RequestID uuid.NullUUID `json:"requestId"`
	Reason    string        `json:"reason,omitempty"`
}

// SweepSummary counts outcomes of one ReconcilePending run.
type SweepSummary struct {
	Scanned  int                  `json:"scanned"`
	Outcomes map[MatchOutcome]int `json:"outcomes"`
	Errors   int                  `json:"errors"`
}

// SettingsProvider yields the reconcile settings in force.
type SettingsProvider interface {
	Effective(ctx context.Context) (entities.ReconcileSettings, error)
}

// ReconciliationUsecase matches incoming payments to pending deposit requests.
type ReconciliationUsecase struct {
	requests repositories.DepositRequestRepository
	payments repositories.IncomingPaymentRepository
	banks    repositories.BankConfigRepository
	uow      repositories.UnitOfWork
	settings SettingsProvider
	now      func() time.Time
}

func NewReconciliationUsecase(
	requests repositories.DepositRequestRepository,
	payments repositories.IncomingPaymentRepository,
	banks repositories.BankConfigRepository,
	uow repositories.UnitOfWork,
	settings SettingsProvider,
) *ReconciliationUsecase {
	return &ReconciliationUsecase{
		requests: requests,
		payments: payments,
		banks:    banks,
		uow:      uow,
		settings: settings,
		now:      time.Now,
	}
}

// Reconcile runs the matcher for one payment. It is safe to call any number
// of times for the same payment.
func (u *ReconciliationUsecase) Reconcile(ctx context.Context, paymentID uuid.UUID) (*MatchResult, error) {
	payment, err := u.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	result, err := u.reconcile(ctx, payment)
	if result != nil {
		metrics.MatchOutcomesTotal.WithLabelValues(string(result.Outcome)).Inc()
	}
	return result, err
}

func (u *ReconciliationUsecase) reconcile(ctx context.Context, payment *entities.IncomingPayment) (*MatchResult, error) {
	result := &MatchResult{PaymentID: payment.ID}

	if payment.IsProcessed {
		result.Outcome = OutcomeAlreadyProcessed
		result.RequestID = payment.LinkedRequestID
		return result, nil
	}
	if !payment.Bank.Valid || payment.Bank.String == "" {
		result.Outcome = OutcomeUnmatchable
		result.Reason = u.park(ctx, payment, ReviewUnknownBank)
		return result, nil
	}
	if !payment.Amount.IsPositive() {
		result.Outcome = OutcomeInvalid
		result.Reason = u.park(ctx, payment, ReviewNonPositiveAmount)
		return result, fmt.Errorf("payment %s: %w", payment.ID, domainerrors.ErrInvalidAmount)
	}

	settings, err := u.settings.Effective(ctx)
	if err != nil {
		return nil, err
	}
	maxWait := u.maxWait(ctx, payment.Bank.String, settings.MaxWait)

	candidates, err := u.requests.FindCandidates(ctx, repositories.CandidateQuery{
		Bank:          payment.Bank.String,
		MinAmount:     payment.Amount.Sub(settings.Tolerance),
		MaxAmount:     payment.Amount.Add(settings.Tolerance),
		CreatedAfter:  payment.PaymentDate.Add(-maxWait),
		CreatedBefore: payment.PaymentDate,
		Limit:         candidateLimit,
	})
	if err != nil {
		return nil, domainerrors.Transient(err)
	}
	candidates = RankCandidates(candidates, payment, settings.Tolerance, maxWait)

	for _, candidate := range candidates {
		err := u.complete(ctx, payment, candidate)
		switch {
		case err == nil:
			logger.Info(ctx, "Payment matched",
				zap.String("payment_id", payment.ID.String()),
				zap.String("request_id", candidate.ID.String()),
				zap.String("bank", payment.Bank.String),
				zap.String("amount", payment.Amount.String()),
			)
			result.Outcome = OutcomeMatched
			result.RequestID = uuid.NullUUID{UUID: candidate.ID, Valid: true}
			return result, nil
		case errors.Is(err, domainerrors.ErrRequestNotPending):
			// Lost the request to a concurrent writer; the next in line may still be free.
			logger.Debug(ctx, "Candidate no longer pending",
				zap.String("payment_id", payment.ID.String()),
				zap.String("request_id", candidate.ID.String()),
			)
			continue
		case errors.Is(err, domainerrors.ErrPaymentProcessed):
			result.Outcome = OutcomeAlreadyProcessed
			return result, err
		case errors.Is(err, domainerrors.ErrConflict):
			return nil, err
		default:
			return nil, domainerrors.Transient(err)
		}
	}

	result.Outcome = OutcomeUnmatched
	return result, nil
}

// complete is the single atomic transition from (pending request, unprocessed
// payment) to (completed request, linked payment).
func (u *ReconciliationUsecase) complete(ctx context.Context, payment *entities.IncomingPayment, request *entities.DepositRequest) error {
	now := u.now().UTC()
	return u.uow.Do(ctx, func(txCtx context.Context) error {
		if err := u.requests.Transition(txCtx, entities.StatusTransition{
			RequestID: request.ID,
			To:        entities.DepositRequestStatusCompleted,
			At:        now,
		}); err != nil {
			return err
		}
		return u.payments.MarkProcessed(txCtx, payment.ID, request.ID, now)
	})
}

func (u *ReconciliationUsecase) park(ctx context.Context, payment *entities.IncomingPayment, reason string) string {
	if payment.ReviewReason.Valid {
		return payment.ReviewReason.String
	}
	if err := u.payments.SetReviewReason(ctx, payment.ID, reason); err != nil {
		logger.Warn(ctx, "Failed to park payment", zap.String("payment_id", payment.ID.String()), zap.Error(err))
	}
	return reason
}

func (u *ReconciliationUsecase) maxWait(ctx context.Context, bank string, global time.Duration) time.Duration {
	if u.banks == nil {
		return global
	}
	cfg, err := u.banks.GetByBank(ctx, bank)
	if err != nil {
		return global
	}
	if d, ok := cfg.MaxWait(); ok {
		return d
	}
	return global
}

// RankCandidates keeps only requests inside the matching window and orders
// them first come, first served: earliest created_at, then lowest id.
func RankCandidates(candidates []*entities.DepositRequest, payment *entities.IncomingPayment, tolerance entities.Money, maxWait time.Duration) []*entities.DepositRequest {
	out := make([]*entities.DepositRequest, 0, len(candidates))
	for _, c := range candidates {
		if c.Status != entities.DepositRequestStatusPending {
			continue
		}
		if payment.Bank.Valid && c.Bank != payment.Bank.String {
			continue
		}
		if !c.Amount.Within(payment.Amount, tolerance) {
			continue
		}
		if c.CreatedAt.After(payment.PaymentDate) {
			continue
		}
		if payment.PaymentDate.Sub(c.CreatedAt) > maxWait {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	return out
}

// ReconcilePending re-runs the matcher over every unprocessed payment, oldest
// first. Running it twice is the same as running it once.
func (u *ReconciliationUsecase) ReconcilePending(ctx context.Context, limit int) (*SweepSummary, error) {
	ids, err := u.payments.ListUnprocessedIDs(ctx, limit)
	if err != nil {
		return nil, domainerrors.Transient(err)
	}

	summary := &SweepSummary{Outcomes: map[MatchOutcome]int{}}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Scanned++
		result, err := u.Reconcile(ctx, id)
		if result != nil {
			summary.Outcomes[result.Outcome]++
		}
		if err == nil {
			continue
		}
		summary.Errors++
		if domainerrors.IsTransient(err) {
			return summary, err
		}
		logger.Warn(ctx, "Reconcile failed for payment", zap.String("payment_id", id.String()), zap.Error(err))
	}
	return summary, nil
}

// ListUnmatched returns payments still waiting for a request, oldest first.
func (u *ReconciliationUsecase) ListUnmatched(ctx context.Context, limit, offset int) ([]*entities.IncomingPayment, int, error) {
	return u.payments.ListUnmatched(ctx, limit, offset)
}
