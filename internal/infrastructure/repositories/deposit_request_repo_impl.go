package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"autodeposit.backend/internal/domain/entities"
	domainerrors "autodeposit.backend/internal/domain/errors"
	domainRepos "autodeposit.backend/internal/domain/repositories"
	"autodeposit.backend/internal/infrastructure/models"
)

// DepositRequestRepositoryImpl implements DepositRequestRepository
type DepositRequestRepositoryImpl struct {
	db *gorm.DB
}

func NewDepositRequestRepository(db *gorm.DB) *DepositRequestRepositoryImpl {
	return &DepositRequestRepositoryImpl{db: db}
}

func (r *DepositRequestRepositoryImpl) Create(ctx context.Context, req *entities.DepositRequest) error {
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now
	m := &models.DepositRequest{
		ID:           req.ID,
		RequesterID:  req.RequesterID,
		Bank:         req.Bank,
		Status:       string(req.Status),
		AmountMinor:  req.Amount.Minor(),
		Account:      req.Account,
		PaymentHash:  req.PaymentHash,
		PaymentURL:   req.PaymentURL,
		Codec:        req.Codec,
		StatusReason: req.StatusReason,
		CompletedAt:  req.CompletedAt,
		CreatedAt:    req.CreatedAt.UTC(),
		UpdatedAt:    req.UpdatedAt,
	}
	return GetDB(ctx, r.db).Create(m).Error
}

func (r *DepositRequestRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.DepositRequest, error) {
	var m models.DepositRequest
	if err := GetDB(ctx, r.db).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, notFound("deposit request", err)
	}
	return r.toEntity(&m), nil
}

func (r *DepositRequestRepositoryImpl) FindCandidates(ctx context.Context, q domainRepos.CandidateQuery) ([]*entities.DepositRequest, error) {
	query := GetDB(ctx, r.db).
		Where("status = ?", entities.DepositRequestStatusPending).
		Where("amount_minor BETWEEN ? AND ?", q.MinAmount.Minor(), q.MaxAmount.Minor()).
		Where("created_at <= ?", q.CreatedBefore.UTC())
	if q.Bank != "" {
		query = query.Where("bank = ?", q.Bank)
	}
	if !q.CreatedAfter.IsZero() {
		query = query.Where("created_at >= ?", q.CreatedAfter.UTC())
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var ms []models.DepositRequest
	if err := query.Order("created_at ASC, id ASC").Find(&ms).Error; err != nil {
		return nil, err
	}
	return r.toEntities(ms), nil
}

func (r *DepositRequestRepositoryImpl) Transition(ctx context.Context, t entities.StatusTransition) error {
	if !entities.DepositRequestStatusPending.CanTransition(t.To) {
		return domainerrors.Validation("illegal target status %q", t.To)
	}
	at := t.At.UTC()
	updates := map[string]interface{}{
		"status":     string(t.To),
		"updated_at": at,
	}
	if t.To == entities.DepositRequestStatusCompleted {
		updates["completed_at"] = at
	}
	if t.Reason != "" {
		updates["status_reason"] = t.Reason
	}

	db := GetDB(ctx, r.db)
	res := db.Model(&models.DepositRequest{}).
		Where("id = ? AND status = ?", t.RequestID, entities.DepositRequestStatusPending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := db.Model(&models.DepositRequest{}).Where("id = ?", t.RequestID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return notFound("deposit request", gorm.ErrRecordNotFound)
	}
	return domainerrors.ErrRequestNotPending
}

func (r *DepositRequestRepositoryImpl) ListPendingOlderThan(ctx context.Context, before time.Time, limit, offset int) ([]*entities.DepositRequest, int, error) {
	base := func() *gorm.DB {
		return GetDB(ctx, r.db).Model(&models.DepositRequest{}).
			Where("status = ? AND created_at < ?", entities.DepositRequestStatusPending, before.UTC())
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := base().Order("created_at ASC, id ASC").Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}
	var ms []models.DepositRequest
	if err := query.Find(&ms).Error; err != nil {
		return nil, 0, err
	}
	return r.toEntities(ms), int(total), nil
}

func (r *DepositRequestRepositoryImpl) toEntities(ms []models.DepositRequest) []*entities.DepositRequest {
	out := make([]*entities.DepositRequest, 0, len(ms))
	for i := range ms {
		out = append(out, r.toEntity(&ms[i]))
	}
	return out
}

func (r *DepositRequestRepositoryImpl) toEntity(m *models.DepositRequest) *entities.DepositRequest {
	return &entities.DepositRequest{
		ID:           m.ID,
		RequesterID:  m.RequesterID,
		Bank:         m.Bank,
		Amount:       entities.MoneyFromMinor(m.AmountMinor),
		Account:      m.Account,
		PaymentHash:  m.PaymentHash,
		PaymentURL:   m.PaymentURL,
		Codec:        m.Codec,
		Status:       entities.DepositRequestStatus(m.Status),
		StatusReason: m.StatusReason,
		CreatedAt:    m.CreatedAt.UTC(),
		CompletedAt:  m.CompletedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
