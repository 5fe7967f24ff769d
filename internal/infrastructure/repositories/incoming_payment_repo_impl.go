package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"

	"autodeposit.backend/internal/domain/entities"
	domainerrors "autodeposit.backend/internal/domain/errors"
	"autodeposit.backend/internal/infrastructure/models"
)

// IncomingPaymentRepositoryImpl implements IncomingPaymentRepository
type IncomingPaymentRepositoryImpl struct {
	db *gorm.DB
}

func NewIncomingPaymentRepository(db *gorm.DB) *IncomingPaymentRepositoryImpl {
	return &IncomingPaymentRepositoryImpl{db: db}
}

func (r *IncomingPaymentRepositoryImpl) Create(ctx context.Context, p *entities.IncomingPayment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	m := &models.IncomingPayment{
		ID:                 p.ID,
		AmountMinor:        p.Amount.Minor(),
		Bank:               p.Bank,
		PaymentDate:        p.PaymentDate.UTC(),
		RawText:            p.RawText,
		DedupKey:           p.DedupKey,
		TransportMessageID: p.TransportMessageID,
		ReviewReason:       p.ReviewReason,
		IsProcessed:        p.IsProcessed,
		ProcessedAt:        p.ProcessedAt,
		CreatedAt:          p.CreatedAt.UTC(),
	}
	if p.LinkedRequestID.Valid {
		id := p.LinkedRequestID.UUID
		m.LinkedRequestID = &id
	}
	if err := GetDB(ctx, r.db).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrDuplicatePayment
		}
		return err
	}
	return nil
}

func (r *IncomingPaymentRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.IncomingPayment, error) {
	var m models.IncomingPayment
	if err := GetDB(ctx, r.db).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, notFound("incoming payment", err)
	}
	return r.toEntity(&m), nil
}

func (r *IncomingPaymentRepositoryImpl) GetByDedupKey(ctx context.Context, dedupKey string) (*entities.IncomingPayment, error) {
	var m models.IncomingPayment
	if err := GetDB(ctx, r.db).Where("dedup_key = ?", dedupKey).First(&m).Error; err != nil {
		return nil, notFound("incoming payment", err)
	}
	return r.toEntity(&m), nil
}

func (r *IncomingPaymentRepositoryImpl) MarkProcessed(ctx context.Context, id, requestID uuid.UUID, at time.Time) error {
	db := GetDB(ctx, r.db)
	res := db.Model(&models.IncomingPayment{}).
		Where("id = ? AND is_processed = ?", id, false).
		Updates(map[string]interface{}{
			"is_processed":      true,
			"linked_request_id": requestID,
			"processed_at":      at.UTC(),
		})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return domainerrors.Conflict("deposit request %s already linked to a payment", requestID)
		}
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := db.Model(&models.IncomingPayment{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return notFound("incoming payment", gorm.ErrRecordNotFound)
	}
	return domainerrors.ErrPaymentProcessed
}

func (r *IncomingPaymentRepositoryImpl) SetReviewReason(ctx context.Context, id uuid.UUID, reason string) error {
	res := GetDB(ctx, r.db).Model(&models.IncomingPayment{}).
		Where("id = ?", id).
		Update("review_reason", null.NewString(reason, reason != ""))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("incoming payment", gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *IncomingPaymentRepositoryImpl) ListUnmatched(ctx context.Context, limit, offset int) ([]*entities.IncomingPayment, int, error) {
	base := func() *gorm.DB {
		return GetDB(ctx, r.db).Model(&models.IncomingPayment{}).Where("is_processed = ?", false)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := base().Order("payment_date ASC, id ASC").Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}
	var ms []models.IncomingPayment
	if err := query.Find(&ms).Error; err != nil {
		return nil, 0, err
	}

	out := make([]*entities.IncomingPayment, 0, len(ms))
	for i := range ms {
		out = append(out, r.toEntity(&ms[i]))
	}
	return out, int(total), nil
}

func (r *IncomingPaymentRepositoryImpl) ListUnprocessedIDs(ctx context.Context, limit int) ([]uuid.UUID, error) {
	query := GetDB(ctx, r.db).Model(&models.IncomingPayment{}).
		Where("is_processed = ? AND bank IS NOT NULL AND amount_minor > 0", false).
		Order("payment_date ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var ids []uuid.UUID
	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *IncomingPaymentRepositoryImpl) toEntity(m *models.IncomingPayment) *entities.IncomingPayment {
	p := &entities.IncomingPayment{
		ID:                 m.ID,
		Amount:             entities.MoneyFromMinor(m.AmountMinor),
		Bank:               m.Bank,
		PaymentDate:        m.PaymentDate.UTC(),
		RawText:            m.RawText,
		DedupKey:           m.DedupKey,
		TransportMessageID: m.TransportMessageID,
		ReviewReason:       m.ReviewReason,
		IsProcessed:        m.IsProcessed,
		ProcessedAt:        m.ProcessedAt,
		CreatedAt:          m.CreatedAt.UTC(),
	}
	if m.LinkedRequestID != nil {
		p.LinkedRequestID = uuid.NullUUID{UUID: *m.LinkedRequestID, Valid: true}
	}
	return p
}
