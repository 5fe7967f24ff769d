package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

type DepositRequest struct {
	ID           uuid.UUID   `gorm:"type:uuid;primaryKey"`
	RequesterID  string      `gorm:"type:varchar(255);not null;index"`
	Bank         string      `gorm:"type:varchar(64);not null;index:idx_deposit_requests_match,priority:1"`
	Status       string      `gorm:"type:varchar(20);not null;index:idx_deposit_requests_match,priority:2"`
	AmountMinor  int64       `gorm:"not null;index:idx_deposit_requests_match,priority:3"`
	Account      string      `gorm:"type:varchar(255)"`
	PaymentHash  string      `gorm:"type:text"`
	PaymentURL   string      `gorm:"column:payment_url;type:text"`
	Codec        string      `gorm:"type:varchar(32)"`
	StatusReason null.String `gorm:"type:text"`
	CompletedAt  *time.Time
	CreatedAt    time.Time `gorm:"not null;index"`
	UpdatedAt    time.Time
}

func (DepositRequest) TableName() string {
	return "deposit_requests"
}
