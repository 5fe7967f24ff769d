package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

type IncomingPayment struct {
	ID                 uuid.UUID   `gorm:"type:uuid;primaryKey"`
	AmountMinor        int64       `gorm:"not null"`
	Bank               null.String `gorm:"type:varchar(64);index"`
	PaymentDate        time.Time   `gorm:"not null"`
	RawText            string      `gorm:"type:text;not null"`
	DedupKey           string      `gorm:"type:varchar(128);not null;uniqueIndex"`
	TransportMessageID null.String `gorm:"type:varchar(255)"`
	ReviewReason       null.String `gorm:"type:text"`
	IsProcessed        bool        `gorm:"not null;index"`

	// Unique so that one request can never be linked to two payments.
	LinkedRequestID *uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	ProcessedAt     *time.Time
	CreatedAt       time.Time `gorm:"not null;index"`
}

func (IncomingPayment) TableName() string {
	return "incoming_payments"
}
