package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// IncomingPayment is a normalized bank notification. Rows are append-only;
// the matcher mutates a row exactly once to link it to a deposit request.
type IncomingPayment struct {
	ID                 uuid.UUID     `json:"id"`
	Amount             Money         `json:"amount"`
	Bank               null.String   `json:"bank"`
	PaymentDate        time.Time     `json:"paymentDate"`
	RawText            string        `json:"rawText"`
	DedupKey           string        `json:"dedupKey"`
	TransportMessageID null.String   `json:"transportMessageId"`
	ReviewReason       null.String   `json:"reviewReason"`
	IsProcessed        bool          `json:"isProcessed"`
	LinkedRequestID    uuid.NullUUID `json:"linkedRequestId"`
	ProcessedAt        *time.Time    `json:"processedAt,omitempty"`
	CreatedAt          time.Time     `json:"createdAt"`
}

// Matchable reports whether the matcher may look for candidates at all.
func (p *IncomingPayment) Matchable() bool {
	return !p.IsProcessed && p.Bank.Valid && p.Bank.String != "" && p.Amount.IsPositive()
}

// RawNotification is what a transport hands over before normalization.
type RawNotification struct {
	Text               string
	SourceTimestamp    time.Time
	TransportMessageID null.String
	// Cursor is the position of this record in its source.
	Cursor string
}
