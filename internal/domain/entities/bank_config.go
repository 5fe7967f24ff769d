package entities

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// BankConfig holds the operator-managed payment-hash configuration for one bank.
type BankConfig struct {
	Bank           string    `json:"bank"`
	BaseHash       string    `json:"-"`
	Codec          string    `json:"codec,omitempty"`
	URLTemplate    string    `json:"urlTemplate"`
	MinAmount      Money     `json:"minAmount"`
	MaxAmount      Money     `json:"maxAmount"`
	Enabled        bool      `json:"enabled"`
	MaxWaitMinutes null.Int  `json:"maxWaitMinutes"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// HasBaseHash hides the credential itself from API responses.
func (b *BankConfig) HasBaseHash() bool { return b.BaseHash != "" }

// MaxWait returns the per-bank window override, if any.
func (b *BankConfig) MaxWait() (time.Duration, bool) {
	if !b.MaxWaitMinutes.Valid || b.MaxWaitMinutes.Int <= 0 {
		return 0, false
	}
	return time.Duration(b.MaxWaitMinutes.Int) * time.Minute, true
}
