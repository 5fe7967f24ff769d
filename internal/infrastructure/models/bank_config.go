package models

import (
	"time"

	"github.com/volatiletech/null/v8"
)

type BankConfig struct {
	Bank string `gorm:"type:varchar(64);primaryKey"`

	// BaseHash holds a sealed (JWE) envelope, never the plain credential.
	BaseHash       string   `gorm:"type:text"`
	Codec          string   `gorm:"type:varchar(32)"`
	URLTemplate    string   `gorm:"column:url_template;type:text;not null"`
	MinAmountMinor int64    `gorm:"not null"`
	MaxAmountMinor int64    `gorm:"not null"`
	Enabled        bool     `gorm:"not null"`
	MaxWaitMinutes null.Int `gorm:"column:max_wait_minutes"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (BankConfig) TableName() string {
	return "bank_configs"
}
