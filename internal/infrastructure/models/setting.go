package models

import "time"

type Setting struct {
	Key       string `gorm:"type:varchar(64);primaryKey"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (Setting) TableName() string {
	return "settings"
}

type WatcherCursor struct {
	Source    string `gorm:"type:varchar(64);primaryKey"`
	Cursor    string `gorm:"type:varchar(255);not null"`
	UpdatedAt time.Time
}

func (WatcherCursor) TableName() string {
	return "watcher_cursors"
}

// All lists every table the service owns, in migration order.
func All() []interface{} {
	return []interface{}{
		&BankConfig{},
		&DepositRequest{},
		&IncomingPayment{},
		&Setting{},
		&WatcherCursor{},
	}
}
