package entities

import (
	"strconv"
	"time"
)

// Operator setting keys
const (
	SettingAutodepositEnabled = "autodeposit_enabled"
	SettingPollInterval       = "poll_interval"
	SettingAmountTolerance    = "amount_tolerance"
	SettingMaxWait            = "max_wait"
	SettingRequestTTL         = "request_ttl"
)

// KnownSettings lists the keys an operator may set.
var KnownSettings = map[string]bool{
	SettingAutodepositEnabled: true,
	SettingPollInterval:       true,
	SettingAmountTolerance:    true,
	SettingMaxWait:            true,
	SettingRequestTTL:         true,
}

// ReconcileSettings is the effective matcher/watcher configuration for one run.
type ReconcileSettings struct {
	Enabled      bool          `json:"autodepositEnabled"`
	PollInterval time.Duration `json:"pollInterval"`
	Tolerance    Money         `json:"amountTolerance"`
	MaxWait      time.Duration `json:"maxWait"`
	RequestTTL   time.Duration `json:"requestTtl"`
}

// Apply overlays persisted key/value pairs; unparsable values are ignored.
func (s ReconcileSettings) Apply(kv map[string]string) ReconcileSettings {
	if v, ok := kv[SettingAutodepositEnabled]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			s.Enabled = b
		}
	}
	if v, ok := kv[SettingPollInterval]; ok {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			s.PollInterval = d
		}
	}
	if v, ok := kv[SettingAmountTolerance]; ok {
		if m, err := ParseMoney(v); err == nil && m.Cmp(Zero) >= 0 {
			s.Tolerance = m
		}
	}
	if v, ok := kv[SettingMaxWait]; ok {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			s.MaxWait = d
		}
	}
	if v, ok := kv[SettingRequestTTL]; ok {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			s.RequestTTL = d
		}
	}
	return s
}
