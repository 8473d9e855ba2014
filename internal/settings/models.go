// Package settings stores the billing behavior knobs documented to
// subscribers: advance-notice window, cutoff grace, late-fee percent.
package settings

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// BillingSettings is a single-row table read at sweep and calculation
// time so behavior changes without a deploy.
type BillingSettings struct {
	ID              snowflake.ID    `gorm:"primaryKey" json:"-"`
	NoticeDays      int             `gorm:"not null;default:5" json:"notice_days"`
	CutoffGraceDays int             `gorm:"not null;default:5" json:"cutoff_grace_days"`
	LateFeePercent  decimal.Decimal `gorm:"type:decimal(5,2);not null;default:2.00" json:"late_fee_percent"`
	UpdatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (BillingSettings) TableName() string { return "billing_settings" }

// Documented defaults, used whenever the settings row is unavailable.
const (
	DefaultNoticeDays      = 5
	DefaultCutoffGraceDays = 5
)

// DefaultLateFeePercent is the contractual 2% monthly surcharge.
var DefaultLateFeePercent = decimal.NewFromInt(2)

// Defaults returns the documented fallback settings.
func Defaults() BillingSettings {
	return BillingSettings{
		NoticeDays:      DefaultNoticeDays,
		CutoffGraceDays: DefaultCutoffGraceDays,
		LateFeePercent:  DefaultLateFeePercent,
	}
}
