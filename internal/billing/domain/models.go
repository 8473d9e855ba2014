// Package domain defines billing periods, the delinquency state machine
// and the pure date arithmetic the billing engine is built on.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type PeriodStatus string

const (
	PeriodPending PeriodStatus = "pending"
	PeriodSettled PeriodStatus = "settled"
	PeriodOverdue PeriodStatus = "overdue"
)

// BillingPeriod is one month's obligation for a subscriber. Rows are
// created lazily by materialization and never deleted; status moves
// pending -> overdue with time and pending/overdue -> settled on payment.
type BillingPeriod struct {
	ID           snowflake.ID    `gorm:"primaryKey" json:"id"`
	SubscriberID snowflake.ID    `gorm:"uniqueIndex:ux_periods_month;not null" json:"subscriber_id"`
	Year         int             `gorm:"uniqueIndex:ux_periods_month;not null" json:"year"`
	Month        int             `gorm:"uniqueIndex:ux_periods_month;not null" json:"month"`
	Amount       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	DueDate      time.Time       `gorm:"not null" json:"due_date"`
	Status       PeriodStatus    `gorm:"type:varchar(16);not null;default:pending" json:"status"`
	SettledOn    *time.Time      `json:"settled_on,omitempty"`
	PaymentID    *snowflake.ID   `gorm:"index" json:"payment_id,omitempty"`
	CreatedAt    time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (BillingPeriod) TableName() string { return "billing_periods" }

func (p BillingPeriod) Outstanding() bool {
	return p.Status == PeriodPending || p.Status == PeriodOverdue
}

type DelinquencyState string

const (
	StateCurrent              DelinquencyState = "current"
	StateUpcomingDue          DelinquencyState = "upcoming_due"
	StateOverdue              DelinquencyState = "overdue"
	StatePendingDisconnection DelinquencyState = "pending_disconnection"
)

// DebtSnapshot is the derived, non-persisted summary returned to callers.
type DebtSnapshot struct {
	SubscriberID     snowflake.ID     `json:"subscriber_id"`
	AsOf             time.Time        `json:"as_of"`
	OutstandingCount int              `json:"outstanding_count"`
	OverdueCount     int              `json:"overdue_count"`
	BaseAmount       decimal.Decimal  `json:"base_amount"`
	Penalty          decimal.Decimal  `json:"penalty"`
	TotalDue         decimal.Decimal  `json:"total_due"`
	State            DelinquencyState `json:"state"`
	OwesPayment      bool             `json:"owes_payment"`
	LastPaymentOn    *time.Time       `json:"last_payment_on,omitempty"`
}

// AggregateStats summarizes debt across all active subscribers.
type AggregateStats struct {
	CountCurrent              int             `json:"count_current"`
	CountUpcomingDue          int             `json:"count_upcoming_due"`
	CountOverdue              int             `json:"count_overdue"`
	CountPendingDisconnection int             `json:"count_pending_disconnection"`
	TotalOutstandingDebt      decimal.Decimal `json:"total_outstanding_debt"`
	AverageDebt               decimal.Decimal `json:"average_debt"`
}
