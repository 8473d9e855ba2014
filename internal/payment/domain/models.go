// Package domain holds the append-only payment ledger model. Payments
// are immutable once recorded; corrections happen as new entries.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type PaymentMethod string

const (
	MethodCash     PaymentMethod = "cash"
	MethodTransfer PaymentMethod = "transfer"
	MethodDeposit  PaymentMethod = "deposit"
	MethodOther    PaymentMethod = "other"
)

func ValidMethod(m PaymentMethod) bool {
	switch m {
	case MethodCash, MethodTransfer, MethodDeposit, MethodOther:
		return true
	}
	return false
}

type Payment struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	SubscriberID   snowflake.ID    `gorm:"index;not null" json:"subscriber_id"`
	Amount         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	PaidOn         time.Time       `gorm:"not null" json:"paid_on"`
	Method         PaymentMethod   `gorm:"type:varchar(16);not null" json:"method"`
	Memo           string          `gorm:"type:text" json:"memo,omitempty"`
	ReceiptNumber  string          `gorm:"type:varchar(32);uniqueIndex;not null" json:"receipt_number"`
	SettledPeriods datatypes.JSON  `gorm:"type:jsonb" json:"settled_periods"`
	CreatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

var (
	ErrInvalidAmount = errors.New("invalid_amount")
	ErrInvalidMethod = errors.New("invalid_method")
)
