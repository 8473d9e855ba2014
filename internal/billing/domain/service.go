package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	paymentdomain "github.com/telandes/recaudo/internal/payment/domain"
)

var (
	ErrUnknownSubscriber    = errors.New("unknown_subscriber")
	ErrInactiveSubscriber   = errors.New("inactive_subscriber")
	ErrPeriodAlreadySettled = errors.New("period_already_settled")
	ErrInvalidAsOf          = errors.New("invalid_as_of")
)

type AllocatePaymentRequest struct {
	SubscriberID snowflake.ID
	Amount       decimal.Decimal
	Method       paymentdomain.PaymentMethod
	Memo         string
}

type ListPeriodsRequest struct {
	SubscriberID snowflake.ID
	Year         int // zero means all years
}

// Service is the billing engine surface: debt derivation, period
// history, payment allocation and fleet-wide aggregates.
type Service interface {
	GetDebtSnapshot(ctx context.Context, subscriberID snowflake.ID, asOf *time.Time) (*DebtSnapshot, error)
	ListBillingPeriods(ctx context.Context, req ListPeriodsRequest) ([]BillingPeriod, error)
	AllocatePayment(ctx context.Context, req AllocatePaymentRequest) (*paymentdomain.Payment, error)
	ListPayments(ctx context.Context, subscriberID snowflake.ID) ([]paymentdomain.Payment, error)
	GetAggregateStats(ctx context.Context) (*AggregateStats, error)
}
