package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillingCycleDays is the length of one billing cycle. The overdue
// boundary is always day 30; the notice and cutoff windows are offsets
// from it supplied by the settings store.
const BillingCycleDays = 30

// Thresholds carries the classification boundaries derived from the
// billing settings. UpcomingAfter is the last "current" day and
// DisconnectionAfter the last "overdue" day.
type Thresholds struct {
	UpcomingAfter      int
	DisconnectionAfter int
}

// ThresholdsFrom derives boundaries from the configured notice and
// cutoff-grace windows. Defaults (5, 5) yield the 25/29/34 table.
func ThresholdsFrom(noticeDays, cutoffGraceDays int) Thresholds {
	return Thresholds{
		UpcomingAfter:      BillingCycleDays - noticeDays,
		DisconnectionAfter: BillingCycleDays + cutoffGraceDays - 1,
	}
}

// Classify maps elapsed whole days since the reference date to a
// delinquency state. Total over all non-negative inputs.
func Classify(elapsedDays int, t Thresholds) DelinquencyState {
	switch {
	case elapsedDays <= t.UpcomingAfter:
		return StateCurrent
	case elapsedDays < BillingCycleDays:
		return StateUpcomingDue
	case elapsedDays <= t.DisconnectionAfter:
		return StateOverdue
	default:
		return StatePendingDisconnection
	}
}

// OwesPayment gates delinquency notices. Subscribers inside their first
// billing cycle never owe, regardless of payment history.
func OwesPayment(daysSinceRegistration int, hasPayment bool, daysSinceLastPayment int) bool {
	if daysSinceRegistration < BillingCycleDays {
		return false
	}
	return !hasPayment || daysSinceLastPayment >= BillingCycleDays
}

// ElapsedDays counts whole civil days from a to b in UTC. Time-of-day
// is discarded so a payment at 23:59 and one at 00:01 age identically.
func ElapsedDays(from, to time.Time) int {
	f := civil(from)
	t := civil(to)
	return int(t.Sub(f).Hours() / 24)
}

func civil(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Penalty computes the flat late-fee surcharge: pct percent of the
// outstanding base per overdue period, non-compounding.
func Penalty(outstandingBase decimal.Decimal, pct decimal.Decimal, overdueCount int) decimal.Decimal {
	if overdueCount <= 0 || outstandingBase.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	hundred := decimal.NewFromInt(100)
	return outstandingBase.
		Mul(pct).
		Div(hundred).
		Mul(decimal.NewFromInt(int64(overdueCount))).
		Round(2)
}
