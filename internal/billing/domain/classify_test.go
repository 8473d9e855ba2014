package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func defaultThresholds() Thresholds {
	return ThresholdsFrom(5, 5)
}

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		days int
		want DelinquencyState
	}{
		{0, StateCurrent},
		{10, StateCurrent},
		{25, StateCurrent},
		{26, StateUpcomingDue},
		{29, StateUpcomingDue},
		{30, StateOverdue},
		{34, StateOverdue},
		{35, StatePendingDisconnection},
		{120, StatePendingDisconnection},
	}
	for _, tc := range cases {
		if got := Classify(tc.days, defaultThresholds()); got != tc.want {
			t.Fatalf("Classify(%d) = %q, want %q", tc.days, got, tc.want)
		}
	}
}

func TestClassifyTotal(t *testing.T) {
	valid := map[DelinquencyState]bool{
		StateCurrent:              true,
		StateUpcomingDue:          true,
		StateOverdue:              true,
		StatePendingDisconnection: true,
	}
	for days := 0; days <= 400; days++ {
		if !valid[Classify(days, defaultThresholds())] {
			t.Fatalf("Classify(%d) returned an unknown state", days)
		}
	}
}

func TestClassifyConfiguredThresholds(t *testing.T) {
	// Notice window of 10 days moves the current boundary to day 20;
	// grace of 10 moves disconnection to day 40.
	th := ThresholdsFrom(10, 10)
	if got := Classify(20, th); got != StateCurrent {
		t.Fatalf("day 20 = %q, want current", got)
	}
	if got := Classify(21, th); got != StateUpcomingDue {
		t.Fatalf("day 21 = %q, want upcoming_due", got)
	}
	if got := Classify(39, th); got != StateOverdue {
		t.Fatalf("day 39 = %q, want overdue", got)
	}
	if got := Classify(40, th); got != StatePendingDisconnection {
		t.Fatalf("day 40 = %q, want pending_disconnection", got)
	}
}

func TestOwesPayment(t *testing.T) {
	if OwesPayment(10, false, 0) {
		t.Fatal("subscriber at day 10 with no payment should not owe")
	}
	if !OwesPayment(31, false, 0) {
		t.Fatal("subscriber at day 31 with no payment should owe")
	}
	if OwesPayment(60, true, 5) {
		t.Fatal("recent payment should clear the owes flag")
	}
	if !OwesPayment(60, true, 31) {
		t.Fatal("stale payment should set the owes flag")
	}
}

func TestElapsedDaysIgnoresTimeOfDay(t *testing.T) {
	from := time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)
	to := time.Date(2024, 1, 2, 0, 1, 0, 0, time.UTC)
	if got := ElapsedDays(from, to); got != 1 {
		t.Fatalf("ElapsedDays = %d, want 1", got)
	}
}

func TestPenalty(t *testing.T) {
	base := decimal.RequireFromString("60.00")
	pct := decimal.NewFromInt(2)

	got := Penalty(base, pct, 3)
	want := decimal.RequireFromString("3.60")
	if !got.Equal(want) {
		t.Fatalf("Penalty = %s, want %s", got, want)
	}

	if !Penalty(base, pct, 0).IsZero() {
		t.Fatal("no overdue periods should yield zero penalty")
	}
	if !Penalty(decimal.Zero, pct, 3).IsZero() {
		t.Fatal("zero base should yield zero penalty")
	}
}
