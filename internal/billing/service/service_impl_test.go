package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	billingdomain "github.com/telandes/recaudo/internal/billing/domain"
	"github.com/telandes/recaudo/internal/clock"
	paymentdomain "github.com/telandes/recaudo/internal/payment/domain"
	"github.com/telandes/recaudo/internal/settings"
	subscriberdomain "github.com/telandes/recaudo/internal/subscriber/domain"
	subscriberrepo "github.com/telandes/recaudo/internal/subscriber/repository"
)

type staticSettings struct {
	cfg settings.BillingSettings
}

func (s staticSettings) Get(context.Context) settings.BillingSettings { return s.cfg }

func (s staticSettings) Update(context.Context, settings.UpdateRequest) (settings.BillingSettings, error) {
	return s.cfg, nil
}

func setupBillingTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_pragma=foreign_keys(1)"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&subscriberdomain.Subscriber{},
		&billingdomain.BillingPeriod{},
		&paymentdomain.Payment{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		db.Exec("DELETE FROM billing_periods")
		db.Exec("DELETE FROM payments")
		db.Exec("DELETE FROM subscribers")
	})
	return db
}

func newBillingService(t *testing.T, db *gorm.DB, now time.Time) *Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return &Service{
		db:          db,
		log:         zap.NewNop(),
		genID:       node,
		clock:       clock.Fixed(now),
		settings:    staticSettings{cfg: settings.Defaults()},
		subscribers: subscriberrepo.New(),
	}
}

func insertSubscriber(t *testing.T, db *gorm.DB, node *snowflake.Node, registered time.Time, price string) subscriberdomain.Subscriber {
	t.Helper()
	sub := subscriberdomain.Subscriber{
		ID:           node.Generate(),
		NationalID:   node.Generate().String(),
		FirstNames:   "Maria",
		LastNames:    "Andrade",
		PlanType:     "fibra-20",
		PlanPrice:    decimal.RequireFromString(price),
		RegisteredOn: registered,
		Status:       subscriberdomain.SubscriberStatusActive,
	}
	if err := db.Create(&sub).Error; err != nil {
		t.Fatalf("insert subscriber: %v", err)
	}
	return sub
}

func TestDebtSnapshotMaterializesPeriods(t *testing.T) {
	db := setupBillingTestDB(t)
	asOf := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	svc := newBillingService(t, db, asOf)
	sub := insertSubscriber(t, db, svc.genID, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "20.00")

	snap, err := svc.GetDebtSnapshot(context.Background(), sub.ID, nil)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	if snap.OutstandingCount != 4 {
		t.Fatalf("outstanding = %d, want 4", snap.OutstandingCount)
	}
	if snap.OverdueCount != 3 {
		t.Fatalf("overdue = %d, want 3", snap.OverdueCount)
	}
	if !snap.BaseAmount.Equal(decimal.RequireFromString("60.00")) {
		t.Fatalf("base = %s, want 60.00", snap.BaseAmount)
	}
	if !snap.TotalDue.Equal(decimal.RequireFromString("63.60")) {
		t.Fatalf("total due = %s, want 63.60", snap.TotalDue)
	}
	if snap.State != billingdomain.StatePendingDisconnection {
		t.Fatalf("state = %q, want pending_disconnection", snap.State)
	}
	if !snap.OwesPayment {
		t.Fatal("expected owes_payment true")
	}

	var periods []billingdomain.BillingPeriod
	if err := db.Where("subscriber_id = ?", sub.ID).Order("year, month").Find(&periods).Error; err != nil {
		t.Fatalf("load periods: %v", err)
	}
	if len(periods) != 4 {
		t.Fatalf("persisted %d periods, want 4", len(periods))
	}
	febDue := periods[1].DueDate
	if febDue.Month() != time.February || febDue.Day() != 15 {
		t.Fatalf("feb due date = %s", febDue.Format("2006-01-02"))
	}
	for i, p := range periods[:3] {
		if p.Status != billingdomain.PeriodOverdue {
			t.Fatalf("period %d status = %q, want overdue", i, p.Status)
		}
	}
	if periods[3].Status != billingdomain.PeriodPending {
		t.Fatalf("current period status = %q, want pending", periods[3].Status)
	}
}

func TestDebtSnapshotUnknownSubscriber(t *testing.T) {
	db := setupBillingTestDB(t)
	svc := newBillingService(t, db, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))

	_, err := svc.GetDebtSnapshot(context.Background(), snowflake.ID(12345), nil)
	if !errors.Is(err, billingdomain.ErrUnknownSubscriber) {
		t.Fatalf("expected unknown_subscriber, got %v", err)
	}
}

func TestDebtSnapshotRejectsAsOfBeforeRegistration(t *testing.T) {
	db := setupBillingTestDB(t)
	asOf := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	svc := newBillingService(t, db, asOf)
	sub := insertSubscriber(t, db, svc.genID, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "20.00")

	before := time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.GetDebtSnapshot(context.Background(), sub.ID, &before)
	if !errors.Is(err, billingdomain.ErrInvalidAsOf) {
		t.Fatalf("expected invalid_as_of, got %v", err)
	}
}

func TestAllocatePaymentSettlesOverdueOldestFirst(t *testing.T) {
	db := setupBillingTestDB(t)
	// Registered 2024-01-15, evaluated 2024-04-10: Jan-Mar overdue,
	// April (due the 15th) still pending. Total due
	// 60.00 + 60.00*0.02*3 = 63.60.
	now := time.Date(2024, 4, 10, 10, 0, 0, 0, time.UTC)
	svc := newBillingService(t, db, now)
	sub := insertSubscriber(t, db, svc.genID, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "20.00")

	snap, err := svc.GetDebtSnapshot(context.Background(), sub.ID, nil)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.OverdueCount != 3 {
		t.Fatalf("overdue = %d, want 3", snap.OverdueCount)
	}
	if !snap.TotalDue.Equal(decimal.RequireFromString("63.60")) {
		t.Fatalf("total due = %s, want 63.60", snap.TotalDue)
	}

	pay, err := svc.AllocatePayment(context.Background(), billingdomain.AllocatePaymentRequest{
		SubscriberID: sub.ID,
		Amount:       snap.TotalDue,
		Method:       paymentdomain.MethodCash,
		Memo:         "ventanilla",
	})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if pay.ReceiptNumber == "" {
		t.Fatal("expected a receipt number")
	}

	var settledIDs []string
	if err := json.Unmarshal(pay.SettledPeriods, &settledIDs); err != nil {
		t.Fatalf("settled periods json: %v", err)
	}
	if len(settledIDs) != 3 {
		t.Fatalf("settled %d periods, want 3", len(settledIDs))
	}

	var periods []billingdomain.BillingPeriod
	if err := db.Where("subscriber_id = ?", sub.ID).Order("year, month").Find(&periods).Error; err != nil {
		t.Fatalf("load periods: %v", err)
	}
	for i, p := range periods[:3] {
		if p.Status != billingdomain.PeriodSettled {
			t.Fatalf("period %d = %q, want settled", i, p.Status)
		}
		if p.SettledOn == nil || !p.SettledOn.Equal(now) {
			t.Fatalf("period %d settled_on = %v, want payment date", i, p.SettledOn)
		}
		if p.PaymentID == nil || *p.PaymentID != pay.ID {
			t.Fatalf("period %d payment_id = %v", i, p.PaymentID)
		}
	}
	if periods[3].Status != billingdomain.PeriodPending {
		t.Fatalf("current period = %q, want untouched pending", periods[3].Status)
	}
}

func TestAllocatePaymentChronologicalInvariant(t *testing.T) {
	db := setupBillingTestDB(t)
	now := time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC)
	svc := newBillingService(t, db, now)
	sub := insertSubscriber(t, db, svc.genID, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), "15.00")

	for i := 0; i < 3; i++ {
		_, err := svc.AllocatePayment(context.Background(), billingdomain.AllocatePaymentRequest{
			SubscriberID: sub.ID,
			Amount:       decimal.RequireFromString("15.00"),
			Method:       paymentdomain.MethodTransfer,
		})
		if err != nil {
			t.Fatalf("allocation %d: %v", i, err)
		}

		var periods []billingdomain.BillingPeriod
		if err := db.Where("subscriber_id = ?", sub.ID).Order("year, month").Find(&periods).Error; err != nil {
			t.Fatalf("load periods: %v", err)
		}
		seenUnsettled := false
		for _, p := range periods {
			if p.Status != billingdomain.PeriodSettled {
				seenUnsettled = true
				continue
			}
			if seenUnsettled {
				t.Fatalf("settled period %d/%d after an unsettled one", p.Year, p.Month)
			}
		}
	}
}

func TestAllocatePaymentNoOverdueSettlesCurrent(t *testing.T) {
	db := setupBillingTestDB(t)
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	svc := newBillingService(t, db, now)
	sub := insertSubscriber(t, db, svc.genID, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), "20.00")

	pay, err := svc.AllocatePayment(context.Background(), billingdomain.AllocatePaymentRequest{
		SubscriberID: sub.ID,
		Amount:       decimal.RequireFromString("20.00"),
		Method:       paymentdomain.MethodCash,
	})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	var periods []billingdomain.BillingPeriod
	if err := db.Where("subscriber_id = ?", sub.ID).Find(&periods).Error; err != nil {
		t.Fatalf("load periods: %v", err)
	}
	if len(periods) != 1 {
		t.Fatalf("got %d periods, want 1", len(periods))
	}
	if periods[0].Status != billingdomain.PeriodSettled {
		t.Fatalf("status = %q, want settled", periods[0].Status)
	}
	if periods[0].PaymentID == nil || *periods[0].PaymentID != pay.ID {
		t.Fatal("period not linked to payment")
	}
}

func TestAllocatePaymentAdvance(t *testing.T) {
	db := setupBillingTestDB(t)
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	svc := newBillingService(t, db, now)
	sub := insertSubscriber(t, db, svc.genID, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), "20.00")

	// First payment settles March; second is an advance for April.
	for i := 0; i < 2; i++ {
		if _, err := svc.AllocatePayment(context.Background(), billingdomain.AllocatePaymentRequest{
			SubscriberID: sub.ID,
			Amount:       decimal.RequireFromString("20.00"),
			Method:       paymentdomain.MethodCash,
		}); err != nil {
			t.Fatalf("allocation %d: %v", i, err)
		}
	}

	var periods []billingdomain.BillingPeriod
	if err := db.Where("subscriber_id = ?", sub.ID).Order("year, month").Find(&periods).Error; err != nil {
		t.Fatalf("load periods: %v", err)
	}
	if len(periods) != 2 {
		t.Fatalf("got %d periods, want 2", len(periods))
	}
	if periods[1].Year != 2024 || periods[1].Month != 4 {
		t.Fatalf("advance period = %d/%d, want 2024/4", periods[1].Year, periods[1].Month)
	}
	if periods[1].Status != billingdomain.PeriodSettled {
		t.Fatalf("advance period status = %q, want settled", periods[1].Status)
	}
}

func TestAllocatePaymentValidation(t *testing.T) {
	db := setupBillingTestDB(t)
	svc := newBillingService(t, db, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))

	_, err := svc.AllocatePayment(context.Background(), billingdomain.AllocatePaymentRequest{
		SubscriberID: snowflake.ID(1),
		Amount:       decimal.Zero,
		Method:       paymentdomain.MethodCash,
	})
	if !errors.Is(err, paymentdomain.ErrInvalidAmount) {
		t.Fatalf("expected invalid_amount, got %v", err)
	}

	_, err = svc.AllocatePayment(context.Background(), billingdomain.AllocatePaymentRequest{
		SubscriberID: snowflake.ID(1),
		Amount:       decimal.RequireFromString("10.00"),
		Method:       paymentdomain.PaymentMethod("cheque"),
	})
	if !errors.Is(err, paymentdomain.ErrInvalidMethod) {
		t.Fatalf("expected invalid_method, got %v", err)
	}

	_, err = svc.AllocatePayment(context.Background(), billingdomain.AllocatePaymentRequest{
		SubscriberID: snowflake.ID(99999),
		Amount:       decimal.RequireFromString("10.00"),
		Method:       paymentdomain.MethodCash,
	})
	if !errors.Is(err, billingdomain.ErrUnknownSubscriber) {
		t.Fatalf("expected unknown_subscriber, got %v", err)
	}
}

func TestAllocatePaymentRejectsInactiveSubscriber(t *testing.T) {
	db := setupBillingTestDB(t)
	svc := newBillingService(t, db, time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC))
	sub := insertSubscriber(t, db, svc.genID, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "20.00")
	if err := db.Model(&subscriberdomain.Subscriber{}).
		Where("id = ?", sub.ID).
		Update("status", subscriberdomain.SubscriberStatusInactive).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	_, err := svc.AllocatePayment(context.Background(), billingdomain.AllocatePaymentRequest{
		SubscriberID: sub.ID,
		Amount:       decimal.RequireFromString("20.00"),
		Method:       paymentdomain.MethodCash,
	})
	if !errors.Is(err, billingdomain.ErrInactiveSubscriber) {
		t.Fatalf("expected inactive_subscriber, got %v", err)
	}
}

func TestListBillingPeriodsRoundTrip(t *testing.T) {
	db := setupBillingTestDB(t)
	now := time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)
	svc := newBillingService(t, db, now)
	sub := insertSubscriber(t, db, svc.genID, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "20.00")

	pay, err := svc.AllocatePayment(context.Background(), billingdomain.AllocatePaymentRequest{
		SubscriberID: sub.ID,
		Amount:       decimal.RequireFromString("63.60"),
		Method:       paymentdomain.MethodDeposit,
	})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	periods, err := svc.ListBillingPeriods(context.Background(), billingdomain.ListPeriodsRequest{
		SubscriberID: sub.ID,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	settled := 0
	for _, p := range periods {
		if p.Status == billingdomain.PeriodSettled {
			settled++
			if p.SettledOn == nil || !p.SettledOn.Equal(pay.PaidOn) {
				t.Fatalf("settled_on = %v, want %s", p.SettledOn, pay.PaidOn)
			}
		}
	}
	if settled != 3 {
		t.Fatalf("settled %d periods, want 3", settled)
	}
}

func TestGetAggregateStats(t *testing.T) {
	db := setupBillingTestDB(t)
	now := time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)
	svc := newBillingService(t, db, now)

	// One delinquent since January, one fresh registration this month.
	insertSubscriber(t, db, svc.genID, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "20.00")
	insertSubscriber(t, db, svc.genID, time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC), "25.00")

	stats, err := svc.GetAggregateStats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.CountPendingDisconnection != 1 {
		t.Fatalf("pending_disconnection = %d, want 1", stats.CountPendingDisconnection)
	}
	if stats.CountCurrent != 1 {
		t.Fatalf("current = %d, want 1", stats.CountCurrent)
	}
	if stats.TotalOutstandingDebt.LessThanOrEqual(decimal.Zero) {
		t.Fatalf("total debt = %s, want positive", stats.TotalOutstandingDebt)
	}
	if stats.AverageDebt.LessThanOrEqual(decimal.Zero) {
		t.Fatalf("average debt = %s, want positive", stats.AverageDebt)
	}
}
