package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	billingdomain "github.com/telandes/recaudo/internal/billing/domain"
	"github.com/telandes/recaudo/internal/clock"
	paymentdomain "github.com/telandes/recaudo/internal/payment/domain"
	"github.com/telandes/recaudo/internal/settings"
	subscriberdomain "github.com/telandes/recaudo/internal/subscriber/domain"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Settings    settings.Service
	Subscribers subscriberdomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	settings    settings.Service
	subscribers subscriberdomain.Repository
}

func NewService(p Params) billingdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("billing.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		settings:    p.Settings,
		subscribers: p.Subscribers,
	}
}

func (s *Service) GetDebtSnapshot(ctx context.Context, subscriberID snowflake.ID, asOf *time.Time) (*billingdomain.DebtSnapshot, error) {
	at := s.clock.Now()
	if asOf != nil {
		at = *asOf
	}

	var snapshot *billingdomain.DebtSnapshot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.subscribers.FindByID(ctx, tx, subscriberID)
		if err != nil {
			return err
		}
		if sub == nil {
			return billingdomain.ErrUnknownSubscriber
		}
		snapshot, err = s.snapshotLocked(ctx, tx, sub, at)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// snapshotLocked materializes missing periods and derives the debt
// summary. Caller supplies the transaction.
func (s *Service) snapshotLocked(ctx context.Context, tx *gorm.DB, sub *subscriberdomain.Subscriber, asOf time.Time) (*billingdomain.DebtSnapshot, error) {
	if asOf.Before(sub.RegisteredOn) {
		return nil, billingdomain.ErrInvalidAsOf
	}
	if err := s.materialize(ctx, tx, sub, asOf); err != nil {
		return nil, err
	}

	var outstanding []billingdomain.BillingPeriod
	if err := tx.
		Where("subscriber_id = ? AND status IN ?", sub.ID,
			[]billingdomain.PeriodStatus{billingdomain.PeriodPending, billingdomain.PeriodOverdue}).
		Order("year, month").
		Find(&outstanding).Error; err != nil {
		return nil, err
	}

	lastPayment, err := s.lastPaymentOn(ctx, tx, sub.ID)
	if err != nil {
		return nil, err
	}

	cfg := s.settings.Get(ctx)
	thresholds := billingdomain.ThresholdsFrom(cfg.NoticeDays, cfg.CutoffGraceDays)

	reference := sub.RegisteredOn
	if lastPayment != nil && lastPayment.After(reference) {
		reference = *lastPayment
	}
	elapsed := billingdomain.ElapsedDays(reference, asOf)

	// The payable base is the overdue balance; the current pending
	// period is charged at nominal price only when nothing is overdue.
	overdueBase := decimal.Zero
	pendingBase := decimal.Zero
	overdueCount := 0
	for _, p := range outstanding {
		if p.Status == billingdomain.PeriodOverdue {
			overdueBase = overdueBase.Add(p.Amount)
			overdueCount++
		} else {
			pendingBase = pendingBase.Add(p.Amount)
		}
	}
	base := overdueBase
	if overdueCount == 0 {
		base = pendingBase
	}
	penalty := billingdomain.Penalty(overdueBase, cfg.LateFeePercent, overdueCount)

	daysSinceReg := billingdomain.ElapsedDays(sub.RegisteredOn, asOf)
	daysSincePay := 0
	if lastPayment != nil {
		daysSincePay = billingdomain.ElapsedDays(*lastPayment, asOf)
	}

	return &billingdomain.DebtSnapshot{
		SubscriberID:     sub.ID,
		AsOf:             asOf,
		OutstandingCount: len(outstanding),
		OverdueCount:     overdueCount,
		BaseAmount:       base,
		Penalty:          penalty,
		TotalDue:         base.Add(penalty),
		State:            billingdomain.Classify(elapsed, thresholds),
		OwesPayment:      billingdomain.OwesPayment(daysSinceReg, lastPayment != nil, daysSincePay),
		LastPaymentOn:    lastPayment,
	}, nil
}

// materialize inserts any missing period rows between registration and
// asOf and flips unpaid past-due rows to overdue. The unique index on
// (subscriber, year, month) makes concurrent invocations safe.
func (s *Service) materialize(ctx context.Context, tx *gorm.DB, sub *subscriberdomain.Subscriber, asOf time.Time) error {
	var existing []billingdomain.BillingPeriod
	if err := tx.
		Where("subscriber_id = ?", sub.ID).
		Find(&existing).Error; err != nil {
		return err
	}
	seen := make(map[billingdomain.PeriodKey]bool, len(existing))
	for _, p := range existing {
		seen[billingdomain.PeriodKey{Year: p.Year, Month: p.Month}] = true
	}

	now := s.clock.Now()
	var missing []billingdomain.BillingPeriod
	for _, key := range billingdomain.Schedule(sub.RegisteredOn, asOf) {
		if seen[key] {
			continue
		}
		due := billingdomain.DueDate(key, sub.RegisteredOn)
		missing = append(missing, billingdomain.BillingPeriod{
			ID:           s.genID.Generate(),
			SubscriberID: sub.ID,
			Year:         key.Year,
			Month:        key.Month,
			Amount:       sub.PlanPrice,
			DueDate:      due,
			Status:       billingdomain.StatusAt(due, asOf),
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	if len(missing) > 0 {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&missing).Error; err != nil {
			return err
		}
	}

	return tx.Model(&billingdomain.BillingPeriod{}).
		Where("subscriber_id = ? AND status = ? AND due_date < ?",
			sub.ID, billingdomain.PeriodPending, startOfDay(asOf)).
		Updates(map[string]any{
			"status":     billingdomain.PeriodOverdue,
			"updated_at": now,
		}).Error
}

func (s *Service) lastPaymentOn(ctx context.Context, tx *gorm.DB, subscriberID snowflake.ID) (*time.Time, error) {
	var pay paymentdomain.Payment
	err := tx.
		Where("subscriber_id = ?", subscriberID).
		Order("paid_on DESC").
		First(&pay).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	t := pay.PaidOn
	return &t, nil
}

func (s *Service) ListBillingPeriods(ctx context.Context, req billingdomain.ListPeriodsRequest) ([]billingdomain.BillingPeriod, error) {
	var periods []billingdomain.BillingPeriod
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.subscribers.FindByID(ctx, tx, req.SubscriberID)
		if err != nil {
			return err
		}
		if sub == nil {
			return billingdomain.ErrUnknownSubscriber
		}
		if err := s.materialize(ctx, tx, sub, s.clock.Now()); err != nil {
			return err
		}

		query := tx.Where("subscriber_id = ?", req.SubscriberID)
		if req.Year != 0 {
			query = query.Where("year = ?", req.Year)
		}
		return query.Order("year, month").Find(&periods).Error
	})
	if err != nil {
		return nil, err
	}
	return periods, nil
}

func (s *Service) AllocatePayment(ctx context.Context, req billingdomain.AllocatePaymentRequest) (*paymentdomain.Payment, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, paymentdomain.ErrInvalidAmount
	}
	if !paymentdomain.ValidMethod(req.Method) {
		return nil, paymentdomain.ErrInvalidMethod
	}

	now := s.clock.Now()
	var payment paymentdomain.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.subscribers.FindByID(ctx, tx, req.SubscriberID)
		if err != nil {
			return err
		}
		if sub == nil {
			return billingdomain.ErrUnknownSubscriber
		}
		if !sub.IsActive() {
			return billingdomain.ErrInactiveSubscriber
		}
		if err := s.materialize(ctx, tx, sub, now); err != nil {
			return err
		}

		var outstanding []billingdomain.BillingPeriod
		if err := tx.
			Where("subscriber_id = ? AND status IN ?", sub.ID,
				[]billingdomain.PeriodStatus{billingdomain.PeriodPending, billingdomain.PeriodOverdue}).
			Order("year, month").
			Find(&outstanding).Error; err != nil {
			return err
		}

		var toSettle []billingdomain.BillingPeriod
		switch {
		case len(outstanding) == 0:
			// Advance payment: nothing outstanding, settle the next
			// unbilled month up front.
			next, err := s.nextUnbilledPeriod(ctx, tx, sub, now)
			if err != nil {
				return err
			}
			toSettle = []billingdomain.BillingPeriod{*next}
		default:
			overdueCount := 0
			for _, p := range outstanding {
				if p.Status == billingdomain.PeriodOverdue {
					overdueCount++
				}
			}
			if overdueCount == 0 {
				toSettle = outstanding[:1]
			} else {
				toSettle = outstanding[:overdueCount]
			}
		}

		payment = paymentdomain.Payment{
			ID:            s.genID.Generate(),
			SubscriberID:  sub.ID,
			Amount:        req.Amount,
			PaidOn:        now,
			Method:        req.Method,
			Memo:          strings.TrimSpace(req.Memo),
			ReceiptNumber: newReceiptNumber(now),
			CreatedAt:     now,
		}

		settledIDs := make([]string, 0, len(toSettle))
		for _, p := range toSettle {
			settledIDs = append(settledIDs, p.ID.String())
		}
		raw, err := json.Marshal(settledIDs)
		if err != nil {
			return err
		}
		payment.SettledPeriods = raw

		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		for i := range toSettle {
			p := &toSettle[i]
			result := tx.Model(&billingdomain.BillingPeriod{}).
				Where("id = ? AND status IN ?", p.ID,
					[]billingdomain.PeriodStatus{billingdomain.PeriodPending, billingdomain.PeriodOverdue}).
				Updates(map[string]any{
					"status":     billingdomain.PeriodSettled,
					"settled_on": now,
					"payment_id": payment.ID,
					"updated_at": now,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return billingdomain.ErrPeriodAlreadySettled
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("payment allocated",
		zap.String("subscriber_id", req.SubscriberID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("amount", payment.Amount.String()),
		zap.String("receipt_number", payment.ReceiptNumber),
	)
	return &payment, nil
}

// nextUnbilledPeriod creates, already settled by the caller's payment,
// the first calendar month after the latest billed one.
func (s *Service) nextUnbilledPeriod(ctx context.Context, tx *gorm.DB, sub *subscriberdomain.Subscriber, now time.Time) (*billingdomain.BillingPeriod, error) {
	var latest billingdomain.BillingPeriod
	err := tx.
		Where("subscriber_id = ?", sub.ID).
		Order("year DESC, month DESC").
		First(&latest).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	key := billingdomain.PeriodKey{Year: now.UTC().Year(), Month: int(now.UTC().Month())}
	if err == nil {
		key = billingdomain.PeriodKey{Year: latest.Year, Month: latest.Month + 1}
		if key.Month > 12 {
			key.Month = 1
			key.Year++
		}
	}

	period := billingdomain.BillingPeriod{
		ID:           s.genID.Generate(),
		SubscriberID: sub.ID,
		Year:         key.Year,
		Month:        key.Month,
		Amount:       sub.PlanPrice,
		DueDate:      billingdomain.DueDate(key, sub.RegisteredOn),
		Status:       billingdomain.PeriodPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.Create(&period).Error; err != nil {
		return nil, err
	}
	return &period, nil
}

func (s *Service) ListPayments(ctx context.Context, subscriberID snowflake.ID) ([]paymentdomain.Payment, error) {
	sub, err := s.subscribers.FindByID(ctx, s.db.WithContext(ctx), subscriberID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, billingdomain.ErrUnknownSubscriber
	}

	var payments []paymentdomain.Payment
	if err := s.db.WithContext(ctx).
		Where("subscriber_id = ?", subscriberID).
		Order("paid_on DESC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (s *Service) GetAggregateStats(ctx context.Context) (*billingdomain.AggregateStats, error) {
	subs, err := s.subscribers.ListActive(ctx, s.db.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	stats := billingdomain.AggregateStats{
		TotalOutstandingDebt: decimal.Zero,
		AverageDebt:          decimal.Zero,
	}
	now := s.clock.Now()
	debtors := 0
	for i := range subs {
		sub := subs[i]
		var snap *billingdomain.DebtSnapshot
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			snap, err = s.snapshotLocked(ctx, tx, &sub, now)
			return err
		})
		if err != nil {
			s.log.Warn("stats snapshot failed",
				zap.String("subscriber_id", sub.ID.String()),
				zap.Error(err),
			)
			continue
		}

		switch snap.State {
		case billingdomain.StateCurrent:
			stats.CountCurrent++
		case billingdomain.StateUpcomingDue:
			stats.CountUpcomingDue++
		case billingdomain.StateOverdue:
			stats.CountOverdue++
		case billingdomain.StatePendingDisconnection:
			stats.CountPendingDisconnection++
		}
		if snap.TotalDue.GreaterThan(decimal.Zero) {
			stats.TotalOutstandingDebt = stats.TotalOutstandingDebt.Add(snap.TotalDue)
			debtors++
		}
	}
	if debtors > 0 {
		stats.AverageDebt = stats.TotalOutstandingDebt.
			Div(decimal.NewFromInt(int64(debtors))).
			Round(2)
	}
	return &stats, nil
}

func newReceiptNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("RC-%s-%s", now.UTC().Format("20060102"), suffix)
}

func startOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
