package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	billingdomain "github.com/telandes/recaudo/internal/billing/domain"
	"github.com/telandes/recaudo/internal/clock"
	"github.com/telandes/recaudo/internal/notification/dispatch"
	"github.com/telandes/recaudo/internal/notification/domain"
	subscriberdomain "github.com/telandes/recaudo/internal/subscriber/domain"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Billing     billingdomain.Service
	Subscribers subscriberdomain.Repository
	Registry    *dispatch.Registry
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	billing     billingdomain.Service
	subscribers subscriberdomain.Repository
	registry    *dispatch.Registry
}

func NewService(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("notification.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		billing:     p.Billing,
		subscribers: p.Subscribers,
		registry:    p.Registry,
	}
}

// stateToType maps delinquency states that warrant a notice to their
// notification type. Current subscribers map to nothing.
var stateToType = map[billingdomain.DelinquencyState]domain.Type{
	billingdomain.StateUpcomingDue:          domain.TypeUpcomingDue,
	billingdomain.StateOverdue:              domain.TypeOverdue,
	billingdomain.StatePendingDisconnection: domain.TypeDisconnectionPending,
}

func (s *Service) RunDelinquencySweep(ctx context.Context) (*domain.SweepResult, error) {
	subs, err := s.subscribers.ListActive(ctx, s.db.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	type candidate struct {
		sub  subscriberdomain.Subscriber
		snap *billingdomain.DebtSnapshot
	}
	result := &domain.SweepResult{}
	candidates := make(map[domain.Type][]candidate)
	for i := range subs {
		sub := subs[i]
		snap, err := s.billing.GetDebtSnapshot(ctx, sub.ID, nil)
		if err != nil {
			result.Errors = append(result.Errors, domain.SweepError{
				SubscriberID: sub.ID,
				Reason:       err.Error(),
			})
			continue
		}
		typ, ok := stateToType[snap.State]
		if !ok {
			continue
		}
		// An upcoming-due notice fires inside the cycle, before
		// OwesPayment turns true. The gate covers missed payments only.
		if typ != domain.TypeUpcomingDue && !snap.OwesPayment {
			continue
		}
		candidates[typ] = append(candidates[typ], candidate{sub: sub, snap: snap})
	}

	// Three independent sweeps, one per type. Each insert is gated by
	// the same-day unique index, so reruns create nothing.
	for _, typ := range []domain.Type{
		domain.TypeUpcomingDue,
		domain.TypeOverdue,
		domain.TypeDisconnectionPending,
	} {
		for _, c := range candidates[typ] {
			message, err := domain.RenderMessage(typ, domain.TemplateData{
				Name:     c.sub.FullName(),
				Amount:   c.snap.TotalDue,
				PlanType: c.sub.PlanType,
			})
			if err != nil {
				result.Errors = append(result.Errors, domain.SweepError{
					SubscriberID: c.sub.ID,
					Reason:       err.Error(),
				})
				continue
			}
			created, err := s.insertIdempotent(ctx, c.sub, typ, message)
			if err != nil {
				result.Errors = append(result.Errors, domain.SweepError{
					SubscriberID: c.sub.ID,
					Reason:       err.Error(),
				})
				continue
			}
			if created {
				switch typ {
				case domain.TypeUpcomingDue:
					result.CreatedUpcoming++
				case domain.TypeOverdue:
					result.CreatedOverdue++
				case domain.TypeDisconnectionPending:
					result.CreatedDisconnection++
				}
			}
		}
	}

	s.log.Info("delinquency sweep finished",
		zap.Int("created_upcoming", result.CreatedUpcoming),
		zap.Int("created_overdue", result.CreatedOverdue),
		zap.Int("created_disconnection", result.CreatedDisconnection),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

// insertIdempotent creates one pending notification unless one of the
// same (subscriber, type) already exists today. Returns whether a row
// was written.
func (s *Service) insertIdempotent(ctx context.Context, sub subscriberdomain.Subscriber, typ domain.Type, message string) (bool, error) {
	now := s.clock.Now()
	row := domain.Notification{
		ID:           s.genID.Generate(),
		SubscriberID: sub.ID,
		Type:         typ,
		CreatedOn:    domain.DayKey(now),
		Message:      message,
		Channel:      domain.ChannelTelegram,
		Destination:  sub.TelegramChatID,
		Status:       domain.StatusPending,
		CreatedAt:    now,
	}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Notification, error) {
	if !domain.ValidType(req.Type) {
		return nil, domain.ErrInvalidType
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, domain.ErrInvalidMessage
	}

	sub, err := s.subscribers.FindByID(ctx, s.db.WithContext(ctx), req.SubscriberID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, billingdomain.ErrUnknownSubscriber
	}

	channel := req.Channel
	if channel == "" {
		channel = domain.ChannelTelegram
	}

	now := s.clock.Now()
	row := domain.Notification{
		ID:           s.genID.Generate(),
		SubscriberID: sub.ID,
		Type:         req.Type,
		CreatedOn:    domain.DayKey(now),
		Message:      strings.TrimSpace(req.Message),
		Channel:      channel,
		Destination:  sub.TelegramChatID,
		Status:       domain.StatusPending,
		CreatedAt:    now,
	}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, domain.ErrDuplicateToday
	}
	return &row, nil
}

func (s *Service) SendBulk(ctx context.Context, typ domain.Type, message string) (int, error) {
	if !domain.ValidType(typ) {
		return 0, domain.ErrInvalidType
	}
	if strings.TrimSpace(message) == "" {
		return 0, domain.ErrInvalidMessage
	}

	subs, err := s.subscribers.ListActive(ctx, s.db.WithContext(ctx))
	if err != nil {
		return 0, err
	}

	created := 0
	for i := range subs {
		ok, err := s.insertIdempotent(ctx, subs[i], typ, strings.TrimSpace(message))
		if err != nil {
			s.log.Warn("bulk insert failed",
				zap.String("subscriber_id", subs[i].ID.String()),
				zap.Error(err),
			)
			continue
		}
		if ok {
			created++
		}
	}
	return created, nil
}

func (s *Service) SendPending(ctx context.Context, id snowflake.ID) (*domain.Notification, error) {
	var row domain.Notification
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	switch row.Status {
	case domain.StatusPending:
	case domain.StatusFailed:
		if row.Attempts >= domain.MaxAttempts {
			return nil, domain.ErrAttemptsExhausted
		}
	default:
		return nil, domain.ErrNotPending
	}

	if err := s.dispatch(ctx, &row); err != nil {
		return &row, err
	}
	return &row, nil
}

// dispatch sends one notification and records the outcome. A timeout
// or cancellation leaves the row pending for a later pass; any other
// failure marks it failed and counts the attempt.
func (s *Service) dispatch(ctx context.Context, row *domain.Notification) error {
	dispatcher, err := s.registry.For(row.Channel)
	if err != nil {
		return err
	}

	sendErr := dispatcher.Send(ctx, row.Destination, row.Message)
	now := s.clock.Now()
	if sendErr == nil {
		updates := map[string]any{
			"status":  domain.StatusSent,
			"sent_at": now,
		}
		if err := s.db.WithContext(ctx).Model(row).Updates(updates).Error; err != nil {
			return err
		}
		row.Status = domain.StatusSent
		row.SentAt = &now
		return nil
	}

	if errors.Is(sendErr, context.DeadlineExceeded) || errors.Is(sendErr, context.Canceled) {
		s.log.Warn("dispatch timed out, left pending",
			zap.String("notification_id", row.ID.String()),
		)
		return sendErr
	}

	attempts := row.Attempts + 1
	updates := map[string]any{
		"status":     domain.StatusFailed,
		"attempts":   attempts,
		"last_error": sendErr.Error(),
	}
	// Record the failure on a fresh context so a cancelled request
	// cannot lose the attempt count.
	if err := s.db.WithContext(context.WithoutCancel(ctx)).Model(row).Updates(updates).Error; err != nil {
		return err
	}
	row.Status = domain.StatusFailed
	row.Attempts = attempts
	row.LastError = sendErr.Error()
	return sendErr
}

func (s *Service) DispatchPending(ctx context.Context) (*domain.DispatchSummary, error) {
	var pending []domain.Notification
	err := s.db.WithContext(ctx).
		Where("status = ? AND attempts < ?", domain.StatusPending, domain.MaxAttempts).
		Order("created_at").
		Find(&pending).Error
	if err != nil {
		return nil, err
	}

	summary := &domain.DispatchSummary{}
	for i := range pending {
		if err := s.dispatch(ctx, &pending[i]); err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				break
			}
			summary.Failed++
			continue
		}
		summary.Sent++
	}
	return summary, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Notification, error) {
	query := s.db.WithContext(ctx).Model(&domain.Notification{})
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.Type != "" {
		query = query.Where("type = ?", req.Type)
	}

	var rows []domain.Notification
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Service) GetStats(ctx context.Context) (*domain.Stats, error) {
	type bucket struct {
		Key   string
		Count int
	}

	stats := &domain.Stats{
		ByStatus: make(map[domain.Status]int),
		ByType:   make(map[domain.Type]int),
	}

	var byStatus []bucket
	if err := s.db.WithContext(ctx).Model(&domain.Notification{}).
		Select("status AS key, COUNT(*) AS count").
		Group("status").
		Scan(&byStatus).Error; err != nil {
		return nil, err
	}
	for _, b := range byStatus {
		stats.ByStatus[domain.Status(b.Key)] = b.Count
	}

	var byType []bucket
	if err := s.db.WithContext(ctx).Model(&domain.Notification{}).
		Select("type AS key, COUNT(*) AS count").
		Group("type").
		Scan(&byType).Error; err != nil {
		return nil, err
	}
	for _, b := range byType {
		stats.ByType[domain.Type(b.Key)] = b.Count
	}
	return stats, nil
}
