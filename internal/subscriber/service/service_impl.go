package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/telandes/recaudo/internal/clock"
	subscriberdomain "github.com/telandes/recaudo/internal/subscriber/domain"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(p Params) subscriberdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("subscriber.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) Create(ctx context.Context, req subscriberdomain.CreateSubscriberRequest) (*subscriberdomain.Subscriber, error) {
	nationalID := strings.TrimSpace(req.NationalID)
	if !subscriberdomain.ValidNationalID(nationalID) {
		return nil, subscriberdomain.ErrInvalidNationalID
	}
	first := strings.TrimSpace(req.FirstNames)
	last := strings.TrimSpace(req.LastNames)
	if first == "" || last == "" {
		return nil, subscriberdomain.ErrInvalidName
	}
	if req.PlanPrice.LessThanOrEqual(decimal.Zero) {
		return nil, subscriberdomain.ErrInvalidPlanPrice
	}

	now := s.clock.Now()
	registeredOn := req.RegisteredOn
	if registeredOn.IsZero() {
		registeredOn = now
	}
	if registeredOn.After(now) {
		return nil, subscriberdomain.ErrInvalidRegistration
	}

	sub := subscriberdomain.Subscriber{
		ID:             s.genID.Generate(),
		NationalID:     nationalID,
		FirstNames:     first,
		LastNames:      last,
		PlanType:       strings.TrimSpace(req.PlanType),
		PlanPrice:      req.PlanPrice,
		RegisteredOn:   registeredOn,
		Address:        strings.TrimSpace(req.Address),
		Sector:         strings.TrimSpace(req.Sector),
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:          strings.TrimSpace(req.Phone),
		TelegramChatID: strings.TrimSpace(req.TelegramChatID),
		Status:         subscriberdomain.SubscriberStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&subscriberdomain.Subscriber{}).
			Where("national_id = ?", nationalID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return subscriberdomain.ErrDuplicateNationalID
		}
		return tx.Create(&sub).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("subscriber created",
		zap.String("subscriber_id", sub.ID.String()),
		zap.String("plan_type", sub.PlanType),
	)
	return &sub, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req subscriberdomain.UpdateSubscriberRequest) (*subscriberdomain.Subscriber, error) {
	var updated subscriberdomain.Subscriber
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub subscriberdomain.Subscriber
		if err := tx.First(&sub, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return subscriberdomain.ErrNotFound
			}
			return err
		}

		applyString := func(dst *string, src *string) {
			if src != nil {
				*dst = strings.TrimSpace(*src)
			}
		}
		applyString(&sub.FirstNames, req.FirstNames)
		applyString(&sub.LastNames, req.LastNames)
		applyString(&sub.PlanType, req.PlanType)
		applyString(&sub.Address, req.Address)
		applyString(&sub.Sector, req.Sector)
		applyString(&sub.Phone, req.Phone)
		applyString(&sub.TelegramChatID, req.TelegramChatID)
		if req.Email != nil {
			sub.Email = strings.ToLower(strings.TrimSpace(*req.Email))
		}
		if req.PlanPrice != nil {
			if req.PlanPrice.LessThanOrEqual(decimal.Zero) {
				return subscriberdomain.ErrInvalidPlanPrice
			}
			sub.PlanPrice = *req.PlanPrice
		}
		if req.Status != nil {
			switch *req.Status {
			case subscriberdomain.SubscriberStatusActive,
				subscriberdomain.SubscriberStatusInactive,
				subscriberdomain.SubscriberStatusSuspended:
				sub.Status = *req.Status
			default:
				return subscriberdomain.ErrInvalidStatus
			}
		}
		if sub.FirstNames == "" || sub.LastNames == "" {
			return subscriberdomain.ErrInvalidName
		}

		sub.UpdatedAt = s.clock.Now()
		if err := tx.Save(&sub).Error; err != nil {
			return err
		}
		updated = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*subscriberdomain.Subscriber, error) {
	var sub subscriberdomain.Subscriber
	err := s.db.WithContext(ctx).First(&sub, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, subscriberdomain.ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (s *Service) List(ctx context.Context, req subscriberdomain.ListSubscriberRequest) ([]subscriberdomain.Subscriber, error) {
	query := s.db.WithContext(ctx).Model(&subscriberdomain.Subscriber{})
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if search := strings.TrimSpace(req.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"lower(first_names) LIKE ? OR lower(last_names) LIKE ? OR national_id LIKE ? OR lower(email) LIKE ?",
			like, like, like, like,
		)
	}

	var subs []subscriberdomain.Subscriber
	if err := query.Order("registered_on DESC").Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func (s *Service) Deactivate(ctx context.Context, id snowflake.ID) error {
	result := s.db.WithContext(ctx).Model(&subscriberdomain.Subscriber{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     subscriberdomain.SubscriberStatusInactive,
			"updated_at": s.clock.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return subscriberdomain.ErrNotFound
	}
	s.log.Info("subscriber deactivated", zap.String("subscriber_id", id.String()))
	return nil
}
