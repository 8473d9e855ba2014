package settings

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/telandes/recaudo/internal/cache"
	"github.com/telandes/recaudo/internal/clock"
)

// Service reads and updates billing settings. Get never fails the
// caller over a missing row; it falls back to the documented defaults.
type Service interface {
	Get(ctx context.Context) BillingSettings
	Update(ctx context.Context, req UpdateRequest) (BillingSettings, error)
}

type UpdateRequest struct {
	NoticeDays      int
	CutoffGraceDays int
	LateFeePercent  decimal.Decimal
}

var (
	ErrInvalidNoticeDays = errors.New("invalid_notice_days")
	ErrInvalidGraceDays  = errors.New("invalid_cutoff_grace_days")
	ErrInvalidLateFee    = errors.New("invalid_late_fee_percent")
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

// cacheTTL bounds how stale a sweep can read the settings row. Short
// enough that an edit takes effect on the next tick.
const (
	cacheTTL = 30 * time.Second
	cacheKey = "billing_settings"
)

type ServiceImpl struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	cache *cache.TTLCache[string, BillingSettings]
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:    p.DB,
		log:   p.Log.Named("settings.service"),
		genID: p.GenID,
		clock: p.Clock,
		cache: cache.NewTTLCache[string, BillingSettings](),
	}
}

func (s *ServiceImpl) Get(ctx context.Context) BillingSettings {
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached
	}

	var row BillingSettings
	err := s.db.WithContext(ctx).Order("id").First(&row).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn("settings read failed, using defaults", zap.Error(err))
		}
		return Defaults()
	}
	s.cache.Set(cacheKey, row, cacheTTL)
	return row
}

func (s *ServiceImpl) Update(ctx context.Context, req UpdateRequest) (BillingSettings, error) {
	if req.NoticeDays < 1 || req.NoticeDays > 29 {
		return BillingSettings{}, ErrInvalidNoticeDays
	}
	if req.CutoffGraceDays < 0 || req.CutoffGraceDays > 60 {
		return BillingSettings{}, ErrInvalidGraceDays
	}
	if req.LateFeePercent.IsNegative() || req.LateFeePercent.GreaterThan(decimal.NewFromInt(100)) {
		return BillingSettings{}, ErrInvalidLateFee
	}

	now := s.clock.Now()
	var updated BillingSettings
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row BillingSettings
		err := tx.Order("id").First(&row).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			row = BillingSettings{ID: s.genID.Generate()}
		}
		row.NoticeDays = req.NoticeDays
		row.CutoffGraceDays = req.CutoffGraceDays
		row.LateFeePercent = req.LateFeePercent
		row.UpdatedAt = now
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		updated = row
		return nil
	})
	if err != nil {
		return BillingSettings{}, err
	}
	s.cache.Delete(cacheKey)

	s.log.Info("billing settings updated",
		zap.Int("notice_days", updated.NoticeDays),
		zap.Int("cutoff_grace_days", updated.CutoffGraceDays),
		zap.String("late_fee_percent", updated.LateFeePercent.String()),
	)
	return updated, nil
}
