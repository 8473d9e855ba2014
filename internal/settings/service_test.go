package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/telandes/recaudo/internal/clock"
)

func setupSettingsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&BillingSettings{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		db.Exec("DELETE FROM billing_settings")
	})
	return db
}

func newSettingsService(t *testing.T, db *gorm.DB) *ServiceImpl {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return &ServiceImpl{
		db:    db,
		log:   zap.NewNop(),
		genID: node,
		clock: clock.Fixed(time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)),
	}
}

func TestGetFallsBackToDefaults(t *testing.T) {
	db := setupSettingsTestDB(t)
	svc := newSettingsService(t, db)

	got := svc.Get(context.Background())
	if got.NoticeDays != DefaultNoticeDays {
		t.Fatalf("notice_days = %d, want %d", got.NoticeDays, DefaultNoticeDays)
	}
	if got.CutoffGraceDays != DefaultCutoffGraceDays {
		t.Fatalf("cutoff_grace_days = %d, want %d", got.CutoffGraceDays, DefaultCutoffGraceDays)
	}
	if !got.LateFeePercent.Equal(DefaultLateFeePercent) {
		t.Fatalf("late_fee_percent = %s, want %s", got.LateFeePercent, DefaultLateFeePercent)
	}
}

func TestUpdatePersistsAndReadsBack(t *testing.T) {
	db := setupSettingsTestDB(t)
	svc := newSettingsService(t, db)

	updated, err := svc.Update(context.Background(), UpdateRequest{
		NoticeDays:      10,
		CutoffGraceDays: 7,
		LateFeePercent:  decimal.RequireFromString("3.50"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.NoticeDays != 10 {
		t.Fatalf("notice_days = %d, want 10", updated.NoticeDays)
	}

	got := svc.Get(context.Background())
	if got.NoticeDays != 10 || got.CutoffGraceDays != 7 {
		t.Fatalf("read back %+v", got)
	}
	if !got.LateFeePercent.Equal(decimal.RequireFromString("3.50")) {
		t.Fatalf("late_fee_percent = %s, want 3.50", got.LateFeePercent)
	}
}

func TestUpdateValidatesRanges(t *testing.T) {
	db := setupSettingsTestDB(t)
	svc := newSettingsService(t, db)

	_, err := svc.Update(context.Background(), UpdateRequest{
		NoticeDays:      0,
		CutoffGraceDays: 5,
		LateFeePercent:  decimal.NewFromInt(2),
	})
	if !errors.Is(err, ErrInvalidNoticeDays) {
		t.Fatalf("expected invalid_notice_days, got %v", err)
	}

	_, err = svc.Update(context.Background(), UpdateRequest{
		NoticeDays:      5,
		CutoffGraceDays: -1,
		LateFeePercent:  decimal.NewFromInt(2),
	})
	if !errors.Is(err, ErrInvalidGraceDays) {
		t.Fatalf("expected invalid_cutoff_grace_days, got %v", err)
	}

	_, err = svc.Update(context.Background(), UpdateRequest{
		NoticeDays:      5,
		CutoffGraceDays: 5,
		LateFeePercent:  decimal.RequireFromString("-1"),
	})
	if !errors.Is(err, ErrInvalidLateFee) {
		t.Fatalf("expected invalid_late_fee_percent, got %v", err)
	}
}
