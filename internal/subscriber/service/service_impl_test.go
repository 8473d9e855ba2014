package service

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
	subscriberdomain "github.com/telandes/recaudo/internal/subscriber/domain"
)

func setupSubscriberTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&subscriberdomain.Subscriber{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		db.Exec("DELETE FROM subscribers")
	})
	return db
}

func newSubscriberService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return &Service{
		db:    db,
		log:   zap.NewNop(),
		genID: node,
		clock: clock.Fixed(time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)),
	}
}

func validCreateRequest() subscriberdomain.CreateSubscriberRequest {
	return subscriberdomain.CreateSubscriberRequest{
		NationalID: "1710034065",
		FirstNames: "Maria Jose",
		LastNames:  "Andrade Velez",
		PlanType:   "fibra-20",
		PlanPrice:  decimal.RequireFromString("20.00"),
	}
}

func TestCreateSubscriber(t *testing.T) {
	db := setupSubscriberTestDB(t)
	svc := newSubscriberService(t, db)

	sub, err := svc.Create(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sub.Status != subscriberdomain.SubscriberStatusActive {
		t.Fatalf("status = %q, want active", sub.Status)
	}
	if sub.RegisteredOn.IsZero() {
		t.Fatal("registration date should default to now")
	}
}

func TestCreateSubscriberValidation(t *testing.T) {
	db := setupSubscriberTestDB(t)
	svc := newSubscriberService(t, db)

	req := validCreateRequest()
	req.NationalID = "1710034066"
	if _, err := svc.Create(context.Background(), req); !errors.Is(err, subscriberdomain.ErrInvalidNationalID) {
		t.Fatalf("expected invalid_national_id, got %v", err)
	}

	req = validCreateRequest()
	req.FirstNames = "  "
	if _, err := svc.Create(context.Background(), req); !errors.Is(err, subscriberdomain.ErrInvalidName) {
		t.Fatalf("expected invalid_name, got %v", err)
	}

	req = validCreateRequest()
	req.PlanPrice = decimal.Zero
	if _, err := svc.Create(context.Background(), req); !errors.Is(err, subscriberdomain.ErrInvalidPlanPrice) {
		t.Fatalf("expected invalid_plan_price, got %v", err)
	}

	req = validCreateRequest()
	req.RegisteredOn = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := svc.Create(context.Background(), req); !errors.Is(err, subscriberdomain.ErrInvalidRegistration) {
		t.Fatalf("expected invalid_registration_date, got %v", err)
	}
}

func TestCreateSubscriberDuplicateNationalID(t *testing.T) {
	db := setupSubscriberTestDB(t)
	svc := newSubscriberService(t, db)

	if _, err := svc.Create(context.Background(), validCreateRequest()); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.Create(context.Background(), validCreateRequest())
	if !errors.Is(err, subscriberdomain.ErrDuplicateNationalID) {
		t.Fatalf("expected duplicate, got %v", err)
	}
}

func TestUpdateSubscriber(t *testing.T) {
	db := setupSubscriberTestDB(t)
	svc := newSubscriberService(t, db)

	sub, err := svc.Create(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newPlan := "fibra-50"
	newPrice := decimal.RequireFromString("35.00")
	updated, err := svc.Update(context.Background(), sub.ID, subscriberdomain.UpdateSubscriberRequest{
		PlanType:  &newPlan,
		PlanPrice: &newPrice,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.PlanType != "fibra-50" || !updated.PlanPrice.Equal(newPrice) {
		t.Fatalf("update not applied: %+v", updated)
	}

	bad := subscriberdomain.SubscriberStatus("churned")
	if _, err := svc.Update(context.Background(), sub.ID, subscriberdomain.UpdateSubscriberRequest{
		Status: &bad,
	}); !errors.Is(err, subscriberdomain.ErrInvalidStatus) {
		t.Fatalf("expected invalid_status, got %v", err)
	}
}

func TestDeactivateSubscriber(t *testing.T) {
	db := setupSubscriberTestDB(t)
	svc := newSubscriberService(t, db)

	sub, err := svc.Create(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Deactivate(context.Background(), sub.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	got, err := svc.GetByID(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != subscriberdomain.SubscriberStatusInactive {
		t.Fatalf("status = %q, want inactive", got.Status)
	}

	if err := svc.Deactivate(context.Background(), snowflake.ID(424242)); !errors.Is(err, subscriberdomain.ErrNotFound) {
		t.Fatalf("expected unknown_subscriber, got %v", err)
	}
}
