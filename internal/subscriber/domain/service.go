package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Service manages subscriber records for the back office.
type Service interface {
	Create(ctx context.Context, req CreateSubscriberRequest) (*Subscriber, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateSubscriberRequest) (*Subscriber, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Subscriber, error)
	List(ctx context.Context, req ListSubscriberRequest) ([]Subscriber, error)
	Deactivate(ctx context.Context, id snowflake.ID) error
}

type CreateSubscriberRequest struct {
	NationalID     string
	FirstNames     string
	LastNames      string
	PlanType       string
	PlanPrice      decimal.Decimal
	RegisteredOn   time.Time
	Address        string
	Sector         string
	Email          string
	Phone          string
	TelegramChatID string
}

type UpdateSubscriberRequest struct {
	FirstNames     *string
	LastNames      *string
	PlanType       *string
	PlanPrice      *decimal.Decimal
	Address        *string
	Sector         *string
	Email          *string
	Phone          *string
	TelegramChatID *string
	Status         *SubscriberStatus
}

type ListSubscriberRequest struct {
	Search string
	Status SubscriberStatus
}

var (
	ErrNotFound            = errors.New("unknown_subscriber")
	ErrInvalidNationalID   = errors.New("invalid_national_id")
	ErrDuplicateNationalID = errors.New("national_id_already_registered")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidPlanPrice    = errors.New("invalid_plan_price")
	ErrInvalidRegistration = errors.New("invalid_registration_date")
	ErrInvalidStatus       = errors.New("invalid_status")
)
