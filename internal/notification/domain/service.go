package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var ErrDuplicateToday = errors.New("duplicate_notification_today")

// SweepResult reports creations per sweep type plus the subscribers
// whose classification failed. One subscriber's failure never aborts
// the sweep.
type SweepResult struct {
	CreatedUpcoming      int          `json:"created_upcoming"`
	CreatedOverdue       int          `json:"created_overdue"`
	CreatedDisconnection int          `json:"created_disconnection"`
	Errors               []SweepError `json:"errors,omitempty"`
}

type SweepError struct {
	SubscriberID snowflake.ID `json:"subscriber_id"`
	Reason       string       `json:"reason"`
}

type CreateRequest struct {
	SubscriberID snowflake.ID
	Type         Type
	Message      string
	Channel      Channel
}

type ListRequest struct {
	Status Status
	Type   Type
}

// Stats counts notifications grouped by status and by type.
type Stats struct {
	ByStatus map[Status]int `json:"by_status"`
	ByType   map[Type]int   `json:"by_type"`
}

// DispatchSummary reports one pass over pending notifications.
type DispatchSummary struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

type Service interface {
	RunDelinquencySweep(ctx context.Context) (*SweepResult, error)
	Create(ctx context.Context, req CreateRequest) (*Notification, error)
	SendBulk(ctx context.Context, typ Type, message string) (int, error)
	SendPending(ctx context.Context, id snowflake.ID) (*Notification, error)
	DispatchPending(ctx context.Context) (*DispatchSummary, error)
	List(ctx context.Context, req ListRequest) ([]Notification, error)
	GetStats(ctx context.Context) (*Stats, error)
}
