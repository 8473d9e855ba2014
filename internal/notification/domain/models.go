// Package domain holds outbound notification records and the dispatch
// contract. The (subscriber, type, day) unique index is the idempotency
// guarantee for automatic sweeps.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Type string

const (
	TypeUpcomingDue          Type = "upcoming_due"
	TypeOverdue              Type = "overdue"
	TypeDisconnectionPending Type = "disconnection_pending"
	TypePromotional          Type = "promotional"
	TypeMaintenance          Type = "maintenance"
)

func ValidType(t Type) bool {
	switch t {
	case TypeUpcomingDue, TypeOverdue, TypeDisconnectionPending, TypePromotional, TypeMaintenance:
		return true
	}
	return false
}

type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

type Channel string

const (
	ChannelTelegram Channel = "telegram"
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
)

// MaxAttempts bounds operator-triggered retries of failed sends.
const MaxAttempts = 3

// Notification is one outbound message. Message text is rendered at
// creation time and never re-rendered. CreatedOn carries the creation
// date (YYYY-MM-DD) so the same-day uniqueness constraint works on
// engines without expression indexes.
type Notification struct {
	ID           snowflake.ID  `gorm:"primaryKey" json:"id"`
	SubscriberID snowflake.ID  `gorm:"uniqueIndex:ux_notifications_day;not null" json:"subscriber_id"`
	Type         Type          `gorm:"type:varchar(32);uniqueIndex:ux_notifications_day;not null" json:"type"`
	CreatedOn    string        `gorm:"type:varchar(10);uniqueIndex:ux_notifications_day;not null" json:"created_on"`
	Message      string        `gorm:"type:text;not null" json:"message"`
	Channel      Channel       `gorm:"type:varchar(16);not null" json:"channel"`
	Destination  string        `gorm:"type:varchar(128)" json:"destination,omitempty"`
	Status       Status        `gorm:"type:varchar(16);not null;default:pending" json:"status"`
	Attempts     int           `gorm:"not null;default:0" json:"attempts"`
	LastError    string        `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	SentAt       *time.Time    `json:"sent_at,omitempty"`
}

// TableName sets the database table name.
func (Notification) TableName() string { return "notifications" }

// DayKey formats a timestamp into the created_on column value.
func DayKey(t time.Time) string { return t.UTC().Format("2006-01-02") }

// Dispatcher sends one rendered message through an outbound channel.
type Dispatcher interface {
	Send(ctx context.Context, destination, message string) error
}

var (
	ErrNotFound           = errors.New("notification_not_found")
	ErrNotPending         = errors.New("notification_not_pending")
	ErrAttemptsExhausted  = errors.New("notification_attempts_exhausted")
	ErrInvalidType        = errors.New("invalid_notification_type")
	ErrInvalidMessage     = errors.New("invalid_message")
	ErrNoDestination      = errors.New("missing_destination")
	ErrUnsupportedChannel = errors.New("unsupported_channel")
)
