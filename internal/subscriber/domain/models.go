// Package domain contains the subscriber registry model read by the
// billing engine.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// SubscriberStatus is the registry lifecycle state. Only active
// subscribers participate in billing and notification sweeps.
type SubscriberStatus string

const (
	SubscriberStatusActive    SubscriberStatus = "active"
	SubscriberStatusInactive  SubscriberStatus = "inactive"
	SubscriberStatusSuspended SubscriberStatus = "suspended"
)

// Subscriber is one customer of the service provider.
type Subscriber struct {
	ID             snowflake.ID     `gorm:"primaryKey" json:"id"`
	NationalID     string           `gorm:"type:text;not null;uniqueIndex" json:"national_id"`
	FirstNames     string           `gorm:"type:text;not null" json:"first_names"`
	LastNames      string           `gorm:"type:text;not null" json:"last_names"`
	PlanType       string           `gorm:"type:text;not null" json:"plan_type"`
	PlanPrice      decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"plan_price"`
	RegisteredOn   time.Time        `gorm:"not null" json:"registered_on"`
	Address        string           `gorm:"type:text" json:"address"`
	Sector         string           `gorm:"type:text" json:"sector"`
	Email          string           `gorm:"type:text" json:"email"`
	Phone          string           `gorm:"type:text" json:"phone"`
	TelegramChatID string           `gorm:"type:text" json:"telegram_chat_id"`
	Status         SubscriberStatus `gorm:"type:text;not null;default:'active'" json:"status"`
	CreatedAt      time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Subscriber) TableName() string { return "subscribers" }

// FullName joins first and last names for display and message templates.
func (s *Subscriber) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(s.FirstNames) + " " + strings.TrimSpace(s.LastNames))
}

// IsActive reports whether the subscriber is billed and notified.
func (s *Subscriber) IsActive() bool { return s.Status == SubscriberStatusActive }
