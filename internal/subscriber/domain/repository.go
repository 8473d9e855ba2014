package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is the read-side view other engines use. Methods accept
// the database handle so callers can run them inside a transaction.
type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Subscriber, error)
	ListActive(ctx context.Context, db *gorm.DB) ([]Subscriber, error)
}
