// Package repository implements the subscriber read-side over GORM.
package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	subscriberdomain "github.com/telandes/recaudo/internal/subscriber/domain"
)

type GormRepository struct{}

func New() subscriberdomain.Repository {
	return &GormRepository{}
}

func (r *GormRepository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*subscriberdomain.Subscriber, error) {
	var sub subscriberdomain.Subscriber
	err := db.WithContext(ctx).First(&sub, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *GormRepository) ListActive(ctx context.Context, db *gorm.DB) ([]subscriberdomain.Subscriber, error) {
	var subs []subscriberdomain.Subscriber
	err := db.WithContext(ctx).
		Where("status = ?", subscriberdomain.SubscriberStatusActive).
		Order("id").
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}
