// Package seed bootstraps required rows at startup.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/telandes/recaudo/internal/settings"
)

// EnsureBillingSettings inserts the documented default billing settings
// when the table is empty, so the thresholds are visible and editable
// from day one.
func EnsureBillingSettings(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&settings.BillingSettings{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		row := settings.Defaults()
		row.ID = node.Generate()
		row.UpdatedAt = time.Now().UTC()
		return tx.Create(&row).Error
	})
}
