package pockets

import (
	"fmt"

	"github.com/poverty-pockets/pockets-backend/internal/census"
	"github.com/poverty-pockets/pockets-backend/internal/db"
	"gorm.io/gorm"
)

// Migrate ensures the pockets schema and its tables exist.
func Migrate(d *gorm.DB) error {
	if err := db.EnsureSchema(d, db.Schema); err != nil {
		return fmt.Errorf("ensure schema %s: %w", db.Schema, err)
	}
	if err := d.AutoMigrate(
		&census.CachedResponse{},
		&LoadRun{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
