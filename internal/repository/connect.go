package repository

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect opens the Postgres connection, grounded on
// SServet-fakturierung-backend/database/db.go's gorm.Open(postgres.Open(...))
// call.
func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return db, nil
}

// AutoMigrate creates/updates every table this module owns.
func AutoMigrate(db *gorm.DB) error {
	if err := AutoMigrateTenants(db); err != nil {
		return err
	}
	if err := AutoMigrateCredentials(db); err != nil {
		return err
	}
	if err := AutoMigrateJobs(db); err != nil {
		return err
	}
	return nil
}
