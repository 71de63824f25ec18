package database

import (
	"gorm.io/gorm"

	"github.com/farmlink/marketplace/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Message{},
		&models.Subscription{},
		&models.Notification{},
		&models.CacheEntry{},
	)
}
