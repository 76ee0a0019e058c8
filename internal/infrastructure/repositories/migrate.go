package repositories

import (
	"gorm.io/gorm"

	"dao-ledger.backend/internal/infrastructure/models"
)

// MigrateChatStore creates or updates the chat store tables
func MigrateChatStore(db *gorm.DB) error {
	return db.AutoMigrate(models.ChatStoreModels()...)
}
