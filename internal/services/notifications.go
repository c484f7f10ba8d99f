package services

import (
	"gorm.io/gorm"

	"carelink-server/internal/models"
)

// CreateNotification writes a dashboard notification row. Runs on the
// caller's transaction so the fan-out record commits with the event that
// produced it.
func CreateNotification(tx *gorm.DB, userID string, ntype models.NotificationType, title, message, relatedID string) error {
	return tx.Create(&models.Notification{
		UserID:    userID,
		Type:      ntype,
		Title:     title,
		Message:   message,
		RelatedID: relatedID,
	}).Error
}
