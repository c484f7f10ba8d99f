package models

// NotificationType tags what event produced a notification
type NotificationType string

const (
	NotificationConsentRequest NotificationType = "consent_request"
	NotificationConsentGranted NotificationType = "consent_granted"
	NotificationConsentDenied  NotificationType = "consent_denied"
	NotificationConsentRevoked NotificationType = "consent_revoked"
	NotificationPrescription   NotificationType = "prescription"
	NotificationReport         NotificationType = "report"
)

// Notification is a lightweight fan-out record consumed by dashboard
// polling. RelatedID points at the entity the event concerns.
type Notification struct {
	BaseModel
	UserID    string           `gorm:"size:36;index;not null" json:"userId"`
	Type      NotificationType `gorm:"size:30;not null" json:"type"`
	Title     string           `gorm:"size:150;not null" json:"title"`
	Message   string           `gorm:"type:text" json:"message"`
	RelatedID string           `gorm:"size:36" json:"relatedId,omitempty"`
	IsRead    bool             `gorm:"default:false" json:"isRead"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}
