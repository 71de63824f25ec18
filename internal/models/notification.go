package models

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationType tags the event a notification was raised for.
type NotificationType string

const (
	NotificationOrderUpdate        NotificationType = "order_update"
	NotificationNewFollower        NotificationType = "new_follower"
	NotificationNewLike            NotificationType = "new_like"
	NotificationNewComment         NotificationType = "new_comment"
	NotificationSubscriptionExpiry NotificationType = "subscription_expiry"
	NotificationNewMessage         NotificationType = "new_message"
	NotificationSystem             NotificationType = "system"
)

// NotificationTypes lists every valid notification type.
func NotificationTypes() []NotificationType {
	return []NotificationType{
		NotificationOrderUpdate,
		NotificationNewFollower,
		NotificationNewLike,
		NotificationNewComment,
		NotificationSubscriptionExpiry,
		NotificationNewMessage,
		NotificationSystem,
	}
}

// Valid reports whether t is part of the enumeration.
func (t NotificationType) Valid() bool {
	for _, known := range NotificationTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Notification represents an in-app notification for a user.
type Notification struct {
	BaseModel

	UserID   string           `gorm:"type:uuid;not null;index" json:"user_id"`
	Type     NotificationType `gorm:"type:varchar(32);not null" json:"type"`
	Title    string           `gorm:"type:varchar(255);not null" json:"title"`
	Message  string           `gorm:"type:text" json:"message"`
	Link     string           `gorm:"type:text" json:"link"`
	Metadata datatypes.JSON   `json:"metadata"`

	IsRead bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt *time.Time `json:"read_at"`
}
