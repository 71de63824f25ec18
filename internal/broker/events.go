package broker

import "time"

// NotificationEvent is published after a notification row is stored.
type NotificationEvent struct {
	NotificationID string         `json:"notification_id"`
	UserID         string         `json:"user_id"`
	Type           string         `json:"type"`
	Title          string         `json:"title"`
	Message        string         `json:"message"`
	Link           string         `json:"link,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// NotificationRoutingKey returns the routing key for a notification type.
func NotificationRoutingKey(notificationType string) string {
	return "notification." + notificationType
}
