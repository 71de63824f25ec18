package realtime

// Named realtime streams.
const (
	StreamNotifications = "notifications"
	StreamMessages      = "messages"
)

// Event names published on the streams.
const (
	EventNotificationCreated  = "notification.created"
	EventNotificationRead     = "notification.read"
	EventNotificationDeleted  = "notification.deleted"
	EventNotificationsReadAll = "notification.read_all"
	EventMessageReceived      = "message.received"
	EventUnreadCount          = "message.unread_count"
)

// DefaultStreams are joined when a client does not name any.
func DefaultStreams() []string {
	return []string{StreamNotifications, StreamMessages}
}
