package models

import "time"

// Message is a direct message between two users.
type Message struct {
	BaseModel

	SenderID   string     `gorm:"type:uuid;not null;index" json:"sender_id"`
	ReceiverID string     `gorm:"type:uuid;not null;index:idx_messages_receiver_read" json:"receiver_id"`
	Body       string     `gorm:"type:text;not null" json:"body"`
	IsRead     bool       `gorm:"default:false;index:idx_messages_receiver_read" json:"is_read"`
	ReadAt     *time.Time `json:"read_at"`
}
