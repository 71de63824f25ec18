package models

import "time"

// SubscriptionStatus is the lifecycle state of a paid subscription.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionActive, SubscriptionExpired, SubscriptionCancelled:
		return true
	default:
		return false
	}
}

// Subscription is a paid plan owned by a user for a fixed window.
type Subscription struct {
	BaseModel

	UserID         string             `gorm:"type:uuid;not null;index" json:"user_id"`
	Plan           string             `gorm:"type:varchar(64);not null" json:"plan"`
	Status         SubscriptionStatus `gorm:"type:varchar(16);not null;default:'active';index" json:"status"`
	StartDate      time.Time          `gorm:"not null" json:"start_date"`
	EndDate        time.Time          `gorm:"not null;index" json:"end_date"`
	AmountPaise    int64              `gorm:"not null;default:0" json:"amount_paise"`
	ReminderSentAt *time.Time         `json:"reminder_sent_at,omitempty"`
}

// ActiveAt reports whether the subscription is active at the supplied instant:
// the status must be active and the end date strictly in the future.
func (s *Subscription) ActiveAt(now time.Time) bool {
	if s == nil {
		return false
	}
	return s.Status == SubscriptionActive && s.EndDate.After(now)
}
