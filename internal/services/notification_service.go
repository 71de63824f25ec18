package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/farmlink/marketplace/internal/broker"
	"github.com/farmlink/marketplace/internal/models"
	"github.com/farmlink/marketplace/internal/realtime"
	apperrors "github.com/farmlink/marketplace/pkg/errors"
	"github.com/farmlink/marketplace/pkg/logger"
	"github.com/farmlink/marketplace/pkg/metrics"
)

// NotificationDTO represents the API-friendly notification payload.
type NotificationDTO struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Link      string         `json:"link,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	IsRead    bool           `json:"is_read"`
	CreatedAt time.Time      `json:"created_at"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
}

// NotifyInput defines the attributes of a notification to persist.
type NotifyInput struct {
	UserID   string
	Type     models.NotificationType
	Title    string
	Message  string
	Link     string
	Metadata map[string]any
}

// ListNotificationsInput defines filters for querying user notifications.
type ListNotificationsInput struct {
	UserID     string
	UnreadOnly bool
	Page       Page
}

// NotificationEventPayload represents data sent to realtime consumers.
type NotificationEventPayload struct {
	Notification   *NotificationDTO `json:"notification,omitempty"`
	NotificationID string           `json:"notification_id,omitempty"`
}

// Notifier is the best-effort notification writer used by other services.
type Notifier interface {
	Notify(ctx context.Context, input NotifyInput)
}

// NotificationService manages in-app notifications.
type NotificationService struct {
	db        *gorm.DB
	hub       *realtime.Hub
	publisher broker.Publisher
	log       *zap.Logger
	now       func() time.Time
}

// NewNotificationService constructs a NotificationService. hub and publisher are optional.
func NewNotificationService(db *gorm.DB, hub *realtime.Hub, publisher broker.Publisher) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	if publisher == nil {
		publisher = broker.NopPublisher{}
	}
	return &NotificationService{
		db:        db,
		hub:       hub,
		publisher: publisher,
		log:       logger.WithModule("notifications"),
		now:       utcNow,
	}, nil
}

// Notify persists a notification and never reports failure to the caller. Errors,
// including invalid input, are logged and counted. A blank title falls back to the type tag.
func (s *NotificationService) Notify(ctx context.Context, input NotifyInput) {
	if strings.TrimSpace(input.Title) == "" {
		input.Title = string(input.Type)
	}
	if _, err := s.Create(ctx, input); err != nil {
		s.log.Warn("notification write failed",
			zap.String("user_id", input.UserID),
			zap.String("type", string(input.Type)),
			zap.Error(err),
		)
	}
}

// Create validates and stores a notification, then fans it out to the realtime hub and the broker.
func (s *NotificationService) Create(ctx context.Context, input NotifyInput) (dto *NotificationDTO, err error) {
	ctx = ensureContext(ctx)
	defer func() {
		metrics.NotificationWrites.WithLabelValues(string(input.Type), metrics.Result(err)).Inc()
	}()

	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, apperrors.NewBadRequest("notification user is required")
	}
	if !input.Type.Valid() {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown notification type %q", input.Type))
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewBadRequest("notification title is required")
	}

	metadata, err := encodeJSON(input.Metadata)
	if err != nil {
		return nil, fmt.Errorf("notification service: marshal metadata: %w", err)
	}

	notification := models.Notification{
		UserID:   userID,
		Type:     input.Type,
		Title:    title,
		Message:  strings.TrimSpace(input.Message),
		Link:     strings.TrimSpace(input.Link),
		Metadata: metadata,
	}
	if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
		return nil, fmt.Errorf("notification service: create notification: %w", err)
	}

	created := mapNotification(notification)
	s.broadcast(userID, realtime.EventNotificationCreated, &NotificationEventPayload{Notification: &created})
	s.publish(ctx, created)
	return &created, nil
}

// ListForUser returns notifications for the supplied user ordered by recency, with the total count.
func (s *NotificationService) ListForUser(ctx context.Context, input ListNotificationsInput) ([]NotificationDTO, int64, error) {
	ctx = ensureContext(ctx)
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, 0, apperrors.ErrUnauthorized
	}
	page := input.Page.Normalised()

	query := s.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if input.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("notification service: count notifications: %w", err)
	}

	var rows []models.Notification
	if err := query.
		Order("created_at DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("notification service: list notifications: %w", err)
	}

	items := make([]NotificationDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapNotification(row))
	}
	return items, total, nil
}

// UnreadCount returns the number of unread notifications for the user.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(userID) == "" {
		return 0, nil
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("notification service: unread count: %w", err)
	}
	return count, nil
}

// MarkRead sets the notification read flag for a user.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) (*NotificationDTO, error) {
	now := s.now()
	return s.setRead(ctx, userID, notificationID, map[string]any{"is_read": true, "read_at": now}, func(n *models.Notification) {
		n.IsRead = true
		n.ReadAt = &now
	})
}

// MarkUnread clears the notification read flag.
func (s *NotificationService) MarkUnread(ctx context.Context, userID, notificationID string) (*NotificationDTO, error) {
	return s.setRead(ctx, userID, notificationID, map[string]any{"is_read": false, "read_at": nil}, func(n *models.Notification) {
		n.IsRead = false
		n.ReadAt = nil
	})
}

func (s *NotificationService) setRead(ctx context.Context, userID, notificationID string, updates map[string]any, apply func(*models.Notification)) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)

	var notification models.Notification
	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		First(&notification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("notification service: load notification: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&notification).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("notification service: update read flag: %w", err)
	}
	apply(&notification)

	dto := mapNotification(notification)
	s.broadcast(userID, realtime.EventNotificationRead, &NotificationEventPayload{
		Notification:   &dto,
		NotificationID: notification.ID,
	})
	return &dto, nil
}

// Delete removes a notification owned by the supplied user.
func (s *NotificationService) Delete(ctx context.Context, userID, notificationID string) error {
	ctx = ensureContext(ctx)
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return fmt.Errorf("notification service: delete notification: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}

	s.broadcast(userID, realtime.EventNotificationDeleted, &NotificationEventPayload{NotificationID: notificationID})
	return nil
}

// MarkAllRead marks all notifications for the user as read and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	ctx = ensureContext(ctx)
	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{"is_read": true, "read_at": s.now()})
	if result.Error != nil {
		return 0, fmt.Errorf("notification service: mark all read: %w", result.Error)
	}

	s.broadcast(userID, realtime.EventNotificationsReadAll, nil)
	return result.RowsAffected, nil
}

// PurgeRead deletes read notifications created before cutoff.
func (s *NotificationService) PurgeRead(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	result := s.db.WithContext(ctx).
		Where("is_read = ? AND created_at < ?", true, cutoff.UTC()).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("notification service: purge read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *NotificationService) broadcast(userID, event string, payload *NotificationEventPayload) {
	if s.hub == nil {
		return
	}
	message := realtime.Message{Event: event}
	if payload != nil {
		message.Data = payload
	}
	s.hub.Publish(realtime.StreamNotifications, userID, message)
}

func (s *NotificationService) publish(ctx context.Context, dto NotificationDTO) {
	event := broker.NotificationEvent{
		NotificationID: dto.ID,
		UserID:         dto.UserID,
		Type:           dto.Type,
		Title:          dto.Title,
		Message:        dto.Message,
		Link:           dto.Link,
		Metadata:       dto.Metadata,
		CreatedAt:      dto.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, broker.NotificationRoutingKey(dto.Type), event); err != nil {
		s.log.Warn("broker publish failed", zap.String("notification_id", dto.ID), zap.Error(err))
	}
}

func mapNotification(row models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        row.ID,
		UserID:    row.UserID,
		Type:      string(row.Type),
		Title:     row.Title,
		Message:   row.Message,
		Link:      row.Link,
		Metadata:  decodeJSON(row.Metadata),
		IsRead:    row.IsRead,
		CreatedAt: row.CreatedAt,
		ReadAt:    row.ReadAt,
	}
}
