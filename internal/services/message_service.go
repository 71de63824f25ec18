package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/farmlink/marketplace/internal/models"
	"github.com/farmlink/marketplace/internal/realtime"
	apperrors "github.com/farmlink/marketplace/pkg/errors"
	"github.com/farmlink/marketplace/pkg/logger"
	"github.com/farmlink/marketplace/pkg/metrics"
)

// MaxMessageLength bounds a message body in characters.
const MaxMessageLength = 4000

// MessageDTO is the API representation of a direct message.
type MessageDTO struct {
	ID         string     `json:"id"`
	SenderID   string     `json:"sender_id"`
	ReceiverID string     `json:"receiver_id"`
	Body       string     `json:"body"`
	IsRead     bool       `json:"is_read"`
	CreatedAt  time.Time  `json:"created_at"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
}

// SendMessageInput holds the fields of a new message.
type SendMessageInput struct {
	ReceiverID string
	Body       string
}

// MessageService handles direct messages between users.
type MessageService struct {
	db        *gorm.DB
	notifier  Notifier
	localizer Localizer
	hub       *realtime.Hub
	log       *zap.Logger
	now       func() time.Time
}

// MessageServiceOption customises a MessageService.
type MessageServiceOption func(*MessageService)

// WithMessageNotifier raises a new_message notification for every delivered message.
func WithMessageNotifier(notifier Notifier, localizer Localizer) MessageServiceOption {
	return func(s *MessageService) {
		s.notifier = notifier
		s.localizer = localizer
	}
}

// WithMessageHub pushes unread counts and new messages to connected clients.
func WithMessageHub(hub *realtime.Hub) MessageServiceOption {
	return func(s *MessageService) {
		s.hub = hub
	}
}

// NewMessageService constructs a MessageService.
func NewMessageService(db *gorm.DB, opts ...MessageServiceOption) (*MessageService, error) {
	if db == nil {
		return nil, errors.New("message service: db is required")
	}
	svc := &MessageService{
		db:  db,
		log: logger.WithModule("messages"),
		now: utcNow,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// UnreadCount returns how many messages addressed to userID are unread. It is best-effort:
// an empty user yields zero and storage failures are logged and reported as zero.
func (s *MessageService) UnreadCount(ctx context.Context, userID string) int64 {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0
	}

	count, err := s.countUnread(ensureContext(ctx), userID)
	if err != nil {
		metrics.UnreadCountFallbacks.Inc()
		s.log.Error("unread count failed", zap.String("user_id", userID), zap.Error(err))
		return 0
	}
	return count
}

func (s *MessageService) countUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("receiver_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// Send stores a message from senderID and notifies the receiver.
func (s *MessageService) Send(ctx context.Context, senderID string, input SendMessageInput) (*MessageDTO, error) {
	ctx = ensureContext(ctx)
	senderID = strings.TrimSpace(senderID)
	if senderID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	receiverID := strings.TrimSpace(input.ReceiverID)
	body := strings.TrimSpace(input.Body)
	switch {
	case receiverID == "":
		return nil, apperrors.NewBadRequest("receiver_id is required")
	case receiverID == senderID:
		return nil, apperrors.NewBadRequest("cannot send a message to yourself")
	case body == "":
		return nil, apperrors.NewBadRequest("message body is required")
	case utf8.RuneCountInString(body) > MaxMessageLength:
		return nil, apperrors.NewBadRequest(fmt.Sprintf("message body exceeds %d characters", MaxMessageLength))
	}

	var sender, receiver models.User
	if err := s.db.WithContext(ctx).Take(&sender, "id = ?", senderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, fmt.Errorf("message service: load sender: %w", err)
	}
	if err := s.db.WithContext(ctx).Take(&receiver, "id = ? AND is_active = ?", receiverID, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrNotFound.Code, "Recipient not found", apperrors.ErrNotFound.StatusCode)
		}
		return nil, fmt.Errorf("message service: load receiver: %w", err)
	}

	message := models.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
	}
	if err := s.db.WithContext(ctx).Create(&message).Error; err != nil {
		return nil, fmt.Errorf("message service: create message: %w", err)
	}

	dto := mapMessage(message)
	s.notifyReceiver(ctx, &sender, &receiver, dto)
	if s.hub != nil {
		s.hub.Publish(realtime.StreamMessages, receiverID, realtime.Message{Event: realtime.EventMessageReceived, Data: dto})
		s.pushUnreadCount(ctx, receiverID)
	}
	return &dto, nil
}

// Conversation lists messages exchanged between userID and otherID, newest first.
func (s *MessageService) Conversation(ctx context.Context, userID, otherID string, page Page) ([]MessageDTO, int64, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(userID) == "" {
		return nil, 0, apperrors.ErrUnauthorized
	}
	page = page.Normalised()

	query := s.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", userID, otherID, otherID, userID).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("message service: count conversation: %w", err)
	}

	var rows []models.Message
	if err := query.
		Order("created_at DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("message service: list conversation: %w", err)
	}

	items := make([]MessageDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapMessage(row))
	}
	return items, total, nil
}

// MarkConversationRead marks every unread message from otherID to userID as read.
func (s *MessageService) MarkConversationRead(ctx context.Context, userID, otherID string) (int64, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(userID) == "" {
		return 0, apperrors.ErrUnauthorized
	}

	result := s.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("receiver_id = ? AND sender_id = ? AND is_read = ?", userID, otherID, false).
		Updates(map[string]any{"is_read": true, "read_at": s.now()})
	if result.Error != nil {
		return 0, fmt.Errorf("message service: mark read: %w", result.Error)
	}

	if result.RowsAffected > 0 && s.hub != nil {
		s.pushUnreadCount(ctx, userID)
	}
	return result.RowsAffected, nil
}

func (s *MessageService) notifyReceiver(ctx context.Context, sender, receiver *models.User, dto MessageDTO) {
	if s.notifier == nil {
		return
	}

	locale := localeOf(receiver.Locale)
	title := "New message"
	text := sender.FullName + " sent you a message"
	if s.localizer != nil {
		title = s.localizer.Localize(locale, "notification.new_message.title", nil)
		text = s.localizer.Localize(locale, "notification.new_message.message", map[string]any{"Sender": sender.FullName})
	}

	s.notifier.Notify(ctx, NotifyInput{
		UserID:  receiver.ID,
		Type:    models.NotificationNewMessage,
		Title:   title,
		Message: text,
		Link:    "/messages/" + sender.ID,
		Metadata: map[string]any{
			"message_id": dto.ID,
			"sender_id":  sender.ID,
		},
	})
}

func (s *MessageService) pushUnreadCount(ctx context.Context, userID string) {
	s.hub.Publish(realtime.StreamMessages, userID, realtime.Message{
		Event: realtime.EventUnreadCount,
		Data:  UnreadCountPayload{UnreadCount: s.UnreadCount(ctx, userID)},
	})
}

// UnreadCountPayload is the wire shape of an unread count.
type UnreadCountPayload struct {
	UnreadCount int64 `json:"unreadCount"`
}

func mapMessage(row models.Message) MessageDTO {
	return MessageDTO{
		ID:         row.ID,
		SenderID:   row.SenderID,
		ReceiverID: row.ReceiverID,
		Body:       row.Body,
		IsRead:     row.IsRead,
		CreatedAt:  row.CreatedAt,
		ReadAt:     row.ReadAt,
	}
}
