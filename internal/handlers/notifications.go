package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/farmlink/marketplace/internal/auth"
	"github.com/farmlink/marketplace/internal/middleware"
	"github.com/farmlink/marketplace/internal/models"
	"github.com/farmlink/marketplace/internal/realtime"
	"github.com/farmlink/marketplace/internal/services"
	"github.com/farmlink/marketplace/pkg/errors"
	"github.com/farmlink/marketplace/pkg/response"
)

// NotificationHandler exposes HTTP endpoints for notifications.
type NotificationHandler struct {
	service *services.NotificationService
	hub     *realtime.Hub
	jwt     *iauth.JWTService
}

type createNotificationRequest struct {
	UserID   string         `json:"user_id" validate:"required"`
	Type     string         `json:"type" validate:"required,notification_type"`
	Title    string         `json:"title" validate:"required,max=200"`
	Message  string         `json:"message" validate:"max=2000"`
	Link     string         `json:"link" validate:"max=512"`
	Metadata map[string]any `json:"metadata"`
}

// NewNotificationHandler constructs a notification handler. hub and jwt are only needed by Stream.
func NewNotificationHandler(service *services.NotificationService, hub *realtime.Hub, jwt *iauth.JWTService) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		hub:     hub,
		jwt:     jwt,
	}
}

// List returns notifications for the current user.
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	page := pageFromQuery(c)
	items, total, err := h.service.ListForUser(requestContext(c), services.ListNotificationsInput{
		UserID:     userID,
		UnreadOnly: c.Query("unread") == "true",
		Page:       page,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, items, pageMeta(page, total))
}

// UnreadCount returns the number of unread notifications.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	count, err := h.service.UnreadCount(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"unreadCount": count})
}

// MarkRead toggles a notification to read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	h.updateReadState(c, true)
}

// MarkUnread toggles a notification to unread.
func (h *NotificationHandler) MarkUnread(c *gin.Context) {
	h.updateReadState(c, false)
}

func (h *NotificationHandler) updateReadState(c *gin.Context, read bool) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	var dto *services.NotificationDTO
	var err error
	if read {
		dto, err = h.service.MarkRead(requestContext(c), userID, id)
	} else {
		dto, err = h.service.MarkUnread(requestContext(c), userID, id)
	}

	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, dto)
}

// Delete removes a notification.
func (h *NotificationHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if err := h.service.Delete(requestContext(c), userID, id); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// MarkAllRead marks all notifications read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	updated, err := h.service.MarkAllRead(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated": updated})
}

// Create lets administrators raise a notification for any user.
func (h *NotificationHandler) Create(c *gin.Context) {
	var payload createNotificationRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	dto, err := h.service.Create(requestContext(c), services.NotifyInput{
		UserID:   payload.UserID,
		Type:     models.NotificationType(strings.TrimSpace(payload.Type)),
		Title:    payload.Title,
		Message:  payload.Message,
		Link:     payload.Link,
		Metadata: payload.Metadata,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, dto)
}

// Stream upgrades the connection to a WebSocket carrying notification and message events.
// Browsers cannot set headers on the upgrade, so the token may also come from the query string
// or the session cookie.
func (h *NotificationHandler) Stream(c *gin.Context) {
	if h.jwt == nil || h.hub == nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		authz := c.GetHeader("Authorization")
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			token = strings.TrimSpace(authz[7:])
		}
	}
	if token == "" {
		if cookie, err := c.Cookie(middleware.AccessTokenCookie); err == nil {
			token = strings.TrimSpace(cookie)
		}
	}

	if token == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	claims, err := h.jwt.ValidateAccessToken(token)
	if err != nil || strings.TrimSpace(claims.UserID) == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	h.hub.Serve(claims.UserID, parseStreams(c.Query("streams")), c.Writer, c.Request)
}

func parseStreams(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	streams := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			streams = append(streams, part)
		}
	}
	return streams
}
