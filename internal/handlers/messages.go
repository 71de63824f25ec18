package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/farmlink/marketplace/internal/middleware"
	"github.com/farmlink/marketplace/internal/services"
	"github.com/farmlink/marketplace/pkg/response"
)

// MessageHandler serves direct messages between buyers and farmers.
type MessageHandler struct {
	service *services.MessageService
}

type sendMessageRequest struct {
	ReceiverID string `json:"receiver_id" validate:"required"`
	Body       string `json:"body" validate:"required,max=4000"`
}

// NewMessageHandler constructs a message handler.
func NewMessageHandler(service *services.MessageService) *MessageHandler {
	return &MessageHandler{service: service}
}

// UnreadCount reports unread messages for the caller. Anonymous callers and failed lookups get zero.
func (h *MessageHandler) UnreadCount(c *gin.Context) {
	count := h.service.UnreadCount(requestContext(c), middleware.UserID(c))
	response.Success(c, http.StatusOK, gin.H{"unreadCount": count})
}

// Send delivers a message from the caller.
func (h *MessageHandler) Send(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var payload sendMessageRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	dto, err := h.service.Send(requestContext(c), userID, services.SendMessageInput{
		ReceiverID: payload.ReceiverID,
		Body:       payload.Body,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, dto)
}

// Conversation lists the messages exchanged with another user.
func (h *MessageHandler) Conversation(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	page := pageFromQuery(c)
	items, total, err := h.service.Conversation(requestContext(c), userID, strings.TrimSpace(c.Param("userID")), page)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, items, pageMeta(page, total))
}

// MarkConversationRead marks everything the other user sent to the caller as read.
func (h *MessageHandler) MarkConversationRead(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	updated, err := h.service.MarkConversationRead(requestContext(c), userID, strings.TrimSpace(c.Param("userID")))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated": updated})
}
