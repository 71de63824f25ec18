package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/farmlink/marketplace/internal/middleware"
	"github.com/farmlink/marketplace/internal/services"
	"github.com/farmlink/marketplace/pkg/response"
)

// SubscriptionHandler exposes subscription status and plan management.
type SubscriptionHandler struct {
	service *services.SubscriptionService
	roles   middleware.RoleLookup
}

type grantSubscriptionRequest struct {
	UserID      string `json:"user_id" validate:"required"`
	Plan        string `json:"plan" validate:"required,max=64"`
	Days        int    `json:"days" validate:"gt=0"`
	AmountPaise int64  `json:"amount_paise" validate:"gte=0"`
}

// NewSubscriptionHandler constructs a subscription handler. roles decides whether a caller may
// cancel plans owned by someone else.
func NewSubscriptionHandler(service *services.SubscriptionService, roles middleware.RoleLookup) *SubscriptionHandler {
	return &SubscriptionHandler{service: service, roles: roles}
}

// Status reports whether the caller holds an active plan.
func (h *SubscriptionHandler) Status(c *gin.Context) {
	status, err := h.service.Status(requestContext(c), middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, status)
}

// Grant starts a plan for a user.
func (h *SubscriptionHandler) Grant(c *gin.Context) {
	var payload grantSubscriptionRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	dto, err := h.service.Grant(requestContext(c), services.GrantSubscriptionInput{
		UserID:      payload.UserID,
		Plan:        payload.Plan,
		Days:        payload.Days,
		AmountPaise: payload.AmountPaise,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, dto)
}

// Cancel ends a plan owned by the caller, or any plan when the caller is an admin.
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	dto, err := h.service.Cancel(requestContext(c), userID, middleware.IsAdmin(c, h.roles), strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, dto)
}
