package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/farmlink/marketplace/internal/models"
	"github.com/farmlink/marketplace/internal/services"
	"github.com/farmlink/marketplace/pkg/response"
)

type UserHandler struct {
	service *services.UserService
}

type updateProfileRequest struct {
	FullName     *string `json:"full_name" validate:"omitempty,min=1,max=120"`
	Phone        *string `json:"phone" validate:"omitempty,max=32"`
	ProfileImage *string `json:"profile_image" validate:"omitempty,max=2048"`
	Locale       *string `json:"locale" validate:"omitempty,locale"`
}

func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// GET /api/users/me
func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	user, err := h.service.GetByID(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}

// PATCH /api/users/me
func (h *UserHandler) UpdateMe(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var payload updateProfileRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	user, err := h.service.UpdateProfile(requestContext(c), userID, services.UpdateProfileInput{
		FullName:     payload.FullName,
		Phone:        payload.Phone,
		ProfileImage: payload.ProfileImage,
		Locale:       payload.Locale,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}

// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	page := pageFromQuery(c)
	users, total, err := h.service.List(requestContext(c), services.ListUsersOptions{
		Role:  models.Role(strings.TrimSpace(c.Query("role"))),
		Query: c.Query("q"),
		Page:  page,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, users, pageMeta(page, total))
}
