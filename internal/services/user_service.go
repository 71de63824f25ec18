package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/farmlink/marketplace/internal/i18n"
	"github.com/farmlink/marketplace/internal/models"
	apperrors "github.com/farmlink/marketplace/pkg/errors"
)

// ErrUserNotFound indicates the requested user does not exist.
var ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)

// UserDTO is the API representation of an account.
type UserDTO struct {
	ID           string    `json:"id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	Role         string    `json:"role"`
	ProfileImage string    `json:"profile_image,omitempty"`
	Locale       string    `json:"locale"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// UpdateProfileInput enumerates the profile fields an owner may change. Nil fields are untouched.
type UpdateProfileInput struct {
	FullName     *string
	Phone        *string
	ProfileImage *string
	Locale       *string
}

// ListUsersOptions filters the admin user listing.
type ListUsersOptions struct {
	Role  models.Role
	Query string
	Page  Page
}

// UserService reads accounts and edits profile fields.
type UserService struct {
	db *gorm.DB
}

// NewUserService constructs a UserService.
func NewUserService(db *gorm.DB) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db}, nil
}

// GetByID loads a user by identifier.
func (s *UserService) GetByID(ctx context.Context, id string) (*UserDTO, error) {
	user, err := s.load(ensureContext(ctx), id)
	if err != nil {
		return nil, err
	}
	dto := mapUser(*user)
	return &dto, nil
}

// Role returns the role of an active user.
func (s *UserService) Role(ctx context.Context, id string) (models.Role, error) {
	user, err := s.load(ensureContext(ctx), id)
	if err != nil {
		return "", err
	}
	if !user.IsActive {
		return "", apperrors.ErrForbidden
	}
	return user.Role, nil
}

func (s *UserService) load(ctx context.Context, id string) (*models.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrUserNotFound
	}

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user: %w", err)
	}
	return &user, nil
}

// UpdateProfile applies a partial profile update for the owner.
func (s *UserService) UpdateProfile(ctx context.Context, id string, input UpdateProfileInput) (*UserDTO, error) {
	ctx = ensureContext(ctx)

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.FullName != nil {
		name := strings.TrimSpace(*input.FullName)
		if name == "" {
			return nil, apperrors.NewBadRequest("full_name must not be empty")
		}
		updates["full_name"] = name
	}
	if input.Phone != nil {
		updates["phone"] = strings.TrimSpace(*input.Phone)
	}
	if input.ProfileImage != nil {
		updates["profile_image"] = strings.TrimSpace(*input.ProfileImage)
	}
	if input.Locale != nil {
		locale := strings.TrimSpace(*input.Locale)
		if !i18n.IsSupported(locale) {
			return nil, apperrors.NewBadRequest(fmt.Sprintf("unsupported locale %q", locale))
		}
		updates["locale"] = locale
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("user service: update profile: %w", err)
		}
		if user, err = s.load(ctx, id); err != nil {
			return nil, err
		}
	}

	dto := mapUser(*user)
	return &dto, nil
}

// List retrieves users matching the supplied filters with pagination.
func (s *UserService) List(ctx context.Context, opts ListUsersOptions) ([]UserDTO, int64, error) {
	ctx = ensureContext(ctx)
	page := opts.Page.Normalised()

	query := s.db.WithContext(ctx).Model(&models.User{})
	if opts.Role != "" {
		if !opts.Role.Valid() {
			return nil, 0, apperrors.NewBadRequest(fmt.Sprintf("unknown role %q", opts.Role))
		}
		query = query.Where("role = ?", opts.Role)
	}
	if q := strings.TrimSpace(opts.Query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(full_name) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("user service: count users: %w", err)
	}

	var rows []models.User
	if err := query.
		Order("created_at DESC").
		Offset(page.Offset).
		Limit(page.Limit).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("user service: list users: %w", err)
	}

	items := make([]UserDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapUser(row))
	}
	return items, total, nil
}

func mapUser(row models.User) UserDTO {
	return UserDTO{
		ID:           row.ID,
		FullName:     row.FullName,
		Email:        row.Email,
		Phone:        row.Phone,
		Role:         string(row.Role),
		ProfileImage: row.ProfileImage,
		Locale:       defaultIfEmpty(row.Locale, i18n.Default.String()),
		IsActive:     row.IsActive,
		CreatedAt:    row.CreatedAt,
	}
}
