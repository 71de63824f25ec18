package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/farmlink/marketplace/internal/models"
	"github.com/farmlink/marketplace/pkg/errors"
	"github.com/farmlink/marketplace/pkg/response"
)

// RoleLookup resolves the stored role of a user.
type RoleLookup interface {
	Role(ctx context.Context, userID string) (models.Role, error)
}

// RequireRole admits authenticated users whose stored role is one of roles.
// It must run after Auth.
func RequireRole(lookup RoleLookup, roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		userID := UserID(c)
		if userID == "" {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		role, err := lookup.Role(c.Request.Context(), userID)
		if err != nil {
			appErr := errors.FromError(err)
			if appErr.StatusCode == 404 {
				appErr = errors.ErrForbidden
			}
			response.Error(c, appErr)
			c.Abort()
			return
		}

		if _, ok := allowed[role]; !ok {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}

		c.Set(CtxRoleKey, role)
		c.Next()
	}
}

// IsAdmin reports whether RequireRole admitted the request as an admin, or looks the role up.
func IsAdmin(c *gin.Context, lookup RoleLookup) bool {
	if role, ok := c.Get(CtxRoleKey); ok {
		return role == models.RoleAdmin
	}
	userID := UserID(c)
	if userID == "" || lookup == nil {
		return false
	}
	role, err := lookup.Role(c.Request.Context(), userID)
	return err == nil && role == models.RoleAdmin
}
