package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/farmlink/marketplace/internal/models"
	"github.com/farmlink/marketplace/pkg/errors"
)

type stubRoles map[string]models.Role

func (s stubRoles) Role(_ context.Context, userID string) (models.Role, error) {
	role, ok := s[userID]
	if !ok {
		return "", errors.ErrNotFound
	}
	return role, nil
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	lookup := stubRoles{"admin-1": models.RoleAdmin, "farmer-1": models.RoleFarmer}

	r := gin.New()
	r.GET("/admin", func(c *gin.Context) {
		c.Set(CtxUserIDKey, c.Query("as"))
		c.Next()
	}, RequireRole(lookup, models.RoleAdmin), func(c *gin.Context) {
		require.True(t, IsAdmin(c, lookup))
		c.Status(http.StatusNoContent)
	})

	cases := map[string]int{
		"admin-1":  http.StatusNoContent,
		"farmer-1": http.StatusForbidden,
		"ghost":    http.StatusForbidden,
		"":         http.StatusUnauthorized,
	}
	for user, want := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin?as="+user, nil))
		require.Equal(t, want, w.Code, user)
	}
}
