package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/farmlink/marketplace/internal/middleware"
	"github.com/farmlink/marketplace/pkg/errors"
	"github.com/farmlink/marketplace/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// requireUser returns the authenticated user id or writes a 401 and reports false.
func requireUser(c *gin.Context) (string, bool) {
	userID := middleware.UserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return "", false
	}
	return userID, true
}
