package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/farmlink/marketplace/internal/auth"
	"github.com/farmlink/marketplace/pkg/errors"
	"github.com/farmlink/marketplace/pkg/response"
)

const (
	CtxClaimsKey = "authClaims"
	CtxUserIDKey = "userID"
	CtxRoleKey   = "userRole"

	// AccessTokenCookie carries the session token for browser clients.
	AccessTokenCookie = "access_token"
)

// Auth enforces JWT authentication using the supplied JWT service.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, jwt) {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalAuth attaches the session identity when a valid token is present and
// otherwise lets the request continue anonymously.
func OptionalAuth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticate(c, jwt)
		c.Next()
	}
}

func authenticate(c *gin.Context, jwt *iauth.JWTService) bool {
	token := bearerToken(c)
	if token == "" || jwt == nil {
		return false
	}

	claims, err := jwt.ValidateAccessToken(token)
	if err != nil {
		return false
	}

	c.Set(CtxClaimsKey, claims)
	c.Set(CtxUserIDKey, claims.UserID)
	return true
}

func bearerToken(c *gin.Context) string {
	authz := c.GetHeader("Authorization")
	if len(authz) > 7 && strings.EqualFold(authz[:7], "Bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}

// UserID returns the authenticated user id, or an empty string.
func UserID(c *gin.Context) string {
	return c.GetString(CtxUserIDKey)
}
