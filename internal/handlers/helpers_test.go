package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/farmlink/marketplace/internal/database/testutil"
	"github.com/farmlink/marketplace/internal/middleware"
	"github.com/farmlink/marketplace/internal/models"
	"github.com/farmlink/marketplace/internal/services"
	"github.com/farmlink/marketplace/pkg/response"
)

const testUserHeader = "X-Test-User"

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	t             *testing.T
	db            *gorm.DB
	router        *gin.Engine
	users         *services.UserService
	notifications *services.NotificationService
	messages      *services.MessageService
	subscriptions *services.SubscriptionService
}

// newTestEnv wires the handlers onto a router whose callers are identified by testUserHeader.
func newTestEnv(t *testing.T, users ...*models.User) *testEnv {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithUsers(users...))

	userSvc, err := services.NewUserService(db)
	require.NoError(t, err)
	notificationSvc, err := services.NewNotificationService(db, nil, nil)
	require.NoError(t, err)
	messageSvc, err := services.NewMessageService(db, services.WithMessageNotifier(notificationSvc, nil))
	require.NoError(t, err)
	subscriptionSvc, err := services.NewSubscriptionService(db)
	require.NoError(t, err)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if userID := c.GetHeader(testUserHeader); userID != "" {
			c.Set(middleware.CtxUserIDKey, userID)
		}
		c.Next()
	})

	notificationHandler := NewNotificationHandler(notificationSvc, nil, nil)
	router.GET("/notifications", notificationHandler.List)
	router.GET("/notifications/unread-count", notificationHandler.UnreadCount)
	router.POST("/notifications", notificationHandler.Create)
	router.POST("/notifications/read-all", notificationHandler.MarkAllRead)
	router.POST("/notifications/:id/read", notificationHandler.MarkRead)
	router.POST("/notifications/:id/unread", notificationHandler.MarkUnread)
	router.DELETE("/notifications/:id", notificationHandler.Delete)
	router.GET("/notifications/stream", notificationHandler.Stream)

	messageHandler := NewMessageHandler(messageSvc)
	router.GET("/messages/unread-count", messageHandler.UnreadCount)
	router.POST("/messages", messageHandler.Send)
	router.GET("/messages/with/:userID", messageHandler.Conversation)
	router.POST("/messages/with/:userID/read", messageHandler.MarkConversationRead)

	subscriptionHandler := NewSubscriptionHandler(subscriptionSvc, userSvc)
	router.GET("/subscriptions/status", subscriptionHandler.Status)
	router.POST("/subscriptions", subscriptionHandler.Grant)
	router.POST("/subscriptions/:id/cancel", subscriptionHandler.Cancel)

	userHandler := NewUserHandler(userSvc)
	router.GET("/users/me", userHandler.Me)
	router.PATCH("/users/me", userHandler.UpdateMe)
	router.GET("/users", userHandler.List)

	router.GET("/health", Health(db))

	return &testEnv{
		t:             t,
		db:            db,
		router:        router,
		users:         userSvc,
		notifications: notificationSvc,
		messages:      messageSvc,
		subscriptions: subscriptionSvc,
	}
}

func (e *testEnv) do(method, path, userID string, body any) *httptest.ResponseRecorder {
	e.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set(testUserHeader, userID)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// closeDB makes every subsequent query fail.
func (e *testEnv) closeDB() {
	sqlDB, err := e.db.DB()
	require.NoError(e.t, err)
	require.NoError(e.t, sqlDB.Close())
}

func newUser(id, name string, role models.Role) *models.User {
	return &models.User{
		BaseModel: models.BaseModel{ID: id},
		FullName:  name,
		Email:     id + "@farmlink.test",
		Role:      role,
		Locale:    "en",
		IsActive:  true,
	}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type page[T any] struct {
	Items []T           `json:"items"`
	Meta  response.Meta `json:"meta"`
}

func testContext() context.Context {
	return context.Background()
}
