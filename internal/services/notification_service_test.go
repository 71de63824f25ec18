package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/farmlink/marketplace/internal/database/testutil"
	"github.com/farmlink/marketplace/internal/models"
	apperrors "github.com/farmlink/marketplace/pkg/errors"
)

type fakePublisher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, key string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	return f.err
}

func (f *fakePublisher) Close() error { return nil }

func TestNotificationServiceCreateAndList(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithUsers(newUser("farmer-1", "Meena", models.RoleFarmer)))
	pub := &fakePublisher{}

	svc, err := NewNotificationService(db, nil, pub)
	require.NoError(t, err)

	ctx := context.Background()
	dto, err := svc.Create(ctx, NotifyInput{
		UserID:   "farmer-1",
		Type:     models.NotificationOrderUpdate,
		Title:    "Order shipped",
		Message:  "Order #42 is on its way",
		Link:     "/orders/42",
		Metadata: map[string]any{"order_id": "42"},
	})
	require.NoError(t, err)
	require.Equal(t, "order_update", dto.Type)
	require.Equal(t, []string{"notification.order_update"}, pub.keys)

	items, total, err := svc.ListForUser(ctx, ListNotificationsInput{UserID: "farmer-1"})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	require.Equal(t, dto.ID, items[0].ID)
	require.Equal(t, "42", items[0].Metadata["order_id"])
	require.False(t, items[0].IsRead)
}

func TestNotificationServiceNotifySwallowsFailures(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewNotificationService(db, nil, &fakePublisher{err: errors.New("broker down")})
	require.NoError(t, err)

	ctx := context.Background()
	svc.Notify(ctx, NotifyInput{UserID: "", Type: models.NotificationSystem, Title: "x"})
	svc.Notify(ctx, NotifyInput{UserID: "u1", Type: "bogus", Title: "x"})
	svc.Notify(ctx, NotifyInput{UserID: "u1", Type: models.NotificationSystem, Title: "Welcome"})

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	require.Equal(t, int64(1), count)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	svc.Notify(ctx, NotifyInput{UserID: "u1", Type: models.NotificationSystem, Title: "after close"})
}

func TestNotificationServiceNotifyDefaultsBlankTitle(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewNotificationService(db, nil, nil)
	require.NoError(t, err)

	svc.Notify(context.Background(), NotifyInput{UserID: "u1", Type: models.NotificationNewMessage, Message: "hello"})

	var stored []models.Notification
	require.NoError(t, db.Find(&stored).Error)
	require.Len(t, stored, 1)
	require.Equal(t, "new_message", stored[0].Title)
	require.Equal(t, "hello", stored[0].Message)
}

func TestNotificationServiceCreateValidates(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewNotificationService(db, nil, nil)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), NotifyInput{UserID: "u1", Type: models.NotificationNewLike})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestNotificationServiceReadStateTransitions(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewNotificationService(db, nil, nil)
	require.NoError(t, err)
	now := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	svc.now = fixedClock(now)

	ctx := context.Background()
	first, err := svc.Create(ctx, NotifyInput{UserID: "u1", Type: models.NotificationNewFollower, Title: "New follower"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, NotifyInput{UserID: "u1", Type: models.NotificationNewComment, Title: "New comment"})
	require.NoError(t, err)

	read, err := svc.MarkRead(ctx, "u1", first.ID)
	require.NoError(t, err)
	require.True(t, read.IsRead)
	require.NotNil(t, read.ReadAt)

	unread, err := svc.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(1), unread)

	back, err := svc.MarkUnread(ctx, "u1", first.ID)
	require.NoError(t, err)
	require.False(t, back.IsRead)
	require.Nil(t, back.ReadAt)

	_, err = svc.MarkRead(ctx, "someone-else", first.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	changed, err := svc.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(2), changed)

	unreadOnly, total, err := svc.ListForUser(ctx, ListNotificationsInput{UserID: "u1", UnreadOnly: true})
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, unreadOnly)

	require.NoError(t, svc.Delete(ctx, "u1", first.ID))
	require.ErrorIs(t, svc.Delete(ctx, "u1", first.ID), apperrors.ErrNotFound)
}

func TestNotificationServicePurgeRead(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewNotificationService(db, nil, nil)
	require.NoError(t, err)

	ctx := context.Background()
	old := models.Notification{UserID: "u1", Type: models.NotificationSystem, Title: "old", IsRead: true}
	old.CreatedAt = time.Now().UTC().Add(-60 * 24 * time.Hour)
	require.NoError(t, db.Create(&old).Error)

	oldUnread := models.Notification{UserID: "u1", Type: models.NotificationSystem, Title: "old unread"}
	oldUnread.CreatedAt = old.CreatedAt
	require.NoError(t, db.Create(&oldUnread).Error)

	_, err = svc.Create(ctx, NotifyInput{UserID: "u1", Type: models.NotificationSystem, Title: "fresh"})
	require.NoError(t, err)

	removed, err := svc.PurgeRead(ctx, time.Now().UTC().Add(-30*24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	var remaining int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&remaining).Error)
	require.Equal(t, int64(2), remaining)
}
