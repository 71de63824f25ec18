package services

import (
	"context"
	"sync"
	"time"

	"github.com/farmlink/marketplace/internal/i18n"
	"github.com/farmlink/marketplace/internal/models"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []NotifyInput
}

func (r *recordingNotifier) Notify(_ context.Context, input NotifyInput) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, input)
}

func (r *recordingNotifier) Calls() []NotifyInput {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]NotifyInput, len(r.calls))
	copy(out, r.calls)
	return out
}

type echoLocalizer struct{}

func (echoLocalizer) Localize(locale i18n.Locale, id string, _ map[string]any) string {
	return locale.String() + ":" + id
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

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
