package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/farmlink/marketplace/internal/models"
	apperrors "github.com/farmlink/marketplace/pkg/errors"
	"github.com/farmlink/marketplace/pkg/logger"
	"github.com/farmlink/marketplace/pkg/metrics"
)

const day = 24 * time.Hour

// SubscriptionDTO is the API representation of a subscription.
type SubscriptionDTO struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Plan        string    `json:"plan"`
	Status      string    `json:"status"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	AmountPaise int64     `json:"amount_paise"`
}

// SubscriptionStatus describes whether a user currently holds an active subscription.
// DaysRemaining and ExpiresAt are only set when IsActive is true.
type SubscriptionStatus struct {
	IsActive      bool             `json:"isActive"`
	Subscription  *SubscriptionDTO `json:"subscription"`
	DaysRemaining int              `json:"daysRemaining"`
	ExpiresAt     *time.Time       `json:"expiresAt,omitempty"`
}

// ComputeSubscriptionStatus evaluates sub at now. A subscription counts as active only when its
// status is active and its end date is strictly after now; days remaining round up to whole days.
func ComputeSubscriptionStatus(sub *models.Subscription, now time.Time) SubscriptionStatus {
	if !sub.ActiveAt(now) {
		return SubscriptionStatus{}
	}

	dto := mapSubscription(*sub)
	expiresAt := sub.EndDate
	return SubscriptionStatus{
		IsActive:      true,
		Subscription:  &dto,
		DaysRemaining: ceilDays(sub.EndDate.Sub(now)),
		ExpiresAt:     &expiresAt,
	}
}

func ceilDays(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	days := int(d / day)
	if d%day != 0 {
		days++
	}
	return days
}

// GrantSubscriptionInput holds the fields of a granted plan.
type GrantSubscriptionInput struct {
	UserID      string
	Plan        string
	Days        int
	AmountPaise int64
}

// SubscriptionService reads and manages paid subscriptions.
type SubscriptionService struct {
	db        *gorm.DB
	notifier  Notifier
	localizer Localizer
	log       *zap.Logger
	now       func() time.Time
}

// SubscriptionServiceOption customises a SubscriptionService.
type SubscriptionServiceOption func(*SubscriptionService)

// WithSubscriptionNotifier raises notifications when plans are granted, cancelled or about to expire.
func WithSubscriptionNotifier(notifier Notifier, localizer Localizer) SubscriptionServiceOption {
	return func(s *SubscriptionService) {
		s.notifier = notifier
		s.localizer = localizer
	}
}

// WithSubscriptionClock overrides the time source.
func WithSubscriptionClock(now func() time.Time) SubscriptionServiceOption {
	return func(s *SubscriptionService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSubscriptionService constructs a SubscriptionService.
func NewSubscriptionService(db *gorm.DB, opts ...SubscriptionServiceOption) (*SubscriptionService, error) {
	if db == nil {
		return nil, errors.New("subscription service: db is required")
	}
	svc := &SubscriptionService{
		db:  db,
		log: logger.WithModule("subscriptions"),
		now: utcNow,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Status reports the caller's subscription state. A missing user is ErrUnauthorized, no active
// plan is a normal inactive result and storage failures surface as ErrInternalServer.
// Every call reads the store; writes made outside this process are visible immediately.
func (s *SubscriptionService) Status(ctx context.Context, userID string) (SubscriptionStatus, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return SubscriptionStatus{}, apperrors.ErrUnauthorized
	}

	now := s.now()
	sub, err := s.activeSubscription(ctx, userID, now)
	if err != nil {
		metrics.SubscriptionChecks.WithLabelValues("error").Inc()
		s.log.Error("subscription status failed", zap.String("user_id", userID), zap.Error(err))
		return SubscriptionStatus{}, apperrors.ErrInternalServer.WithInternal(err)
	}

	status := ComputeSubscriptionStatus(sub, now)
	if status.IsActive {
		metrics.SubscriptionChecks.WithLabelValues("active").Inc()
	} else {
		metrics.SubscriptionChecks.WithLabelValues("inactive").Inc()
	}
	return status, nil
}

// activeSubscription returns the latest-ending active row for userID, or nil.
func (s *SubscriptionService) activeSubscription(ctx context.Context, userID string, now time.Time) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND end_date > ?", userID, models.SubscriptionActive, now).
		Order("end_date DESC").
		First(&sub).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("subscription service: load active subscription: %w", err)
	}
	return &sub, nil
}

// Grant starts a plan for a user lasting the given number of days from now.
func (s *SubscriptionService) Grant(ctx context.Context, input GrantSubscriptionInput) (*SubscriptionDTO, error) {
	ctx = ensureContext(ctx)
	userID := strings.TrimSpace(input.UserID)
	plan := strings.TrimSpace(input.Plan)
	switch {
	case userID == "":
		return nil, apperrors.NewBadRequest("user_id is required")
	case plan == "":
		return nil, apperrors.NewBadRequest("plan is required")
	case input.Days <= 0:
		return nil, apperrors.NewBadRequest("days must be positive")
	case input.AmountPaise < 0:
		return nil, apperrors.NewBadRequest("amount_paise must not be negative")
	}

	var user models.User
	if err := s.db.WithContext(ctx).Take(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("subscription service: load user: %w", err)
	}

	now := s.now()
	sub := models.Subscription{
		UserID:      userID,
		Plan:        plan,
		Status:      models.SubscriptionActive,
		StartDate:   now,
		EndDate:     now.Add(time.Duration(input.Days) * day),
		AmountPaise: input.AmountPaise,
	}
	if err := s.db.WithContext(ctx).Create(&sub).Error; err != nil {
		return nil, conflictOr(err, func(err error) error {
			return fmt.Errorf("subscription service: create subscription: %w", err)
		})
	}

	s.notify(ctx, &user, "notification.subscription_granted", map[string]any{"Plan": plan, "Days": input.Days}, sub.ID)

	dto := mapSubscription(sub)
	return &dto, nil
}

// Cancel ends a subscription. Only the owner or an admin may cancel.
func (s *SubscriptionService) Cancel(ctx context.Context, actorID string, actorIsAdmin bool, subscriptionID string) (*SubscriptionDTO, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(actorID) == "" {
		return nil, apperrors.ErrUnauthorized
	}

	var sub models.Subscription
	if err := s.db.WithContext(ctx).Take(&sub, "id = ?", subscriptionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("subscription service: load subscription: %w", err)
	}
	if sub.UserID != actorID && !actorIsAdmin {
		return nil, apperrors.ErrForbidden
	}
	if sub.Status != models.SubscriptionActive {
		return nil, apperrors.NewBadRequest("subscription is not active")
	}

	if err := s.db.WithContext(ctx).Model(&sub).Update("status", models.SubscriptionCancelled).Error; err != nil {
		return nil, fmt.Errorf("subscription service: cancel subscription: %w", err)
	}
	sub.Status = models.SubscriptionCancelled

	var owner models.User
	if err := s.db.WithContext(ctx).Take(&owner, "id = ?", sub.UserID).Error; err == nil {
		s.notify(ctx, &owner, "notification.subscription_cancelled", map[string]any{"Plan": sub.Plan}, sub.ID)
	}

	dto := mapSubscription(sub)
	return &dto, nil
}

// ExpireLapsed marks active subscriptions whose end date has passed as expired.
func (s *SubscriptionService) ExpireLapsed(ctx context.Context, now time.Time) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("status = ? AND end_date <= ?", models.SubscriptionActive, now.UTC()).
		Update("status", models.SubscriptionExpired)
	if result.Error != nil {
		return 0, fmt.Errorf("subscription service: expire lapsed: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// RemindExpiring sends one subscription_expiry notification per active subscription ending
// within window of now and records that the reminder went out.
func (s *SubscriptionService) RemindExpiring(ctx context.Context, now time.Time, window time.Duration) (int, error) {
	ctx = ensureContext(ctx)
	now = now.UTC()

	var subs []models.Subscription
	if err := s.db.WithContext(ctx).
		Where("status = ? AND end_date > ? AND end_date <= ? AND reminder_sent_at IS NULL",
			models.SubscriptionActive, now, now.Add(window)).
		Order("end_date ASC").
		Find(&subs).Error; err != nil {
		return 0, fmt.Errorf("subscription service: find expiring: %w", err)
	}

	sent := 0
	for i := range subs {
		sub := &subs[i]

		var owner models.User
		if err := s.db.WithContext(ctx).Take(&owner, "id = ?", sub.UserID).Error; err != nil {
			s.log.Warn("expiry reminder skipped", zap.String("subscription_id", sub.ID), zap.Error(err))
			continue
		}

		s.notify(ctx, &owner, "notification.subscription_expiry", map[string]any{
			"Plan": sub.Plan,
			"Days": ceilDays(sub.EndDate.Sub(now)),
		}, sub.ID)

		if err := s.db.WithContext(ctx).Model(sub).Update("reminder_sent_at", now).Error; err != nil {
			return sent, fmt.Errorf("subscription service: stamp reminder: %w", err)
		}
		sent++
	}
	return sent, nil
}

func (s *SubscriptionService) notify(ctx context.Context, owner *models.User, key string, data map[string]any, subscriptionID string) {
	if s.notifier == nil {
		return
	}

	notificationType := models.NotificationSystem
	if key == "notification.subscription_expiry" {
		notificationType = models.NotificationSubscriptionExpiry
	}

	title, text := key, ""
	if s.localizer != nil {
		locale := localeOf(owner.Locale)
		title = s.localizer.Localize(locale, key+".title", data)
		text = s.localizer.Localize(locale, key+".message", data)
	}

	s.notifier.Notify(ctx, NotifyInput{
		UserID:   owner.ID,
		Type:     notificationType,
		Title:    title,
		Message:  text,
		Link:     "/subscription",
		Metadata: map[string]any{"subscription_id": subscriptionID},
	})
}

func mapSubscription(row models.Subscription) SubscriptionDTO {
	return SubscriptionDTO{
		ID:          row.ID,
		UserID:      row.UserID,
		Plan:        row.Plan,
		Status:      string(row.Status),
		StartDate:   row.StartDate,
		EndDate:     row.EndDate,
		AmountPaise: row.AmountPaise,
	}
}
