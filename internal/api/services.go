package api

import (
	"errors"

	"gorm.io/gorm"

	"github.com/farmlink/marketplace/internal/broker"
	"github.com/farmlink/marketplace/internal/i18n"
	"github.com/farmlink/marketplace/internal/realtime"
	"github.com/farmlink/marketplace/internal/services"
)

// Services bundles the domain services behind the HTTP API.
type Services struct {
	Users         *services.UserService
	Notifications *services.NotificationService
	Messages      *services.MessageService
	Subscriptions *services.SubscriptionService
	Resolver      *i18n.Resolver
	Hub           *realtime.Hub
}

// ServiceOptions carries the optional collaborators of NewServices.
type ServiceOptions struct {
	Hub       *realtime.Hub
	Publisher broker.Publisher
}

// NewServices wires the domain services together. Message and subscription events raise
// notifications rendered in the recipient's stored locale.
func NewServices(db *gorm.DB, resolver *i18n.Resolver, opts ServiceOptions) (*Services, error) {
	if db == nil {
		return nil, errors.New("database handle must be provided")
	}
	if resolver == nil {
		return nil, errors.New("locale resolver must be provided")
	}

	users, err := services.NewUserService(db)
	if err != nil {
		return nil, err
	}

	notifications, err := services.NewNotificationService(db, opts.Hub, opts.Publisher)
	if err != nil {
		return nil, err
	}

	messages, err := services.NewMessageService(db,
		services.WithMessageNotifier(notifications, resolver),
		services.WithMessageHub(opts.Hub),
	)
	if err != nil {
		return nil, err
	}

	subscriptions, err := services.NewSubscriptionService(db,
		services.WithSubscriptionNotifier(notifications, resolver),
	)
	if err != nil {
		return nil, err
	}

	return &Services{
		Users:         users,
		Notifications: notifications,
		Messages:      messages,
		Subscriptions: subscriptions,
		Resolver:      resolver,
		Hub:           opts.Hub,
	}, nil
}
