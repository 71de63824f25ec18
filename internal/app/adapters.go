package app

import (
	"strings"
	"time"

	"github.com/farmlink/marketplace/internal/auth"
	"github.com/farmlink/marketplace/internal/broker"
	"github.com/farmlink/marketplace/internal/cache"
	"github.com/farmlink/marketplace/internal/database"
)

// RedisClientConfig converts the application cache configuration into the cache package representation.
func (c CacheConfig) RedisClientConfig() cache.RedisConfig {
	return cache.RedisConfig{
		Address:    strings.TrimSpace(c.Redis.Address),
		Username:   strings.TrimSpace(c.Redis.Username),
		Password:   c.Redis.Password,
		DB:         c.Redis.DB,
		TLS:        c.Redis.TLS,
		Timeout:    c.Redis.Timeout,
		MaxRetries: c.Redis.MaxRetries,
	}
}

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: ttl,
		Leeway:         c.JWT.Leeway,
	}
}

// AMQPConfig converts BrokerConfig into the broker package representation.
func (c BrokerConfig) AMQPConfig() broker.AMQPConfig {
	return broker.AMQPConfig{
		URL:        strings.TrimSpace(c.AMQP.URL),
		Exchange:   strings.TrimSpace(c.AMQP.Exchange),
		Retries:    c.AMQP.Retries,
		RetryDelay: c.AMQP.RetryDelay,
	}
}

// ConnectionConfig converts the database section into the database package representation.
func (c DatabaseConfig) ConnectionConfig() database.Config {
	return database.Config{
		Driver:          strings.ToLower(strings.TrimSpace(c.Driver)),
		Path:            c.Path,
		DSN:             c.DSN,
		Host:            c.Host,
		Port:            c.Port,
		Name:            c.Name,
		User:            c.User,
		Password:        c.Password,
		Options:         c.Options,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}
}

// ReminderWindow is how far ahead of expiry reminders are sent.
func (c MaintenanceConfig) ReminderWindow() time.Duration {
	return time.Duration(c.ReminderDays) * 24 * time.Hour
}

// NotificationRetention is how long read notifications are kept.
func (c MaintenanceConfig) NotificationRetention() time.Duration {
	return time.Duration(c.NotificationRetentionDays) * 24 * time.Hour
}
