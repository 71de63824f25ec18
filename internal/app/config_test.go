package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/farmlink/marketplace/internal/auth"
	"github.com/farmlink/marketplace/internal/broker"
	"github.com/farmlink/marketplace/internal/cache"
)

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, "json", cfg.Server.LogFormat)
	require.Equal(t, []string{"https://farmlink.in", "https://admin.farmlink.in"}, cfg.Server.CORSOrigins)
	require.Equal(t, 30, cfg.Server.RateLimit.Requests)
	require.Equal(t, 30*time.Second, cfg.Server.RateLimit.Window)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.example.com", cfg.Database.Host)
	require.Equal(t, 5433, cfg.Database.Port)
	require.Equal(t, "require", cfg.Database.Options["sslmode"])
	require.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)

	require.True(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, "redis.internal:6380", cfg.Cache.Redis.Address)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)
	require.True(t, cfg.I18n.CookieSecure)

	require.True(t, cfg.Features.Notifications.Enabled)
	require.False(t, cfg.Features.Notifications.Realtime)

	require.True(t, cfg.Broker.AMQP.Enabled)
	require.Equal(t, "farmlink.test", cfg.Broker.AMQP.Exchange)
	require.Equal(t, 3, cfg.Broker.AMQP.Retries)

	require.True(t, cfg.Maintenance.Enabled)
	require.Equal(t, "@every 5m", cfg.Maintenance.ExpireSchedule)
	require.Equal(t, "@hourly", cfg.Maintenance.ReminderSchedule)
	require.Equal(t, 5*24*time.Hour, cfg.Maintenance.ReminderWindow())
	require.Equal(t, 30*24*time.Hour, cfg.Maintenance.NotificationRetention())

	require.True(t, cfg.Monitoring.Prometheus.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigDefaultsAndEnv(t *testing.T) {
	t.Setenv("FARMLINK_SERVER_PORT", "7000")
	t.Setenv("FARMLINK_AUTH_JWT_SECRET", "from-env")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 7000, cfg.Server.Port)
	require.Equal(t, "from-env", cfg.Auth.JWT.Secret)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, 100, cfg.Server.RateLimit.Requests)
	require.Equal(t, time.Minute, cfg.Server.RateLimit.Window)
	require.False(t, cfg.Broker.AMQP.Enabled)
	require.Equal(t, 3, cfg.Maintenance.ReminderDays)
}

func TestConfigValidate(t *testing.T) {
	var cfg Config
	require.ErrorContains(t, cfg.Validate(), "auth.jwt.secret")

	cfg.Auth.JWT.Secret = "s"
	cfg.Broker.AMQP.Enabled = true
	require.ErrorContains(t, cfg.Validate(), "broker.amqp.url")

	cfg.Broker.AMQP.URL = "amqp://localhost"
	require.NoError(t, cfg.Validate())
}

func TestConfigAdapters(t *testing.T) {
	cfg := Config{
		Auth: AuthConfig{JWT: JWTSettings{Secret: "secret", Issuer: "issuer", TTL: 30 * time.Minute}},
		Cache: CacheConfig{Redis: RedisCacheConfig{
			Address:  " redis:6379 ",
			Password: "pw",
			DB:       1,
			Timeout:  time.Second,
		}},
		Broker: BrokerConfig{AMQP: AMQPSettings{URL: "amqp://x", Exchange: "ex", Retries: 2, RetryDelay: time.Second}},
	}

	require.Equal(t, auth.JWTConfig{
		Secret:         "secret",
		Issuer:         "issuer",
		AccessTokenTTL: 30 * time.Minute,
	}, cfg.Auth.JWTServiceConfig())

	require.Equal(t, cache.RedisConfig{
		Address:  "redis:6379",
		Password: "pw",
		DB:       1,
		Timeout:  time.Second,
	}, cfg.Cache.RedisClientConfig())

	require.Equal(t, broker.AMQPConfig{URL: "amqp://x", Exchange: "ex", Retries: 2, RetryDelay: time.Second}, cfg.Broker.AMQPConfig())

	var empty AuthConfig
	require.Equal(t, auth.DefaultAccessTokenTTL, empty.JWTServiceConfig().AccessTokenTTL)

	dbCfg := DatabaseConfig{Driver: " SQLite ", Path: "x.db"}.ConnectionConfig()
	require.Equal(t, "sqlite", dbCfg.Driver)
}
