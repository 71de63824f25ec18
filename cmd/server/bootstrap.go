package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/farmlink/marketplace/internal/api"
	"github.com/farmlink/marketplace/internal/app"
	"github.com/farmlink/marketplace/internal/app/maintenance"
	iauth "github.com/farmlink/marketplace/internal/auth"
	"github.com/farmlink/marketplace/internal/broker"
	"github.com/farmlink/marketplace/internal/cache"
	"github.com/farmlink/marketplace/internal/database"
	"github.com/farmlink/marketplace/internal/i18n"
	"github.com/farmlink/marketplace/internal/middleware"
	"github.com/farmlink/marketplace/internal/realtime"
	"github.com/farmlink/marketplace/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB        *gorm.DB
	Redis     *cache.RedisStore
	Cache     cache.Store
	Publisher broker.Publisher
	Hub       *realtime.Hub
	Services  *api.Services
	Scheduler *maintenance.Scheduler
	RateStore middleware.RateStore
	Router    *gin.Engine
}

// bootstrapRuntime initialises the database, cache, broker, services and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	dbStore := cache.NewDatabaseStore(stack.DB)
	stack.Cache = dbStore
	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisStore(ctx, cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to database-backed cache", zap.Error(err))
		} else {
			stack.Cache = stack.Redis
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}
	stack.RateStore = middleware.NewCacheRateStore(stack.Cache)

	stack.Publisher = broker.NopPublisher{}
	if cfg.Broker.AMQP.Enabled {
		publisher, pubErr := broker.NewAMQPPublisher(cfg.Broker.AMQPConfig())
		if pubErr != nil {
			return nil, fmt.Errorf("connect amqp broker: %w", pubErr)
		}
		stack.Publisher = publisher
		log.Info("amqp broker connected", zap.String("exchange", cfg.Broker.AMQP.Exchange))
	}

	if cfg.Features.Notifications.Enabled && cfg.Features.Notifications.Realtime {
		stack.Hub = realtime.NewHub()
	}

	resolver, err := i18n.NewResolver()
	if err != nil {
		return nil, fmt.Errorf("load locale bundles: %w", err)
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	stack.Services, err = api.NewServices(stack.DB, resolver, api.ServiceOptions{
		Hub:       stack.Hub,
		Publisher: stack.Publisher,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise services: %w", err)
	}

	if cfg.Maintenance.Enabled {
		// Redis expires keys itself; only cache rows in the database need sweeping.
		var purger cache.Purger
		if stack.Redis == nil {
			purger = dbStore
		}
		stack.Scheduler = newScheduler(cfg.Maintenance, stack.Services, purger)
		if err := stack.Scheduler.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	stack.Router, err = api.NewRouter(stack.DB, jwtSvc, cfg, stack.Services, stack.RateStore)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

func newScheduler(cfg app.MaintenanceConfig, svc *api.Services, purger cache.Purger) *maintenance.Scheduler {
	opts := []maintenance.Option{
		maintenance.WithSchedules(maintenance.Schedules{
			Expire:     cfg.ExpireSchedule,
			Remind:     cfg.ReminderSchedule,
			CachePurge: cfg.CachePurgeSchedule,
			Retention:  cfg.RetentionSchedule,
		}),
	}
	if window := cfg.ReminderWindow(); window > 0 {
		opts = append(opts, maintenance.WithReminderWindow(window))
	}
	if retention := cfg.NotificationRetention(); retention > 0 {
		opts = append(opts, maintenance.WithNotificationRetention(retention))
	}

	return maintenance.NewScheduler(svc.Subscriptions, svc.Notifications, purger, opts...)
}

// Shutdown stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Scheduler != nil {
		// Let running jobs finish before the final pass reuses the same services.
		select {
		case <-s.Scheduler.Stop().Done():
		case <-ctx.Done():
		}
		if err := s.Scheduler.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown run failed", zap.Error(err))
		}
	}

	if s.Publisher != nil {
		if err := s.Publisher.Close(); err != nil {
			log.Warn("broker shutdown", zap.Error(err))
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.ConnectionConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		closeDatabase(db, zap.NewNop())
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	driver := dbCfg.Driver
	if driver == "" {
		driver = "sqlite"
	}
	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", driver))

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
