package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/farmlink/marketplace/internal/cache"
	"github.com/farmlink/marketplace/pkg/logger"
	"github.com/farmlink/marketplace/pkg/metrics"
)

const (
	defaultExpireSpec     = "@every 15m"
	defaultReminderSpec   = "@hourly"
	defaultCachePurgeSpec = "@hourly"
	defaultRetentionSpec  = "@daily"

	defaultReminderWindow = 3 * 24 * time.Hour
	defaultRetention      = 90 * 24 * time.Hour
)

// Job names used in logs and metrics.
const (
	JobExpireSubscriptions = "expire_subscriptions"
	JobExpiryReminders     = "expiry_reminders"
	JobCachePurge          = "cache_purge"
	JobNotificationPurge   = "notification_retention"
)

// SubscriptionJobs is implemented by services.SubscriptionService.
type SubscriptionJobs interface {
	ExpireLapsed(ctx context.Context, now time.Time) (int64, error)
	RemindExpiring(ctx context.Context, now time.Time, window time.Duration) (int, error)
}

// NotificationPurger is implemented by services.NotificationService.
type NotificationPurger interface {
	PurgeRead(ctx context.Context, cutoff time.Time) (int64, error)
}

// Schedules holds the cron specification of each job. Empty fields keep the defaults.
type Schedules struct {
	Expire     string
	Remind     string
	CachePurge string
	Retention  string
}

// Scheduler runs the marketplace housekeeping jobs: expiring lapsed subscriptions, sending expiry
// reminders, purging expired cache rows and deleting old read notifications.
type Scheduler struct {
	subscriptions  SubscriptionJobs
	notifications  NotificationPurger
	purger         cache.Purger
	cron           *cron.Cron
	now            func() time.Time
	log            *zap.Logger
	schedules      Schedules
	reminderWindow time.Duration
	retention      time.Duration
}

// Option customises the Scheduler.
type Option func(*Scheduler)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithNow overrides the clock used by every job.
func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSchedules overrides the cron specifications.
func WithSchedules(schedules Schedules) Option {
	return func(s *Scheduler) {
		if schedules.Expire != "" {
			s.schedules.Expire = schedules.Expire
		}
		if schedules.Remind != "" {
			s.schedules.Remind = schedules.Remind
		}
		if schedules.CachePurge != "" {
			s.schedules.CachePurge = schedules.CachePurge
		}
		if schedules.Retention != "" {
			s.schedules.Retention = schedules.Retention
		}
	}
}

// WithReminderWindow sets how long before expiry the reminder goes out.
func WithReminderWindow(window time.Duration) Option {
	return func(s *Scheduler) {
		if window > 0 {
			s.reminderWindow = window
		}
	}
}

// WithNotificationRetention sets how long read notifications are kept.
func WithNotificationRetention(retention time.Duration) Option {
	return func(s *Scheduler) {
		if retention > 0 {
			s.retention = retention
		}
	}
}

// NewScheduler constructs a Scheduler. A nil dependency skips the jobs that need it; purger is
// usually the database cache store, Redis expires keys on its own.
func NewScheduler(subscriptions SubscriptionJobs, notifications NotificationPurger, purger cache.Purger, opts ...Option) *Scheduler {
	s := &Scheduler{
		subscriptions: subscriptions,
		notifications: notifications,
		purger:        purger,
		now:           func() time.Time { return time.Now().UTC() },
		log:           logger.WithModule("maintenance"),
		schedules: Schedules{
			Expire:     defaultExpireSpec,
			Remind:     defaultReminderSpec,
			CachePurge: defaultCachePurgeSpec,
			Retention:  defaultRetentionSpec,
		},
		reminderWindow: defaultReminderWindow,
		retention:      defaultRetention,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.cron == nil {
		s.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return s
}

type job struct {
	name     string
	schedule string
	run      func(ctx context.Context, now time.Time) (int64, error)
}

func (s *Scheduler) jobs() []job {
	var jobs []job

	if s.subscriptions != nil {
		jobs = append(jobs,
			job{name: JobExpireSubscriptions, schedule: s.schedules.Expire, run: s.subscriptions.ExpireLapsed},
			job{name: JobExpiryReminders, schedule: s.schedules.Remind, run: func(ctx context.Context, now time.Time) (int64, error) {
				sent, err := s.subscriptions.RemindExpiring(ctx, now, s.reminderWindow)
				return int64(sent), err
			}},
		)
	}
	if s.purger != nil {
		jobs = append(jobs, job{name: JobCachePurge, schedule: s.schedules.CachePurge, run: s.purger.PurgeExpired})
	}
	if s.notifications != nil {
		jobs = append(jobs, job{name: JobNotificationPurge, schedule: s.schedules.Retention, run: func(ctx context.Context, now time.Time) (int64, error) {
			return s.notifications.PurgeRead(ctx, now.Add(-s.retention))
		}})
	}

	return jobs
}

// Start registers the jobs with the cron scheduler and launches it when at least one job is enabled.
func (s *Scheduler) Start() error {
	jobs := s.jobs()
	if len(jobs) == 0 {
		return nil
	}

	for _, j := range jobs {
		j := j
		if _, err := s.cron.AddFunc(j.schedule, func() {
			_ = s.execute(context.Background(), j)
		}); err != nil {
			return err
		}
	}

	s.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (s *Scheduler) Stop() context.Context {
	if s.cron == nil {
		done, cancel := context.WithCancel(context.Background())
		cancel()
		return done
	}
	return s.cron.Stop()
}

// RunOnce executes every configured job sequentially and aggregates their errors. A failing job
// does not prevent the remaining ones from running.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	for _, j := range s.jobs() {
		errs = multierr.Append(errs, s.execute(ctx, j))
	}
	return errs
}

func (s *Scheduler) execute(ctx context.Context, j job) error {
	affected, err := j.run(ctx, s.now())
	metrics.MaintenanceRuns.WithLabelValues(j.name, metrics.Result(err)).Inc()
	if err != nil {
		s.log.Warn("maintenance job failed", zap.String("job", j.name), zap.Error(err))
		return err
	}
	if affected > 0 {
		s.log.Info("maintenance job finished", zap.String("job", j.name), zap.Int64("affected", affected))
	}
	return nil
}
