package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"health_notification_service/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	seedJobTimeout = 5 * time.Minute
)

// NotificationScheduler drives the daily seed and the periodic cycle.
type NotificationScheduler struct {
	cronEngine    *cron.Cron
	jobs          *app.Jobs
	logger        *logrus.Entry
	cronSpecSeed  string // e.g. "1 0 * * *" (00:01 UTC daily)
	cronSpecCycle string // e.g. "@every 5m"
	cycleTimeout  time.Duration
}

func NewNotificationScheduler(
	jobs *app.Jobs,
	logger *logrus.Entry,
	cronSpecSeed string,
	cronSpecCycle string,
	cycleTimeout time.Duration,
) *NotificationScheduler {
	return &NotificationScheduler{
		// Slot dates are UTC calendar days, so the daily seed runs on UTC midnight.
		cronEngine: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(logger))),
		),
		jobs:          jobs,
		logger:        logger,
		cronSpecSeed:  cronSpecSeed,
		cronSpecCycle: cronSpecCycle,
		cycleTimeout:  cycleTimeout,
	}
}

// Start registers the jobs and starts the cron engine.
func (s *NotificationScheduler) Start() error {
	s.logger.Info("Starting notification scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpecSeed, func() {
		s.logger.Info("Cron job triggered for daily seed.")
		s.RunSeed()
	})
	if err != nil {
		return fmt.Errorf("could not add seed cron job: %w", err)
	}

	_, err = s.cronEngine.AddFunc(s.cronSpecCycle, func() {
		s.logger.Debug("Cron job triggered for notification cycle.")
		s.RunCycle()
	})
	if err != nil {
		return fmt.Errorf("could not add cycle cron job: %w", err)
	}

	s.cronEngine.Start()
	s.logger.WithFields(logrus.Fields{
		"seed_spec":  s.cronSpecSeed,
		"cycle_spec": s.cronSpecCycle,
	}).Info("Notification scheduler started with jobs.")
	return nil
}

// RunSeed seeds today. Also used once at startup.
func (s *NotificationScheduler) RunSeed() {
	ctx, cancel := context.WithTimeout(context.Background(), seedJobTimeout)
	defer cancel()
	if _, err := s.jobs.RunSeed(ctx, ""); err != nil && !errors.Is(err, app.ErrJobBusy) {
		s.logger.WithError(err).Error("Error during daily seed")
	}
}

// RunCycle runs one cycle pass.
func (s *NotificationScheduler) RunCycle() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cycleTimeout)
	defer cancel()
	if _, err := s.jobs.RunCycle(ctx); err != nil && !errors.Is(err, app.ErrJobBusy) {
		s.logger.WithError(err).Error("Error during notification cycle")
	}
}

func (s *NotificationScheduler) Stop() {
	s.logger.Info("Stopping notification scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()               // Wait for graceful shutdown
	s.logger.Info("Notification scheduler gracefully stopped.")
}
