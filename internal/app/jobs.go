package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Job names used as lock keys.
const (
	JobSeed  = "seed"
	JobCycle = "cycle"
)

// ErrJobBusy is returned when another instance holds the job's lock.
var ErrJobBusy = errors.New("job is already running")

// Locker grants cluster-wide mutual exclusion for a named job.
type Locker interface {
	// TryLock returns ok=false without error when the lock is held elsewhere.
	TryLock(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error)
}

// Jobs runs seed and cycle under the job lock. Cron, admin commands and
// HTTP triggers all go through it.
type Jobs struct {
	seeder  *SeedService
	cycle   *CycleEngine
	locker  Locker
	lockTTL time.Duration
	logger  *logrus.Entry
}

func NewJobs(seeder *SeedService, cycle *CycleEngine, locker Locker, lockTTL time.Duration, logger *logrus.Entry) *Jobs {
	return &Jobs{
		seeder:  seeder,
		cycle:   cycle,
		locker:  locker,
		lockTTL: lockTTL,
		logger:  logger,
	}
}

// RunSeed seeds date (today when empty).
func (j *Jobs) RunSeed(ctx context.Context, date string) (SeedResult, error) {
	var res SeedResult
	err := j.withLock(ctx, JobSeed, func(ctx context.Context) error {
		var err error
		res, err = j.seeder.Seed(ctx, date)
		return err
	})
	return res, err
}

// RunCycle runs one cycle pass.
func (j *Jobs) RunCycle(ctx context.Context) (CycleStats, error) {
	var stats CycleStats
	err := j.withLock(ctx, JobCycle, func(ctx context.Context) error {
		var err error
		stats, err = j.cycle.Run(ctx)
		return err
	})
	return stats, err
}

func (j *Jobs) withLock(ctx context.Context, name string, fn func(context.Context) error) error {
	release, ok, err := j.locker.TryLock(ctx, name, j.lockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire %s lock: %w", name, err)
	}
	if !ok {
		j.logger.WithField("job", name).Info("Job lock held elsewhere; skipping run")
		return ErrJobBusy
	}
	defer release()
	return fn(ctx)
}
