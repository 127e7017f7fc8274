// Package sessionclock runs the periodic token-expiry and inactivity checks
// for the current session.
package sessionclock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Check is run on every tick with the generation it was scheduled for.
// Implementations must ignore generations that are no longer current.
type Check func(ctx context.Context, generation uint64)

type Checks struct {
	TokenExpiry Check
	Inactivity  Check
}

// Kind names one of the two independent jobs.
type Kind string

const (
	KindTokenExpiry Kind = "token-expiry"
	KindInactivity  Kind = "inactivity"
)

// Clock owns a gocron scheduler with at most one job of each Kind.
type Clock struct {
	scheduler gocron.Scheduler
	interval  time.Duration
	logger    zerolog.Logger

	mu         sync.Mutex
	generation uint64
	jobs       map[Kind]uuid.UUID
	cancel     context.CancelFunc
}

type Option func(*Clock)

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Clock) {
		c.logger = logger
	}
}

func New(interval time.Duration, options ...Option) (*Clock, error) {
	if interval <= 0 {
		return nil, errors.New("[sessionclock.New] interval must be positive")
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("[sessionclock.New] gocron.NewScheduler: %w", err)
	}

	c := &Clock{
		scheduler: scheduler,
		interval:  interval,
		logger:    log.Logger,
		jobs:      make(map[Kind]uuid.UUID),
	}
	for _, opt := range options {
		opt(c)
	}

	scheduler.Start()
	return c, nil
}

// Start replaces any running jobs with jobs bound to generation.
func (c *Clock) Start(generation uint64, checks Checks) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeAllLocked()

	ctx, cancel := context.WithCancel(context.Background())
	c.generation = generation
	c.cancel = cancel

	for kind, check := range map[Kind]Check{KindTokenExpiry: checks.TokenExpiry, KindInactivity: checks.Inactivity} {
		if check == nil {
			continue
		}
		check := check
		job, err := c.scheduler.NewJob(
			gocron.DurationJob(c.interval),
			gocron.NewTask(func() { check(ctx, generation) }),
			gocron.WithName(string(kind)),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			c.removeAllLocked()
			return fmt.Errorf("[Clock.Start] schedule %s: %w", kind, err)
		}
		c.jobs[kind] = job.ID()
	}

	c.logger.Debug().Uint64("generation", generation).Dur("interval", c.interval).Msg("session clock started")
	return nil
}

// Stop removes both jobs if they still belong to generation.
func (c *Clock) Stop(generation uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation {
		return
	}
	c.removeAllLocked()
	c.logger.Debug().Uint64("generation", generation).Msg("session clock stopped")
}

// Cancel removes a single job if it still belongs to generation.
func (c *Clock) Cancel(generation uint64, kind Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation {
		return
	}
	c.removeLocked(kind)
}

// Running reports whether a job of kind is scheduled.
func (c *Clock) Running(kind Kind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.jobs[kind]
	return ok
}

// Shutdown stops every job and the underlying scheduler.
func (c *Clock) Shutdown() error {
	c.mu.Lock()
	c.removeAllLocked()
	c.mu.Unlock()
	return c.scheduler.Shutdown()
}

func (c *Clock) removeLocked(kind Kind) {
	id, ok := c.jobs[kind]
	if !ok {
		return
	}
	if err := c.scheduler.RemoveJob(id); err != nil {
		c.logger.Warn().Err(err).Str("job", string(kind)).Msg("failed to remove session clock job")
	}
	delete(c.jobs, kind)
}

func (c *Clock) removeAllLocked() {
	c.removeLocked(KindTokenExpiry)
	c.removeLocked(KindInactivity)
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
