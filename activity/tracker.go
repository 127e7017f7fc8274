// Package activity turns user input events into session extensions.
package activity

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Event is a user gesture that counts as activity.
type Event string

const (
	PointerDown Event = "pointer-down"
	PointerMove Event = "pointer-move"
	KeyPress    Event = "key-press"
	Scroll      Event = "scroll"
	TouchStart  Event = "touch-start"
	Click       Event = "click"
)

// TrackedEvents lists every event that extends the session.
var TrackedEvents = []Event{PointerDown, PointerMove, KeyPress, Scroll, TouchStart, Click}

func (e Event) Tracked() bool {
	for _, tracked := range TrackedEvents {
		if e == tracked {
			return true
		}
	}
	return false
}

// Extender pushes the inactivity deadline forward. It must be cheap; it runs on every event.
type Extender interface {
	ExtendSession()
}

// Tracker forwards events while a session generation is being tracked.
type Tracker struct {
	extender Extender
	logger   zerolog.Logger
	observed atomic.Uint64

	mu         sync.Mutex
	active     bool
	generation uint64
	stopped    chan struct{}
}

type TrackerOption func(*Tracker)

func WithLogger(logger zerolog.Logger) TrackerOption {
	return func(t *Tracker) {
		t.logger = logger
	}
}

func NewTracker(extender Extender, options ...TrackerOption) *Tracker {
	t := &Tracker{
		extender: extender,
		logger:   log.Logger,
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

// Start begins forwarding events for generation, or hands running tracking
// over to it. A generation older than the one already tracked is ignored.
func (t *Tracker) Start(generation uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if generation < t.generation {
		return
	}
	t.generation = generation
	if t.active {
		return
	}
	t.active = true
	t.stopped = make(chan struct{})
	t.logger.Debug().Uint64("generation", generation).Msg("activity tracking started")
}

// Stop detaches the tracker if generation is still the tracked one; later
// events are ignored until Start.
func (t *Tracker) Stop(generation uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active || generation != t.generation {
		return
	}
	t.active = false
	close(t.stopped)
	t.logger.Debug().Uint64("observed", t.observed.Load()).Msg("activity tracking stopped")
}

func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Generation is the session generation last passed to Start.
func (t *Tracker) Generation() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.generation
}

// Observe records one event and reports whether it extended the session.
func (t *Tracker) Observe(event Event) bool {
	if !event.Tracked() || !t.Active() {
		return false
	}
	t.observed.Add(1)
	t.extender.ExtendSession()
	return true
}

// Observed is the number of events forwarded since the tracker was created.
func (t *Tracker) Observed() uint64 {
	return t.observed.Load()
}

// Run consumes events until ctx is done, events is closed or tracking of the
// current generation stops. It returns at once when tracking is off.
func (t *Tracker) Run(ctx context.Context, events <-chan Event) error {
	t.mu.Lock()
	if !t.active {
		t.mu.Unlock()
		return nil
	}
	stopped := t.stopped
	t.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopped:
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			t.Observe(event)
		}
	}
}
