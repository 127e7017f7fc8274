package activity_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-mvp-voting/activity"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type countingExtender struct {
	calls atomic.Int64
}

func (c *countingExtender) ExtendSession() {
	c.calls.Add(1)
}

func TestTracker_Observe(t *testing.T) {
	ext := &countingExtender{}
	tracker := activity.NewTracker(ext, activity.WithLogger(zerolog.Nop()))

	t.Run("ignored until started", func(t *testing.T) {
		require.False(t, tracker.Observe(activity.Click))
		require.Zero(t, ext.calls.Load())
	})

	tracker.Start(1)

	t.Run("every tracked event extends", func(t *testing.T) {
		for _, e := range activity.TrackedEvents {
			require.True(t, tracker.Observe(e), string(e))
		}
		require.EqualValues(t, len(activity.TrackedEvents), ext.calls.Load())
		require.EqualValues(t, len(activity.TrackedEvents), tracker.Observed())
	})

	t.Run("unknown event ignored", func(t *testing.T) {
		before := ext.calls.Load()
		require.False(t, tracker.Observe(activity.Event("resize")))
		require.Equal(t, before, ext.calls.Load())
	})

	t.Run("stop for an older generation is ignored", func(t *testing.T) {
		tracker.Start(2)
		tracker.Stop(1)
		require.True(t, tracker.Active())
		require.EqualValues(t, 2, tracker.Generation())

		tracker.Start(1)
		require.EqualValues(t, 2, tracker.Generation())
	})

	t.Run("stop detaches", func(t *testing.T) {
		tracker.Stop(2)
		before := ext.calls.Load()
		require.False(t, tracker.Observe(activity.KeyPress))
		require.Equal(t, before, ext.calls.Load())
		require.False(t, tracker.Active())
	})
}

func TestTracker_Run(t *testing.T) {
	ext := &countingExtender{}
	tracker := activity.NewTracker(ext, activity.WithLogger(zerolog.Nop()))

	t.Run("returns at once when not tracking", func(t *testing.T) {
		require.NoError(t, tracker.Run(context.Background(), make(chan activity.Event)))
	})

	tracker.Start(1)

	t.Run("until channel closed", func(t *testing.T) {
		events := make(chan activity.Event, 3)
		events <- activity.Scroll
		events <- activity.TouchStart
		events <- activity.Event("blur")
		close(events)

		require.NoError(t, tracker.Run(context.Background(), events))
		require.EqualValues(t, 2, ext.calls.Load())
	})

	t.Run("until context done", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		err := tracker.Run(ctx, make(chan activity.Event))
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("until tracking stops, across a generation handover", func(t *testing.T) {
		events := make(chan activity.Event)
		done := make(chan error, 1)
		go func() { done <- tracker.Run(context.Background(), events) }()

		tracker.Start(2)
		events <- activity.Click
		require.Eventually(t, func() bool { return ext.calls.Load() == 3 }, time.Second, 5*time.Millisecond)

		tracker.Stop(2)
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("Run did not return after Stop")
		}
	})
}
