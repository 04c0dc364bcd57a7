package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStart_RunsImmediatelyAndOnTicks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var fast, failing atomic.Int32
	wait := Start(ctx,
		Job{Name: "fast", Interval: 5 * time.Millisecond, Task: func(context.Context) error {
			fast.Add(1)
			return nil
		}},
		Job{Name: "failing", Interval: time.Hour, Task: func(context.Context) error {
			failing.Add(1)
			return errors.New("boom")
		}},
		Job{Name: "disabled"},
	)

	require.Eventually(t, func() bool { return fast.Load() >= 3 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return failing.Load() == 1 }, time.Second, time.Millisecond)

	cancel()
	wait()
	n := fast.Load()
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, n, fast.Load(), "no runs after cancel")
}

func TestStart_IntervalFuncFollowsChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var period atomic.Int64
	period.Store(int64(time.Hour))
	var runs atomic.Int32
	wait := Start(ctx, Job{
		Name:         "reloadable",
		IntervalFunc: func() time.Duration { return time.Duration(period.Load()) },
		Task: func(context.Context) error {
			// The first run shortens the hourly period, as a config reload would.
			if runs.Add(1) == 1 {
				period.Store(int64(time.Millisecond))
			}
			return nil
		},
	})

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	wait()
}
