package scheduler

import (
	"context"
	"log"
	"sync"
	"time"
)

type Task func(ctx context.Context) error

// Job is a named task run on an interval. When IntervalFunc is set it is
// consulted after every run, so the period can follow a reloaded config.
type Job struct {
	Name         string
	Interval     time.Duration
	IntervalFunc func() time.Duration
	Task         Task
}

// Every runs task immediately and then on every tick until ctx ends.
func Every(ctx context.Context, interval time.Duration, name string, task Task) {
	EveryFunc(ctx, func() time.Duration { return interval }, name, task)
}

// EveryFunc is Every with a period re-read after each run. Non-positive
// periods keep the previous one.
func EveryFunc(ctx context.Context, interval func() time.Duration, name string, task Task) {
	cur := interval()
	t := time.NewTicker(cur)
	defer t.Stop()

	run := func() {
		if err := task(ctx); err != nil {
			log.Printf("[%s] error: %v", name, err)
		}
		if d := interval(); d > 0 && d != cur {
			log.Printf("[%s] interval %s -> %s", name, cur, d)
			cur = d
			t.Reset(d)
		}
	}
	run()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			run()
		}
	}
}

// Start runs each job on its own goroutine. The returned func blocks until
// every job has returned after ctx is cancelled.
func Start(ctx context.Context, jobs ...Job) (wait func()) {
	var wg sync.WaitGroup
	for _, j := range jobs {
		interval := j.IntervalFunc
		if interval == nil {
			interval = func() time.Duration { return j.Interval }
		}
		if interval() <= 0 || j.Task == nil {
			log.Printf("[scheduler] skip %s: no interval or task", j.Name)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			EveryFunc(ctx, interval, j.Name, j.Task)
		}()
	}
	return wg.Wait
}
