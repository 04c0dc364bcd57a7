package ingest

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// Rate is a token bucket: PerSecond steady requests with Burst in reserve.
type Rate struct {
	PerSecond float64
	Burst     int
}

func (r Rate) limit() (rate.Limit, int) {
	b := r.Burst
	if b <= 0 {
		b = 1
	}
	return rate.Limit(r.PerSecond), b
}

type bucket struct {
	lim *rate.Limiter
	own bool // source override; untouched by SetDefault
}

// HostLimiter paces requests per hostname so several sources on one host
// share a budget. A source with its own Rate gets a separate bucket on
// that host.
type HostLimiter struct {
	mu  sync.Mutex
	m   map[string]*bucket
	def Rate
}

func NewHostLimiter(def Rate) *HostLimiter {
	return &HostLimiter{m: make(map[string]*bucket), def: def}
}

// SetDefault changes the shared rate, including for hosts already seen.
func (hl *HostLimiter) SetDefault(r Rate) {
	hl.mu.Lock()
	defer hl.mu.Unlock()
	hl.def = r
	l, b := r.limit()
	for _, bk := range hl.m {
		if !bk.own {
			bk.lim.SetLimit(l)
			bk.lim.SetBurst(b)
		}
	}
}

// Default returns the shared rate.
func (hl *HostLimiter) Default() Rate {
	hl.mu.Lock()
	defer hl.mu.Unlock()
	return hl.def
}

func (hl *HostLimiter) limiterFor(key string, r Rate, own bool) *rate.Limiter {
	hl.mu.Lock()
	defer hl.mu.Unlock()

	l, b := r.limit()
	if bk, ok := hl.m[key]; ok {
		// Overrides follow the source config as it is reloaded.
		if own && (bk.lim.Limit() != l || bk.lim.Burst() != b) {
			bk.lim.SetLimit(l)
			bk.lim.SetBurst(b)
		}
		return bk.lim
	}
	bk := &bucket{lim: rate.NewLimiter(l, b), own: own}
	hl.m[key] = bk
	return bk.lim
}

// Wait blocks until src may be requested or ctx ends.
func (hl *HostLimiter) Wait(ctx context.Context, src Source) error {
	host := "_"
	if u, err := url.Parse(src.URL); err == nil && u.Host != "" {
		host = u.Host
	}
	if src.Rate != nil {
		return hl.limiterFor(host+"#"+src.Name, *src.Rate, true).Wait(ctx)
	}
	hl.mu.Lock()
	def := hl.def
	hl.mu.Unlock()
	return hl.limiterFor(host, def, false).Wait(ctx)
}
