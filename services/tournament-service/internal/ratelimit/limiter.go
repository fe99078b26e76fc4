package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bracket-esports/bracket/common/cache"
	"github.com/bracket-esports/bracket/common/config"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Limiter blocks until the caller may make one more upstream request for
// region, or until ctx is done.
type Limiter interface {
	Wait(ctx context.Context, region string) error
}

type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

type Option func(*options)

type options struct {
	clock  Clock
	window time.Duration
}

func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

func WithWindow(d time.Duration) Option {
	return func(o *options) { o.window = d }
}

func buildOptions(opts []Option) options {
	o := options{clock: systemClock{}, window: time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New picks the backend named in cfg. The redis backend needs rc.
func New(cfg config.GameStatsConfig, rc *cache.RedisClient, opts ...Option) (Limiter, error) {
	switch cfg.LimiterBackend {
	case "", BackendMemory:
		return NewFixedWindow(cfg.RateLimitPerSecond, opts...), nil
	case BackendRedis:
		if rc == nil {
			return nil, fmt.Errorf("redis limiter backend needs a redis client")
		}
		return NewRedisWindow(rc, cfg.RateLimitPerSecond, opts...), nil
	default:
		return nil, fmt.Errorf("unknown limiter backend %q", cfg.LimiterBackend)
	}
}

// FixedWindow counts requests per region in a window that opens with the
// first request and lasts one window length. State is per process.
type FixedWindow struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	clock   Clock
	windows map[string]*windowState
}

type windowState struct {
	start time.Time
	count int
}

func NewFixedWindow(limit int, opts ...Option) *FixedWindow {
	o := buildOptions(opts)
	if limit < 1 {
		limit = 1
	}
	return &FixedWindow{
		limit:   limit,
		window:  o.window,
		clock:   o.clock,
		windows: make(map[string]*windowState),
	}
}

func (l *FixedWindow) Wait(ctx context.Context, region string) error {
	for {
		wait, ok := l.reserve(region)
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.clock.After(wait):
		}
	}
}

func (l *FixedWindow) reserve(region string) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	w, ok := l.windows[region]
	if !ok || now.Sub(w.start) >= l.window {
		w = &windowState{start: now}
		l.windows[region] = w
	}

	if w.count < l.limit {
		w.count++
		return 0, true
	}
	return w.start.Add(l.window).Sub(now), false
}
