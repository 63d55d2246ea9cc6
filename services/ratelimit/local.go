package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	localSweepInterval = 5 * time.Minute
	localIdleTTL       = 30 * time.Minute
)

type localEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

// LocalLimiter is a per-process token bucket per scope and client, used when
// no Redis store is configured. Budgets are not shared between replicas.
type LocalLimiter struct {
	cfg Config
	now func() time.Time

	mu        sync.Mutex
	entries   map[string]*localEntry
	lastSweep time.Time
}

// NewLocalLimiter creates a LocalLimiter refilling cfg.Requests tokens per cfg.Window
func NewLocalLimiter(cfg Config) *LocalLimiter {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &LocalLimiter{
		cfg:     cfg,
		now:     time.Now,
		entries: make(map[string]*localEntry),
	}
}

// Check takes one token for client within scope. It never returns an error.
func (l *LocalLimiter) Check(_ context.Context, scope, client string) (*Result, error) {
	if l.cfg.Requests <= 0 {
		return &Result{Allowed: true}, nil
	}

	now := l.now()
	lim := l.limiterFor(scope+":"+client, now)

	allowed := lim.AllowN(now, 1)
	tokens := lim.TokensAt(now)
	remaining := int(tokens)
	if remaining < 0 {
		remaining = 0
	}

	// time until the bucket holds one whole token again
	wait := time.Duration(0)
	if tokens < 1 {
		wait = time.Duration((1 - tokens) / float64(lim.Limit()) * float64(time.Second))
	}

	return &Result{
		Allowed:   allowed,
		Limit:     l.cfg.Requests,
		Remaining: remaining,
		ResetAt:   now.Add(wait),
	}, nil
}

func (l *LocalLimiter) limiterFor(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > localSweepInterval {
		for k, e := range l.entries {
			if now.Sub(e.lastUse) > localIdleTTL {
				delete(l.entries, k)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.entries[key]
	if !ok {
		every := l.cfg.Window / time.Duration(l.cfg.Requests)
		e = &localEntry{limiter: rate.NewLimiter(rate.Every(every), l.cfg.Requests)}
		l.entries[key] = e
	}
	e.lastUse = now
	return e.limiter
}
