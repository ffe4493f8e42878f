package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter applies an independent token bucket per key. A zero
// per-minute rate disables limiting.
type KeyedLimiter struct {
	mu      sync.Mutex
	keys    map[string]*entry
	limit   rate.Limit
	burst   int
	enabled bool
	now     func() time.Time
}

func NewKeyedLimiter(perMinute float64, burst int) *KeyedLimiter {
	if burst < 1 {
		burst = 1
	}
	return &KeyedLimiter{
		keys:    make(map[string]*entry),
		limit:   rate.Limit(perMinute / 60),
		burst:   burst,
		enabled: perMinute > 0,
		now:     time.Now,
	}
}

func (l *KeyedLimiter) Allow(key string) bool {
	if l == nil || !l.enabled {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.keys[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.keys[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Cleanup forgets keys idle for longer than maxIdle.
func (l *KeyedLimiter) Cleanup(maxIdle time.Duration) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, e := range l.keys {
		if now.Sub(e.lastSeen) > maxIdle {
			delete(l.keys, key)
		}
	}
}

func (l *KeyedLimiter) StartCleanup(interval, maxIdle time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Cleanup(maxIdle)
			case <-stop:
				return
			}
		}
	}()
}

func (l *KeyedLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}
