package services

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle is a per-user token bucket for inbound events.
type Throttle struct {
	mu    sync.Mutex
	limit rate.Limit
	burst int
	users map[int64]*userBucket
	now   func() time.Time
}

type userBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func NewThrottle(perSecond float64, burst int) *Throttle {
	return &Throttle{
		limit: rate.Limit(perSecond),
		burst: burst,
		users: make(map[int64]*userBucket),
		now:   time.Now,
	}
}

func (t *Throttle) Allow(userID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	b, ok := t.users[userID]
	if !ok {
		b = &userBucket{lim: rate.NewLimiter(t.limit, t.burst)}
		t.users[userID] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// Prune forgets users idle for longer than idle and returns how many were dropped.
func (t *Throttle) Prune(idle time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-idle)
	n := 0
	for id, b := range t.users {
		if b.seen.Before(cutoff) {
			delete(t.users, id)
			n++
		}
	}
	return n
}
