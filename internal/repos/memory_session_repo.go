package repos

import (
	"context"
	"sync"
	"time"

	"detaltap/internal/domain"
)

// MemorySessionRepo keeps sessions in process memory. Callers get copies, never the stored value.
type MemorySessionRepo struct {
	mu  sync.Mutex
	m   map[int64]domain.Session
	TTL time.Duration
	Now func() time.Time
}

func NewMemorySessionRepo(ttl time.Duration) *MemorySessionRepo {
	return &MemorySessionRepo{m: make(map[int64]domain.Session), TTL: ttl, Now: time.Now}
}

func (r *MemorySessionRepo) expired(s domain.Session) bool {
	return r.TTL > 0 && r.Now().Sub(s.UpdatedAt) > r.TTL
}

func (r *MemorySessionRepo) Get(_ context.Context, userID int64) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[userID]
	if !ok {
		return nil, nil
	}
	if r.expired(s) {
		delete(r.m, userID)
		return nil, nil
	}
	return &s, nil
}

func (r *MemorySessionRepo) Set(_ context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.UpdatedAt = r.Now().UTC()
	r.m[s.UserID] = *s
	return nil
}

func (r *MemorySessionRepo) Clear(_ context.Context, userID int64) error {
	r.mu.Lock()
	delete(r.m, userID)
	r.mu.Unlock()
	return nil
}

func (r *MemorySessionRepo) Sweep(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.m {
		if r.expired(s) {
			delete(r.m, id)
			n++
		}
	}
	return n, nil
}

func (r *MemorySessionRepo) Len(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.m {
		if !r.expired(s) {
			n++
		}
	}
	return n, nil
}
