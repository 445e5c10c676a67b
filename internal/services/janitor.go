package services

import (
	"context"
	"time"

	"detaltap/internal/domain"
	applog "detaltap/internal/log"
	"detaltap/internal/metrics"
)

// Janitor evicts idle sessions and stale throttle buckets on a fixed interval.
type Janitor struct {
	Sessions domain.SessionStore
	Throttle *Throttle
	Metrics  *metrics.Metrics
	Interval time.Duration
	IdleUser time.Duration
}

// Run sweeps until ctx is done.
func (j *Janitor) Run(ctx context.Context) error {
	if j.Interval <= 0 {
		j.Interval = 5 * time.Minute
	}
	t := time.NewTicker(j.Interval)
	defer t.Stop()
	for {
		j.Sweep(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

func (j *Janitor) Sweep(ctx context.Context) {
	n, err := j.Sessions.Sweep(ctx)
	if err != nil {
		applog.Error(ctx, "session.sweep.fail", err, nil)
		return
	}
	if n > 0 {
		applog.Info(ctx, "session.sweep", map[string]any{"expired": n})
	}
	if j.Metrics != nil {
		j.Metrics.SessionsExpired.Add(float64(n))
		if live, err := j.Sessions.Len(ctx); err == nil {
			j.Metrics.ActiveSessions.Set(float64(live))
		}
	}
	if j.Throttle != nil {
		idle := j.IdleUser
		if idle <= 0 {
			idle = time.Hour
		}
		j.Throttle.Prune(idle)
	}
}
