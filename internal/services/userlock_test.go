package services

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"detaltap/internal/domain"
	"detaltap/internal/metrics"
	"detaltap/internal/repos"
)

func TestUserLocksSerialisePerUser(t *testing.T) {
	l := newUserLocks()
	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.lock(7)
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, l.size(), "idle entries are released")
}

func TestUserLocksDoNotBlockOtherUsers(t *testing.T) {
	l := newUserLocks()
	unlockA := l.lock(1)
	done := make(chan struct{})
	go func() {
		unlockB := l.lock(2)
		unlockB()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("user 2 blocked behind user 1")
	}
	unlockA()
}

func TestThrottle(t *testing.T) {
	th := NewThrottle(1, 2)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	th.now = func() time.Time { return now }

	assert.True(t, th.Allow(1))
	assert.True(t, th.Allow(1))
	assert.False(t, th.Allow(1), "burst spent")
	assert.True(t, th.Allow(2), "other users have their own bucket")

	now = now.Add(time.Second)
	assert.True(t, th.Allow(1), "refilled")

	now = now.Add(2 * time.Hour)
	th.Allow(3)
	assert.Equal(t, 2, th.Prune(time.Hour))
}

type panicImages struct{}

func (panicImages) Save(context.Context, []byte) (string, error) { panic("disk on fire") }
func (panicImages) Open(string) (io.ReadCloser, error)          { return nil, domain.ErrNotFound }

type nopTransport struct{ sent []domain.Unit }

func (n *nopTransport) Send(_ context.Context, _ int64, u domain.Unit) error {
	n.sent = append(n.sent, u)
	return nil
}
func (n *nopTransport) Answer(context.Context, string, string) error { return nil }
func (n *nopTransport) FetchImage(context.Context, string) ([]byte, error) {
	return []byte("x"), nil
}

func TestHandleRecoversPanicsAndThrottles(t *testing.T) {
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	listings := repos.NewListingRepo(db)
	sessions := repos.NewMemorySessionRepo(0)
	m := metrics.New(prometheus.NewRegistry())
	tr := &nopTransport{}
	eng := NewEngine(EngineDeps{
		Listings:  listings,
		Sessions:  sessions,
		Transport: tr,
		Images:    panicImages{},
		Gate:      NewGate(nil, listings, repos.NewBanRepo(db), sessions),
		Metrics:   m,
		Throttle:  NewThrottle(0.001, 3),
	})
	ctx := context.Background()

	s := domain.NewUploadSession(5, "tok")
	s.Step = domain.StepAwaitingPhoto
	require.NoError(t, sessions.Set(ctx, s))

	err = eng.Handle(ctx, domain.Event{Kind: domain.EventPhoto, UserID: 5, Photo: &domain.Photo{FileID: "f"}})
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HandlerPanics))
	assert.Equal(t, msgGenericFailure, tr.sent[len(tr.sent)-1].Text)

	// burst of 3: the panicking event used one
	require.NoError(t, eng.Handle(ctx, domain.Event{Kind: domain.EventCommand, UserID: 5, Command: "help"}))
	require.NoError(t, eng.Handle(ctx, domain.Event{Kind: domain.EventCommand, UserID: 5, Command: "help"}))
	sentBefore := len(tr.sent)
	require.NoError(t, eng.Handle(ctx, domain.Event{Kind: domain.EventCommand, UserID: 5, Command: "help"}))
	assert.Equal(t, sentBefore, len(tr.sent), "throttled event produces no reply")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Throttled))
}

func TestJanitorSweep(t *testing.T) {
	store := repos.NewMemorySessionRepo(time.Hour)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.Now = func() time.Time { return now }
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, domain.NewSearchSession(1, "a")))
	now = now.Add(2 * time.Hour)
	require.NoError(t, store.Set(ctx, domain.NewSearchSession(2, "b")))

	m := metrics.New(prometheus.NewRegistry())
	j := &Janitor{Sessions: store, Metrics: m, Throttle: NewThrottle(1, 1)}
	j.Sweep(ctx)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsExpired))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSessions))

	runCtx, cancel := context.WithCancel(ctx)
	cancel()
	assert.NoError(t, j.Run(runCtx))
}
