package handlers_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	html "github.com/gofiber/template/html/v2"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"detaltap/internal/config"
	"detaltap/internal/domain"
	"detaltap/internal/http/handlers"
	applog "detaltap/internal/log"
	"detaltap/internal/media"
	"detaltap/internal/metrics"
	"detaltap/internal/present"
	"detaltap/internal/repos"
	"detaltap/internal/services"
)

const (
	adminKey      = "s3cret-admin-key"
	webhookSecret = "hook-secret"
	adminID       = int64(1)
)

type recordingHandler struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recordingHandler) Handle(_ context.Context, ev domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

type testEnv struct {
	app      *fiber.App
	db       *sqlx.DB
	listings *repos.ListingRepo
	bans     *repos.BanRepo
	store    *media.FileStore
	events   *recordingHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte(adminKey), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	cfg := config.Defaults()
	cfg.AdminIDs = []int64{adminID}
	cfg.AdminKeyHash = string(hash)
	cfg.WebhookSecret = webhookSecret

	store, err := media.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("media: %v", err)
	}
	listings := repos.NewListingRepo(db)
	bans := repos.NewBanRepo(db)
	sessions := repos.NewMemorySessionRepo(0)
	gate := services.NewGate(cfg.AdminIDs, listings, bans, sessions)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	rec := &recordingHandler{}

	deps := handlers.NewDeps(cfg, rec, gate, store, present.New(cfg.Currency), m, reg)
	app := handlers.NewApp(deps, html.New("../../web/templates", ".html"))
	return &testEnv{app: app, db: db, listings: listings, bans: bans, store: store, events: rec}
}

func (e *testEnv) seed(t *testing.T, name string, price string) int64 {
	t.Helper()
	id, err := e.listings.Create(context.Background(), &domain.Listing{
		VIN: "WVWZZZ1JZXW000001", OEM: "06A115561B", Name: name,
		Price: decimal.RequireFromString(price), Description: "good", UploaderID: 77, UploaderName: "seller",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return id
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request %s %s: %v", req.Method, req.URL.Path, err)
	}
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func adminReq(method, path, body string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("X-Admin-Key", adminKey)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func captureLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := applog.L()
	applog.Set(zap.New(core))
	t.Cleanup(func() { applog.Set(prev) })
	return logs
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)
	resp, body := do(t, env.app, httptest.NewRequest("GET", "/healthz", nil))
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"ok":true`) {
		t.Fatalf("healthz: %d %s", resp.StatusCode, body)
	}
	resp, body = do(t, env.app, httptest.NewRequest("GET", "/metrics", nil))
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "detaltap_events_total") {
		t.Fatalf("metrics: %d %s", resp.StatusCode, body)
	}
}

func TestUnknownRouteRendersFriendlyPage(t *testing.T) {
	env := newTestEnv(t)
	resp, body := do(t, env.app, httptest.NewRequest("GET", "/nope", nil))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "Page not found") {
		t.Fatalf("friendly message missing; body=%s", body)
	}
}

func TestStorageFailuresDoNotLeak(t *testing.T) {
	env := newTestEnv(t)
	logs := captureLogs(t)
	env.db.Close()

	resp, body := do(t, env.app, adminReq("GET", "/admin/api/stats", ""))
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	if strings.Contains(body, "sql") || strings.Contains(body, "closed") {
		t.Fatalf("internal details leaked; body=%s", body)
	}

	resp, body = do(t, env.app, adminReq("GET", "/admin", ""))
	if resp.StatusCode != http.StatusInternalServerError || !strings.Contains(body, "Could not load stats") {
		t.Fatalf("dashboard: %d %s", resp.StatusCode, body)
	}
	if logs.FilterMessage("admin.stats.fail").Len() != 1 {
		t.Fatalf("expected the failure to be logged")
	}
}
