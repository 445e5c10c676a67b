package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
)

func TestAdminGuardRequiresKey(t *testing.T) {
	env := newTestEnv(t)
	logs := captureLogs(t)

	// Anonymous -> basic auth challenge
	resp, _ := do(t, env.app, httptest.NewRequest("GET", "/admin", nil))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if resp.Header.Get("WWW-Authenticate") == "" {
		t.Fatalf("missing basic auth challenge")
	}

	// Wrong key -> 403 and a security entry
	req := httptest.NewRequest("GET", "/admin/api/stats", nil)
	req.Header.Set("X-Admin-Key", "guess")
	resp, _ = do(t, env.app, req)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for wrong key, got %d", resp.StatusCode)
	}
	if logs.FilterMessage("access.denied.admin").Len() == 0 {
		t.Fatalf("denied access was not logged")
	}

	// Right key via header and via basic auth -> 200
	resp, _ = do(t, env.app, adminReq("GET", "/admin/api/stats", ""))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin key expected 200, got %d", resp.StatusCode)
	}
	req = httptest.NewRequest("GET", "/admin", nil)
	req.SetBasicAuth("admin", adminKey)
	resp, _ = do(t, env.app, req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("basic auth expected 200, got %d", resp.StatusCode)
	}
}

func TestAdminDashboardShowsListings(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "Brake <pads>", "45.5")

	resp, body := do(t, env.app, adminReq("GET", "/admin", ""))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	for _, want := range []string{"Listings: <b>1</b>", "Brake &lt;pads&gt;", "45.50 AZN", "@seller"} {
		if !strings.Contains(body, want) {
			t.Fatalf("dashboard missing %q; body=%s", want, body)
		}
	}
}

func TestAdminListingsAPI(t *testing.T) {
	env := newTestEnv(t)
	first := env.seed(t, "Alternator", "120")
	env.seed(t, "Mirror", "30")

	resp, body := do(t, env.app, adminReq("GET", "/admin/api/listings?page=0", ""))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: %d %s", resp.StatusCode, body)
	}
	var page struct {
		Listings []struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"listings"`
		Total int `json:"total"`
	}
	if err := json.Unmarshal([]byte(body), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Total != 2 || len(page.Listings) != 2 || page.Listings[0].Name != "Mirror" {
		t.Fatalf("unexpected page: %+v", page)
	}

	resp, _ = do(t, env.app, adminReq("DELETE", "/admin/api/listings/"+strconv.FormatInt(first, 10), ""))
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete expected 204, got %d", resp.StatusCode)
	}
	resp, _ = do(t, env.app, adminReq("DELETE", "/admin/api/listings/"+strconv.FormatInt(first, 10), ""))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete expected 404, got %d", resp.StatusCode)
	}
	resp, _ = do(t, env.app, adminReq("DELETE", "/admin/api/listings/abc", ""))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad id expected 400, got %d", resp.StatusCode)
	}
	if n, _ := env.listings.Count(context.Background()); n != 1 {
		t.Fatalf("expected 1 listing left, got %d", n)
	}
}

func TestAdminBansAPI(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, body := do(t, env.app, adminReq("POST", "/admin/api/bans", `{"user_id": 55, "reason": "spam"}`))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("ban: %d %s", resp.StatusCode, body)
	}
	if banned, _ := env.bans.IsBanned(ctx, 55); !banned {
		t.Fatalf("user 55 should be banned")
	}

	resp, body = do(t, env.app, adminReq("POST", "/admin/api/bans", `{"user_id": 1}`))
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(body, "admins cannot be banned") {
		t.Fatalf("banning an admin: %d %s", resp.StatusCode, body)
	}
	resp, _ = do(t, env.app, adminReq("POST", "/admin/api/bans", `{"reason": "no id"}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing id expected 400, got %d", resp.StatusCode)
	}

	resp, body = do(t, env.app, adminReq("GET", "/admin/api/bans", ""))
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"reason":"spam"`) {
		t.Fatalf("list bans: %d %s", resp.StatusCode, body)
	}
	resp, body = do(t, env.app, adminReq("GET", "/admin/api/stats", ""))
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"bans":1`) {
		t.Fatalf("stats: %d %s", resp.StatusCode, body)
	}

	resp, _ = do(t, env.app, adminReq("DELETE", "/admin/api/bans/55", ""))
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("unban expected 204, got %d", resp.StatusCode)
	}
	resp, _ = do(t, env.app, adminReq("DELETE", "/admin/api/bans/55", ""))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second unban expected 404, got %d", resp.StatusCode)
	}
}
