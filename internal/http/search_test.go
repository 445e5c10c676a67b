package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
)

type searchResult struct {
	Total   int `json:"total"`
	Results []struct {
		ID     int64  `json:"id"`
		Name   string `json:"name"`
		Price  string `json:"price"`
		Seller string `json:"seller"`
	} `json:"results"`
}

func search(t *testing.T, env *testEnv, query string) (int, searchResult) {
	t.Helper()
	resp, body := do(t, env.app, httptest.NewRequest("GET", "/api/v1/search?"+query, nil))
	var r searchResult
	if resp.StatusCode == http.StatusOK {
		if err := json.Unmarshal([]byte(body), &r); err != nil {
			t.Fatalf("decode %s: %v", body, err)
		}
	}
	return resp.StatusCode, r
}

func TestPublicSearch(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "Front brake pads", "40")
	env.seed(t, "Rear brake disc", "90")
	env.seed(t, "Wiper", "12.5")

	code, r := search(t, env, "q=BRAKE")
	if code != http.StatusOK || r.Total != 2 {
		t.Fatalf("keyword: %d %+v", code, r)
	}
	if r.Results[0].Seller != "@seller" {
		t.Fatalf("seller handle missing: %+v", r.Results[0])
	}

	code, r = search(t, env, "mode=price&min=100&max=10")
	if code != http.StatusOK || r.Total != 2 {
		t.Fatalf("price: %d %+v", code, r)
	}
	if r.Results[0].Price != "12.50" || r.Results[1].Price != "40.00" {
		t.Fatalf("price results not ascending: %+v", r.Results)
	}

	code, r = search(t, env, "mode=vin&q=WVWZZZ1JZXW000001")
	if code != http.StatusOK || r.Total != 3 {
		t.Fatalf("vin: %d %+v", code, r)
	}

	for _, bad := range []string{"q=", "mode=price&min=abc&max=3", "mode=colour&q=red"} {
		if code, _ := search(t, env, bad); code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", bad, code)
		}
	}
}

func TestPublicListingDetail(t *testing.T) {
	env := newTestEnv(t)
	id := env.seed(t, "Radiator", "150")

	resp, body := do(t, env.app, httptest.NewRequest("GET", "/api/v1/listings/"+strconv.FormatInt(id, 10), nil))
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"name":"Radiator"`) {
		t.Fatalf("detail: %d %s", resp.StatusCode, body)
	}
	if strings.Contains(body, "uploader_id") {
		t.Fatalf("public detail exposes the uploader id: %s", body)
	}
	resp, _ = do(t, env.app, httptest.NewRequest("GET", "/api/v1/listings/999", nil))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing listing expected 404, got %d", resp.StatusCode)
	}
}
