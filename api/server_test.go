package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"listings-aggregator-api/core/domain"
	"listings-aggregator-api/core/fetch"
	"listings-aggregator-api/core/interfaces"
	"listings-aggregator-api/core/listing"
	"listings-aggregator-api/core/registry"
	memcache "listings-aggregator-api/infrastructure/cache/memory"
	stdhttp "listings-aggregator-api/infrastructure/http/standard"
	"listings-aggregator-api/infrastructure/store/memory"
	"listings-aggregator-api/pkg/featureflags"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, fields map[string]interface{}) {}
func (nopLogger) Info(msg string, fields map[string]interface{})  {}
func (nopLogger) Warn(msg string, fields map[string]interface{})  {}
func (nopLogger) Error(msg string, fields map[string]interface{}) {}

func TestNewAPIWithMiddleware_Defaults(t *testing.T) {
	api, router := NewAPIWithMiddleware(APIConfig{})

	if api == nil {
		t.Error("NewAPIWithMiddleware returned nil API")
	}
	if router == nil {
		t.Error("NewAPIWithMiddleware returned nil router")
	}
}

func TestNewAPIWithMiddleware_HasCorrectInfo(t *testing.T) {
	api, _ := NewAPIWithMiddleware(APIConfig{})

	info := api.OpenAPI().Info
	if info.Title != "Listings Aggregator API" {
		t.Errorf("API title = %s, want Listings Aggregator API", info.Title)
	}
	if info.Version != "1.0.0" {
		t.Errorf("API version = %s, want 1.0.0", info.Version)
	}
}

func TestAPI_OpenAPIEndpoint(t *testing.T) {
	_, router := NewAPIWithMiddleware(APIConfig{})

	req := httptest.NewRequest("GET", "/openapi.json", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("OpenAPI endpoint status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/vnd.oai.openapi+json" {
		t.Errorf("OpenAPI content-type = %s, want application/vnd.oai.openapi+json", ct)
	}
}

func TestAPI_DocsEndpoint(t *testing.T) {
	_, router := NewAPIWithMiddleware(APIConfig{})

	req := httptest.NewRequest("GET", "/docs", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Docs endpoint status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestAPI_CORSPreflight(t *testing.T) {
	_, router := NewAPIWithMiddleware(APIConfig{})

	req := httptest.NewRequest(http.MethodOptions, "/listings", nil)
	req.Header.Set("Origin", "https://example.org")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestNewAPIWithMiddleware_RateLimit(t *testing.T) {
	cases := []struct {
		name     string
		enabled  bool
		wantLast int
	}{
		{"limited when flag on", true, http.StatusTooManyRequests},
		{"unlimited when flag off", false, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, router := NewAPIWithMiddleware(APIConfig{
				Logger:    nopLogger{},
				Flags:     featureflags.NewStaticManager(map[featureflags.FeatureFlag]bool{featureflags.RateLimitEnabled: tc.enabled}),
				RateLimit: 1,
				RateBurst: 2,
			})

			var last int
			for i := 0; i < 3; i++ {
				req := httptest.NewRequest("GET", "/openapi.json", nil)
				req.RemoteAddr = "10.0.0.1:1234"
				w := httptest.NewRecorder()
				router.ServeHTTP(w, req)
				last = w.Code
				if w.Header().Get("X-Request-ID") == "" {
					t.Error("expected X-Request-ID header")
				}
			}
			if last != tc.wantLast {
				t.Errorf("third request status = %d, want %d", last, tc.wantLast)
			}
		})
	}
}

func newEndToEnd(t *testing.T, upstream *httptest.Server) http.Handler {
	t.Helper()

	deps := interfaces.Dependencies{
		Cache:      memcache.NewMemoryCache(time.Minute),
		HTTPClient: stdhttp.NewStandardHTTPClient(2 * time.Second),
		Logger:     nopLogger{},
		Store:      memory.NewStore(),
	}
	reg := registry.New([]domain.Source{
		{Name: "local", URL: upstream.URL + "/list"},
	}, func(string) (string, bool) { return "", false })

	cfg := listing.DefaultConfig()
	cfg.Sleeper = fetch.NoSleep
	cfg.Flags = featureflags.NewStaticManager(featureflags.Defaults)

	api, router := NewAPIWithMiddleware(APIConfig{Logger: nopLogger{}})
	RegisterRoutes(api, listing.NewService(deps, reg, cfg))
	return router
}

func TestRegisterRoutes_EndToEnd(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"listings":[
			{"id":"1","address":"1 Elm","city":"Austin","price":500000,"bedrooms":3},
			{"id":"2","address":"2 Oak","city":"Dallas","price":900000,"bedrooms":5}
		]}`))
	}))
	defer upstream.Close()

	router := newEndToEnd(t, upstream)

	get := func(path string) (int, map[string]interface{}) {
		req := httptest.NewRequest("GET", path, nil).WithContext(context.Background())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		var body map[string]interface{}
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		return w.Code, body
	}

	code, body := get("/listings")
	if code != http.StatusOK {
		t.Fatalf("GET /listings status = %d", code)
	}
	if body["count"] != 2.0 {
		t.Errorf("GET /listings count = %v, want 2", body["count"])
	}

	code, body = get("/listings/search?city=austin&min_bedrooms=2")
	if code != http.StatusOK || body["count"] != 1.0 {
		t.Errorf("search status = %d count = %v, want 200 and 1", code, body["count"])
	}

	code, _ = get("/listings/search?min_price=abc")
	if code != http.StatusBadRequest {
		t.Errorf("invalid search status = %d, want 400", code)
	}

	code, body = get("/stats")
	if code != http.StatusOK {
		t.Fatalf("GET /stats status = %d", code)
	}
	data := body["data"].(map[string]interface{})
	if data["total"] != 2.0 || data["last_refresh"] == nil {
		t.Errorf("stats = %v, want total 2 with last_refresh", data)
	}

	code, _ = get("/listings/does-not-exist")
	if code != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", code)
	}
}
