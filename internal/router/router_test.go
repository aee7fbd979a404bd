package router

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-ohsnap/internal/location"
	locentity "github.com/ovaphlow/pitchfork/service-ohsnap/internal/location/entity"
	"github.com/ovaphlow/pitchfork/service-ohsnap/internal/session"
	"github.com/ovaphlow/pitchfork/service-ohsnap/internal/shot"
	"github.com/ovaphlow/pitchfork/service-ohsnap/internal/user"
	userentity "github.com/ovaphlow/pitchfork/service-ohsnap/internal/user/entity"
)

func newTestServices() Services {
	logger := zap.NewNop().Sugar()
	return Services{
		Users:     user.NewUserService(&fakeUsers{rows: map[string]userentity.User{}}, user.BcryptHasher{Cost: bcrypt.MinCost}, logger),
		Sessions:  session.NewManager(session.NewMemoryStore(), session.Config{Secret: []byte("test"), TTL: time.Hour}, logger),
		Locations: location.NewService(&fakeLocations{rows: map[int64]locentity.Location{}}),
		Shots:     shot.NewService(&fakeShots{}),
	}
}

func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(RegisterRoutes(zap.NewNop().Sugar(), newTestServices(), cfg))
	t.Cleanup(srv.Close)
	return srv
}

// client is one browser: it keeps its own cookie jar.
type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func newClient(t *testing.T, srv *httptest.Server) *client {
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &client{t: t, base: srv.URL, http: &http.Client{Jar: jar}}
}

func (c *client) do(method, path, body string) (int, string) {
	c.t.Helper()
	req, err := http.NewRequest(method, c.base+path, strings.NewReader(body))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func (c *client) signup(name string) string {
	c.t.Helper()
	status, body := c.do(http.MethodPost, "/api/auth/signup",
		`{"username":"`+name+`","email":"`+name+`@example.com","password":"secret"}`)
	if status != http.StatusCreated {
		c.t.Fatalf("signup %s status=%d body=%s", name, status, body)
	}
	var resp struct {
		UserID string `json:"userId"`
	}
	_ = json.Unmarshal([]byte(body), &resp)
	return resp.UserID
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, Config{})
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "GET /api/health", "200"))

	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var body healthResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if resp.StatusCode != http.StatusOK || body.Status != "OK" || body.Message != "OhSnap! API is running" {
		t.Fatalf("status=%d body=%+v", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("missing request id header")
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing security headers")
	}
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "GET /api/health", "200"))
	if after != before+1 {
		t.Fatalf("request counter went from %v to %v", before, after)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv := newTestServer(t, Config{})
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("request id=%q", got)
	}
}

func TestUnknownAPIRoute(t *testing.T) {
	c := newClient(t, newTestServer(t, Config{}))
	status, body := c.do(http.MethodGet, "/api/nope", "")
	if status != http.StatusNotFound || !strings.Contains(body, `"error"`) {
		t.Fatalf("status=%d body=%s", status, body)
	}
}

func TestProtectedRoutesNeedSession(t *testing.T) {
	c := newClient(t, newTestServer(t, Config{}))
	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/locations"},
		{http.MethodPut, "/api/locations/1"},
		{http.MethodDelete, "/api/locations/1"},
		{http.MethodPost, "/api/shots"},
		{http.MethodPut, "/api/shots/1"},
		{http.MethodDelete, "/api/shots/1"},
	} {
		status, body := c.do(tc.method, tc.path, "{}")
		if status != http.StatusUnauthorized || !strings.Contains(body, "Authentication required") {
			t.Fatalf("%s %s status=%d body=%s", tc.method, tc.path, status, body)
		}
	}
	status, body := c.do(http.MethodGet, "/api/auth/me", "")
	if status != http.StatusUnauthorized || !strings.Contains(body, "Not authenticated") {
		t.Fatalf("me status=%d body=%s", status, body)
	}
}

func TestPierScenario(t *testing.T) {
	srv := newTestServer(t, Config{})
	alice := newClient(t, srv)
	alice.signup("alice")

	status, body := alice.do(http.MethodPost, "/api/locations",
		`{"name":"Pier","city":"SF","coordinates":{"latitude":37.8,"longitude":-122.4}}`)
	if status != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", status, body)
	}
	var created struct {
		Location struct {
			ID string `json:"_id"`
		} `json:"location"`
	}
	_ = json.Unmarshal([]byte(body), &created)
	path := "/api/locations/" + created.Location.ID

	status, body = alice.do(http.MethodGet, path, "")
	var got struct {
		Coordinates struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"coordinates"`
	}
	_ = json.Unmarshal([]byte(body), &got)
	if status != http.StatusOK || got.Coordinates.Latitude != 37.8 || got.Coordinates.Longitude != -122.4 {
		t.Fatalf("get status=%d body=%s", status, body)
	}

	bob := newClient(t, srv)
	bob.signup("bob")
	if status, body = bob.do(http.MethodPut, path, `{"name":"Bob's Pier"}`); status != http.StatusForbidden {
		t.Fatalf("non-creator put status=%d body=%s", status, body)
	}
	if status, body = alice.do(http.MethodDelete, path, ""); status != http.StatusOK {
		t.Fatalf("delete status=%d body=%s", status, body)
	}
	if status, _ = alice.do(http.MethodGet, path, ""); status != http.StatusNotFound {
		t.Fatalf("get after delete status=%d", status)
	}
}

func TestFavoriteCameraScenario(t *testing.T) {
	srv := newTestServer(t, Config{})
	u := newClient(t, srv)
	userID := u.signup("carol")

	for _, camera := range []string{"A", "B", "A"} {
		status, body := u.do(http.MethodPost, "/api/shots",
			`{"locationId":"99","date":"2024-06-01","cameraModel":"`+camera+`"}`)
		if status != http.StatusCreated {
			t.Fatalf("log shot status=%d body=%s", status, body)
		}
	}
	anon := newClient(t, srv)
	status, body := anon.do(http.MethodGet, "/api/shots/stats/"+userID, "")
	if status != http.StatusOK || !strings.Contains(body, `"favoriteCamera":"A"`) || !strings.Contains(body, `"totalShots":3`) {
		t.Fatalf("stats status=%d body=%s", status, body)
	}
}

func TestLogoutEndsSession(t *testing.T) {
	c := newClient(t, newTestServer(t, Config{}))
	c.signup("dave")
	if status, body := c.do(http.MethodGet, "/api/auth/me", ""); status != http.StatusOK {
		t.Fatalf("me status=%d body=%s", status, body)
	}
	if status, body := c.do(http.MethodPost, "/api/auth/logout", ""); status != http.StatusOK {
		t.Fatalf("logout status=%d body=%s", status, body)
	}
	if status, _ := c.do(http.MethodGet, "/api/auth/me", ""); status != http.StatusUnauthorized {
		t.Fatalf("me after logout status=%d", status)
	}
}

func TestAuthRateLimit(t *testing.T) {
	c := newClient(t, newTestServer(t, Config{AuthRateLimit: 2}))
	before := testutil.ToFloat64(rateLimitedTotal)
	for i := 0; i < 2; i++ {
		if status, _ := c.do(http.MethodPost, "/api/auth/login", `{"username":"x","password":"y"}`); status != http.StatusUnauthorized {
			t.Fatalf("attempt %d status=%d", i, status)
		}
	}
	status, body := c.do(http.MethodPost, "/api/auth/login", `{"username":"x","password":"y"}`)
	if status != http.StatusTooManyRequests || !strings.Contains(body, `"error"`) {
		t.Fatalf("status=%d body=%s", status, body)
	}
	if testutil.ToFloat64(rateLimitedTotal) != before+1 {
		t.Fatalf("rate limit counter not incremented")
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, Config{CORSOrigins: []string{"http://localhost:5173"}})
	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/locations", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get("Access-Control-Allow-Origin") != "http://localhost:5173" ||
		resp.Header.Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("cors headers: %v", resp.Header)
	}
}

func TestSPAFallback(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>shell</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatal(err)
	}
	c := newClient(t, newTestServer(t, Config{StaticDir: dir}))

	if status, body := c.do(http.MethodGet, "/locations/123", ""); status != http.StatusOK || !strings.Contains(body, "shell") {
		t.Fatalf("client route status=%d body=%s", status, body)
	}
	if status, body := c.do(http.MethodGet, "/app.js", ""); status != http.StatusOK || !strings.Contains(body, "console.log") {
		t.Fatalf("asset status=%d body=%s", status, body)
	}
	if status, _ := c.do(http.MethodGet, "/api/missing", ""); status != http.StatusNotFound {
		t.Fatalf("api miss should not fall back to the shell, status=%d", status)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(zap.NewNop().Sugar())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), "Server error") {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("AUTH_RATE_LIMIT", "0")
	t.Setenv("STATIC_DIR", "/srv/www")
	cfg := ConfigFromEnv()
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.test" {
		t.Fatalf("origins=%v", cfg.CORSOrigins)
	}
	if cfg.AuthRateLimit != 0 || cfg.StaticDir != "/srv/www" {
		t.Fatalf("cfg=%+v", cfg)
	}
}
