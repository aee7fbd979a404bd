package user

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-ohsnap/internal/session"
)

type testEnv struct {
	h        *Handler
	sessions *session.Manager
	store    *session.MemoryStore
	users    *memStore
}

func newTestEnv() *testEnv {
	svc, users := newTestService()
	store := session.NewMemoryStore()
	mgr := session.NewManager(store, session.Config{Secret: []byte("k"), TTL: time.Hour}, zap.NewNop().Sugar())
	return &testEnv{h: NewHandler(svc, mgr, zap.NewNop().Sugar()), sessions: mgr, store: store, users: users}
}

// do runs handler behind the session middleware, forwarding cookies.
func (e *testEnv) do(handler http.HandlerFunc, method, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, "/api/auth", strings.NewReader(body))
	for _, c := range cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.sessions.Authenticate(handler).ServeHTTP(w, r)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "ohsnap.sid" && c.MaxAge > 0 {
			return c
		}
	}
	t.Fatalf("no session cookie in response")
	return nil
}

func TestSignupLoginMeLogout(t *testing.T) {
	e := newTestEnv()

	w := e.do(e.h.Signup, http.MethodPost, `{"username":"alice","email":"alice@example.com","password":"pw"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("signup status=%d body=%s", w.Code, w.Body.String())
	}
	var signup map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &signup)
	if signup["username"] != "alice" || signup["userId"] == "" {
		t.Fatalf("unexpected signup body: %s", w.Body.String())
	}
	signupCookie := sessionCookie(t, w)

	w = e.do(e.h.Me, http.MethodGet, "", signupCookie)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"email":"alice@example.com"`) {
		t.Fatalf("me status=%d body=%s", w.Code, w.Body.String())
	}

	w = e.do(e.h.Login, http.MethodPost, `{"username":"alice","password":"pw"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login status=%d body=%s", w.Code, w.Body.String())
	}
	var login LoginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if login.User.Username != "alice" || login.User.ID == 0 {
		t.Fatalf("unexpected login body: %s", w.Body.String())
	}
	loginCookie := sessionCookie(t, w)

	w = e.do(e.h.Logout, http.MethodPost, "", loginCookie)
	if w.Code != http.StatusOK {
		t.Fatalf("logout status=%d", w.Code)
	}
	w = e.do(e.h.Me, http.MethodGet, "", loginCookie)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("me after logout status=%d", w.Code)
	}
}

func TestSignupConflict(t *testing.T) {
	e := newTestEnv()
	body := `{"username":"alice","email":"alice@example.com","password":"pw"}`
	if w := e.do(e.h.Signup, http.MethodPost, body); w.Code != http.StatusCreated {
		t.Fatalf("first signup status=%d", w.Code)
	}
	w := e.do(e.h.Signup, http.MethodPost, body)
	if w.Code != http.StatusConflict || !strings.Contains(w.Body.String(), "Username already exists") {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestLoginEnumerationResistance(t *testing.T) {
	e := newTestEnv()
	e.do(e.h.Signup, http.MethodPost, `{"username":"alice","email":"alice@example.com","password":"pw"}`)

	wrong := e.do(e.h.Login, http.MethodPost, `{"username":"alice","password":"nope"}`)
	unknown := e.do(e.h.Login, http.MethodPost, `{"username":"ghost","password":"nope"}`)
	if wrong.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Fatalf("statuses %d / %d", wrong.Code, unknown.Code)
	}
	if wrong.Body.String() != unknown.Body.String() {
		t.Fatalf("bodies differ: %s vs %s", wrong.Body.String(), unknown.Body.String())
	}

	missing := e.do(e.h.Login, http.MethodPost, `{"username":"alice"}`)
	if missing.Code != http.StatusBadRequest {
		t.Fatalf("missing password status=%d", missing.Code)
	}
	garbage := e.do(e.h.Login, http.MethodPost, `{`)
	if garbage.Code != http.StatusBadRequest {
		t.Fatalf("malformed body status=%d", garbage.Code)
	}
}

func TestUpdateProfileMirrorsEmail(t *testing.T) {
	e := newTestEnv()
	w := e.do(e.h.Signup, http.MethodPost, `{"username":"alice","email":"alice@example.com","password":"pw"}`)
	c := sessionCookie(t, w)

	if w := e.do(e.h.UpdateProfile, http.MethodPut, `{"bio":"hi"}`); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous profile update status=%d", w.Code)
	}

	w = e.do(e.h.UpdateProfile, http.MethodPut, `{"email":"new@example.com"}`, c)
	if w.Code != http.StatusOK {
		t.Fatalf("profile status=%d body=%s", w.Code, w.Body.String())
	}
	w = e.do(e.h.Me, http.MethodGet, "", c)
	if !strings.Contains(w.Body.String(), `"email":"new@example.com"`) {
		t.Fatalf("session email not mirrored: %s", w.Body.String())
	}
	if e.users.users["alice"].Email != "new@example.com" {
		t.Fatalf("stored email not updated")
	}
}
