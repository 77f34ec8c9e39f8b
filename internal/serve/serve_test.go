package serve

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(Config{
		Secret:  "portal-secret",
		Origins: []string{"http://localhost:5173"},
		Runner:  &Runner{Binary: "/bin/true", DBPath: "/tmp/test.db"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNewServerRequiresSecret(t *testing.T) {
	if _, err := NewServer(Config{}); err == nil {
		t.Error("server without a secret should refuse to start")
	}
}

func TestTokenLifecycle(t *testing.T) {
	secret := []byte("k")
	issued := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

	token, err := mintToken(secret, issued)
	if err != nil {
		t.Fatal(err)
	}

	if err := verifyToken(secret, token, issued.Add(time.Hour)); err != nil {
		t.Errorf("token rejected one hour after issue: %v", err)
	}
	if err := verifyToken(secret, token, issued.Add(sessionTTL+time.Second)); err == nil {
		t.Error("token accepted past its expiry")
	}
	if err := verifyToken([]byte("other"), token, issued.Add(time.Hour)); err == nil {
		t.Error("token accepted under the wrong key")
	}
}

func TestTokenTampering(t *testing.T) {
	secret := []byte("k")
	now := time.Now()
	token, err := mintToken(secret, now)
	if err != nil {
		t.Fatal(err)
	}

	dot := strings.LastIndex(token, ".")
	forged := token[:dot] + ".AAAA"
	if err := verifyToken(secret, forged, now); err == nil {
		t.Error("token with replaced signature accepted")
	}

	for _, bad := range []string{"", ".", "x", token[:dot], "." + token[dot+1:]} {
		if err := verifyToken(secret, bad, now); err == nil {
			t.Errorf("malformed token %q accepted", bad)
		}
	}
}

func TestLoginSetsSessionCookie(t *testing.T) {
	s := testServer(t)
	handler := s.Handler()

	req := httptest.NewRequest("POST", "/auth/login", strings.NewReader(`{"secret":"portal-secret"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("no session cookie set")
	}
	if !cookie.HttpOnly || cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie flags: httpOnly=%v sameSite=%v", cookie.HttpOnly, cookie.SameSite)
	}
	if err := verifyToken(s.secret, cookie.Value, time.Now()); err != nil {
		t.Errorf("issued cookie does not verify: %v", err)
	}
}

func TestLoginWrongSecret(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest("POST", "/auth/login", strings.NewReader(`{"secret":"guess"}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("failed login set a cookie")
	}
}

func TestAPIRequiresSession(t *testing.T) {
	s := testServer(t)
	handler := s.Handler()

	cases := []struct {
		name   string
		cookie string
	}{
		{"no cookie", ""},
		{"garbage cookie", "not-a-token"},
		{"expired cookie", expiredToken(t, s.secret)},
	}
	var bodies []string
	for _, tc := range cases {
		req := httptest.NewRequest("GET", "/api/projects", nil)
		if tc.cookie != "" {
			req.AddCookie(&http.Cookie{Name: sessionCookie, Value: tc.cookie})
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", tc.name, rec.Code)
		}
		bodies = append(bodies, rec.Body.String())
	}

	// The response must not reveal why the session was rejected.
	for i := 1; i < len(bodies); i++ {
		if bodies[i] != bodies[0] {
			t.Errorf("auth failure bodies differ: %q vs %q", bodies[0], bodies[i])
		}
	}
}

func expiredToken(t *testing.T, secret []byte) string {
	t.Helper()
	token, err := mintToken(secret, time.Now().Add(-sessionTTL-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func TestHealthOpen(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200 without auth", rec.Code)
	}
}

func TestAuthStatus(t *testing.T) {
	s := testServer(t)
	handler := s.Handler()

	req := httptest.NewRequest("GET", "/auth/status", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	data := env.Data.(map[string]any)
	if data["authenticated"] != false {
		t.Error("anonymous status reports authenticated")
	}

	token, _ := mintToken(s.secret, time.Now())
	req = httptest.NewRequest("GET", "/auth/status", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	data = env.Data.(map[string]any)
	if data["authenticated"] != true {
		t.Error("valid session reports unauthenticated")
	}
}

func TestCORSAllowlist(t *testing.T) {
	s := testServer(t)
	handler := s.Handler()

	req := httptest.NewRequest("OPTIONS", "/api/projects", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("allowed origin header = %q", got)
	}

	req = httptest.NewRequest("OPTIONS", "/api/projects", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("disallowed origin got CORS header %q", got)
	}
}

func TestLimitedWriterCapsOutput(t *testing.T) {
	var buf bytes.Buffer
	lw := &limitedWriter{w: &buf, remaining: 5}

	n, err := lw.Write([]byte("hello world"))
	if err != nil || n != 11 {
		t.Fatalf("Write() = %d, %v; caller must see full length", n, err)
	}
	if buf.String() != "hello" {
		t.Errorf("buffered %q, want capped to %q", buf.String(), "hello")
	}

	if _, err := lw.Write([]byte("more")); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 5 {
		t.Errorf("writes past the cap grew the buffer to %d bytes", buf.Len())
	}
}
