package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/smartcanteen/canteen-backend/pkg/errors"
)

type fakeLimiter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{counts: map[string]int64{}}
}

func (f *fakeLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func loginRequest(email, ip string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"`+email+`","password":"secret"}`))
	req.RemoteAddr = ip + ":5678"
	return req
}

func TestLoginRateLimitKeepsBodyReadable(t *testing.T) {
	policy := LoginRateLimitPolicy{Window: time.Minute, IPLimit: 2, EmailLimit: 2}
	handler := LoginRateLimit(policy, newFakeLimiter(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if !strings.Contains(string(body), `"email":"tester@example.com"`) {
			t.Fatalf("unexpected body: %s", string(body))
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("tester@example.com", "1.2.3.4"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestLoginRateLimitEmailLimitIgnoresCase(t *testing.T) {
	limiter := newFakeLimiter()
	policy := LoginRateLimitPolicy{Window: time.Minute, EmailLimit: 2}
	handler := LoginRateLimit(policy, limiter, nil)(okHandler())

	emails := []string{"blocked@example.com", "Blocked@Example.com", " BLOCKED@example.com "}
	for i, email := range emails {
		// distinct IPs so only the email counter applies
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest(email, fmt.Sprintf("10.0.0.%d", i+1)))

		if i < 2 {
			if rec.Code != http.StatusOK {
				t.Fatalf("attempt %d: expected success before limit, got %d", i, rec.Code)
			}
			continue
		}
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", rec.Code)
		}
		if rec.Header().Get("Retry-After") != "60" {
			t.Fatalf("expected Retry-After 60 got %q", rec.Header().Get("Retry-After"))
		}
		var payload struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode error: %v", err)
		}
		if payload.Error.Code != string(pkgerrors.CodeRateLimit) {
			t.Fatalf("unexpected code: %s", payload.Error.Code)
		}
	}
	for scope := range limiter.counts {
		if strings.Contains(scope, "example.com") {
			t.Fatalf("raw email leaked into limiter scope %q", scope)
		}
	}
}

func TestLoginRateLimitIPLimitTriggers(t *testing.T) {
	policy := LoginRateLimitPolicy{Window: time.Minute, IPLimit: 1}
	handler := LoginRateLimit(policy, newFakeLimiter(), nil)(okHandler())

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, loginRequest("a@example.com", "5.6.7.8"))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, loginRequest("b@example.com", "5.6.7.8"))

	if first.Code != http.StatusOK {
		t.Fatalf("expected success, got %d", first.Code)
	}
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}
}

func TestLoginRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	handler := LoginRateLimit(LoginRateLimitPolicy{}, newFakeLimiter(), nil)(okHandler())
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest("a@example.com", "5.6.7.8"))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d", rec.Code)
		}
	}
}

func TestLoginRateLimitUsesRemoteAddrOnly(t *testing.T) {
	limiter := newFakeLimiter()
	policy := LoginRateLimitPolicy{Window: time.Minute, IPLimit: 5}
	handler := LoginRateLimit(policy, limiter, nil)(okHandler())

	req := loginRequest("a@example.com", "9.9.9.9")
	req.Header.Set("X-Forwarded-For", "1.1.1.1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if _, ok := limiter.counts["login:ip:9.9.9.9"]; !ok {
		t.Fatalf("expected counter keyed by remote addr, got %v", limiter.counts)
	}
}
