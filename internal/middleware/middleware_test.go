package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiterPerClient(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := &limiter{rate: 2, buckets: map[string]*tokenBucket{}, nowFn: func() time.Time { return now }}

	if !l.allow("a") || !l.allow("a") {
		t.Fatal("burst should allow two requests")
	}
	if l.allow("a") {
		t.Fatal("third request in the same instant should be limited")
	}
	if !l.allow("b") {
		t.Fatal("other clients have their own bucket")
	}
	now = now.Add(500 * time.Millisecond)
	if !l.allow("a") {
		t.Fatal("bucket should refill over time")
	}
}

func TestLimiterEvictsIdleClients(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := &limiter{rate: 1, buckets: map[string]*tokenBucket{}, nowFn: func() time.Time { return now }}

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		l.allow(ip)
	}
	now = now.Add(30 * time.Second)
	l.allow("10.0.0.1")

	now = now.Add(bucketIdleTTL)
	l.allow("10.0.0.4")
	if len(l.buckets) != 1 {
		t.Fatalf("expected only the fresh client to remain, got %d buckets", len(l.buckets))
	}
	if _, ok := l.buckets["10.0.0.4"]; !ok {
		t.Fatal("fresh client bucket missing")
	}
}

func TestUserMiddleware(t *testing.T) {
	var got int64
	h := User(7)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = UserID(r.Context())
	}))

	cases := []struct {
		url    string
		header string
		status int
		want   int64
	}{
		{"/", "", http.StatusOK, 7},
		{"/?userId=3", "", http.StatusOK, 3},
		{"/", "5", http.StatusOK, 5},
		{"/?userId=abc", "", http.StatusBadRequest, 0},
		{"/?userId=0", "", http.StatusBadRequest, 0},
	}
	for _, tc := range cases {
		got = 0
		req := httptest.NewRequest(http.MethodGet, tc.url, nil)
		if tc.header != "" {
			req.Header.Set("X-User-Id", tc.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.status || got != tc.want {
			t.Fatalf("%s: status %d user %d", tc.url, rec.Code, got)
		}
	}
}

func TestRequestIDPropagates(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "abc" || rec.Header().Get("X-Request-Id") != "abc" {
		t.Fatalf("expected propagated id, got %q", seen)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || seen == "abc" {
		t.Fatalf("expected a fresh id, got %q", seen)
	}
}

func TestRecoverWritesEnvelope(t *testing.T) {
	h := Recover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
