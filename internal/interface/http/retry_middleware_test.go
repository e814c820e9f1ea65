package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tejasgodse/chatpdf/internal/infra/config"
)

func TestWithRetryDisabledPassesThrough(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	wrapped := withRetry(handler, config.RetryConfig{Enabled: false}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("body"))
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected exactly one call when retry disabled, got %d", calls)
	}
}

func TestWithRetryRetriesOn5xxThenSucceeds(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	wrapped := withRetry(handler, config.RetryConfig{Enabled: true, MaxAttempts: 3, BaseBackoff: time.Millisecond}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("body"))
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if calls != 2 {
		t.Fatalf("expected handler invoked twice before success, got %d", calls)
	}
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("expected committed success response, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestWithRetrySkipsNonPostMethods(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	wrapped := withRetry(handler, config.RetryConfig{Enabled: true, MaxAttempts: 3, BaseBackoff: time.Millisecond}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if calls != 1 {
		t.Fatalf("expected GET requests to bypass retry logic, got %d calls", calls)
	}
}

func TestWithRetryExcludesConfiguredPaths(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	wrapped := withRetry(handler, config.RetryConfig{Enabled: true, MaxAttempts: 3, BaseBackoff: time.Millisecond, Exclude: []string{"/skip"}}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/skip", strings.NewReader("body"))
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if calls != 1 {
		t.Fatalf("expected excluded path to bypass retries, got %d calls", calls)
	}
}
