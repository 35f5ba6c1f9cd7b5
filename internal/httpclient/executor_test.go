package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

func TestExecutorGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != BrowserUserAgent {
			t.Errorf("expected browser user agent, got %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("X-Test", "yes")
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	var observed atomic.Int32
	e := NewExecutor("test", WithTimeout(2*time.Second), WithObserver(func(service string, status int, err error) {
		if service != "test" || status != http.StatusOK || err != nil {
			t.Errorf("unexpected observation %s %d %v", service, status, err)
		}
		observed.Add(1)
	}))

	data, err := e.Get(context.Background(), srv.URL, map[string]string{"User-Agent": BrowserUserAgent})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if data.Status != http.StatusOK {
		t.Errorf("expected 200, got %d", data.Status)
	}
	if string(data.BodyBytes) != "hello" {
		t.Errorf("unexpected body %q", data.BodyBytes)
	}
	if data.Headers.Get("X-Test") != "yes" {
		t.Error("expected response headers to be captured")
	}
	if observed.Load() != 1 {
		t.Errorf("expected observer to be called once, got %d", observed.Load())
	}
}

func TestExecutorClientErrorIsData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	e := NewExecutor("test")
	data, err := e.Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("4xx should not be an error: %v", err)
	}
	if data.Status != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", data.Status)
	}
}

func TestExecutorBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := NewExecutor("flaky", WithBreaker(2, time.Minute))

	for i := 0; i < 2; i++ {
		data, err := e.Get(context.Background(), srv.URL, nil)
		if err != nil {
			t.Fatalf("call %d: 5xx should be returned as data: %v", i, err)
		}
		if data.Status != http.StatusInternalServerError {
			t.Fatalf("call %d: expected 500, got %d", i, data.Status)
		}
	}

	_, err := e.Get(context.Background(), srv.URL, nil)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("open breaker should not reach the server, got %d calls", calls.Load())
	}
	if e.State("") != "open" {
		t.Errorf("expected open state, got %s", e.State(""))
	}
}

func TestExecutorCancelledCallsKeepBreakerClosed(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	e := NewExecutor("crawl", WithBreaker(1, time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 3; i++ {
		_, err := e.Get(ctx, srv.URL, nil)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("call %d: expected context.Canceled, got %v", i, err)
		}
	}
	if e.State("") != "closed" {
		t.Fatalf("cancelled calls should not open the breaker, got %s", e.State(""))
	}

	data, err := e.Get(context.Background(), srv.URL, nil)
	if err != nil || data.Status != http.StatusOK {
		t.Fatalf("expected the call to go through, got %d %v", data.Status, err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call to reach the server, got %d", calls.Load())
	}
}

func TestExecutorBreakerPerHost(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer good.Close()

	e := NewExecutor("crawl", WithBreaker(1, time.Minute), WithBreakerPerHost())

	if _, err := e.Get(context.Background(), bad.URL, nil); err != nil {
		t.Fatalf("5xx should be returned as data: %v", err)
	}
	if _, err := e.Get(context.Background(), bad.URL, nil); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen for the failing host, got %v", err)
	}

	data, err := e.Get(context.Background(), good.URL, nil)
	if err != nil {
		t.Fatalf("other hosts should not be blocked: %v", err)
	}
	if string(data.BodyBytes) != "ok" {
		t.Errorf("unexpected body %q", data.BodyBytes)
	}

	badURL, _ := url.Parse(bad.URL)
	goodURL, _ := url.Parse(good.URL)
	if got := e.State(badURL.Host); got != "open" {
		t.Errorf("failing host state = %s, want open", got)
	}
	if got := e.State(goodURL.Host); got != "closed" {
		t.Errorf("healthy host state = %s, want closed", got)
	}
}

func TestUpstreamOptions(t *testing.T) {
	e := NewExecutor("x", Upstream{}.Options()...)
	if e.timeout != DefaultTimeout || e.failures != DefaultBreakerFailures || e.cooldown != DefaultBreakerCooldown {
		t.Errorf("zero upstream should use defaults, got %v %d %v", e.timeout, e.failures, e.cooldown)
	}
	if e.perHost {
		t.Error("per host breakers should be off by default")
	}

	e = NewExecutor("x", Upstream{Timeout: time.Second, BreakerFailures: 2, BreakerCooldown: time.Minute, PerHost: true}.Options()...)
	if e.timeout != time.Second || e.failures != 2 || e.cooldown != time.Minute || !e.perHost {
		t.Errorf("unexpected executor %v %d %v %v", e.timeout, e.failures, e.cooldown, e.perHost)
	}
}
