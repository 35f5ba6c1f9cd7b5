package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"codeberg.org/snonux/toolbelt/internal/logger"
)

// MaxBodyBytes caps how much of an upstream response is buffered.
const MaxBodyBytes = 10 << 20

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("upstream temporarily unavailable (circuit open)")

// ResponseData captures the response details and duration.
type ResponseData struct {
	Status    int
	Headers   http.Header
	BodyBytes []byte
	Duration  time.Duration
}

// Observer is told about every completed call.
type Observer func(service string, status int, err error)

// maxHostBreakers bounds the per-host breaker table. When full it is
// reset, which closes every host breaker.
const maxHostBreakers = 1024

// Executor executes HTTP requests for one upstream service behind a
// circuit breaker. 5xx responses and transport errors count as failures;
// calls abandoned by the caller do not.
type Executor struct {
	name     string
	client   *http.Client
	timeout  time.Duration
	observer Observer
	failures uint32
	cooldown time.Duration
	perHost  bool

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// ExecutorOption allows configuring an Executor.
type ExecutorOption func(*Executor)

// WithTimeout sets the default timeout applied to requests.
func WithTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = timeout }
}

// WithClient sets a custom HTTP client.
func WithClient(client *http.Client) ExecutorOption {
	return func(e *Executor) { e.client = client }
}

// WithObserver registers a callback invoked after each call.
func WithObserver(o Observer) ExecutorOption {
	return func(e *Executor) { e.observer = o }
}

// WithBreaker sets the consecutive failures that open the breaker and
// how long it stays open.
func WithBreaker(failures uint32, cooldown time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.failures = failures
		e.cooldown = cooldown
	}
}

// WithBreakerPerHost keeps a separate breaker for every request host, so
// one unreachable site does not block calls to the others.
func WithBreakerPerHost() ExecutorOption {
	return func(e *Executor) { e.perHost = true }
}

// NewExecutor builds an Executor for the named service.
func NewExecutor(name string, opts ...ExecutorOption) *Executor {
	e := &Executor{
		name:     name,
		client:   newClient(),
		timeout:  DefaultTimeout,
		failures: DefaultBreakerFailures,
		cooldown: DefaultBreakerCooldown,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the upstream service name.
func (e *Executor) Name() string { return e.name }

// State returns the breaker state name (closed, half-open, open) for
// host ("name:port" when a port is given). host only matters when
// breakers are kept per host.
func (e *Executor) State(host string) string { return e.breaker(host).State().String() }

func (e *Executor) breaker(host string) *gobreaker.CircuitBreaker {
	key := e.name
	if e.perHost {
		key = e.name + "/" + strings.ToLower(host)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if cb, ok := e.breakers[key]; ok {
		return cb
	}
	if len(e.breakers) >= maxHostBreakers {
		e.breakers = make(map[string]*gobreaker.CircuitBreaker)
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        key,
		MaxRequests: 1,
		Timeout:     e.cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= e.failures
		},
		IsSuccessful: func(err error) bool {
			var gone *callerGoneError
			return err == nil || errors.As(err, &gone)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.L().Warn("circuit.state_changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	e.breakers[key] = cb
	return cb
}

type serverStatusError struct{ status int }

func (s *serverStatusError) Error() string { return fmt.Sprintf("upstream status %d", s.status) }

// callerGoneError marks a call the caller cancelled or let expire; it
// says nothing about the upstream.
type callerGoneError struct{ err error }

func (c *callerGoneError) Error() string { return c.err.Error() }
func (c *callerGoneError) Unwrap() error { return c.err }

// Do executes the request and returns response data plus duration.
// Non-2xx statuses are returned as data, not as errors.
func (e *Executor) Do(ctx context.Context, req *http.Request) (ResponseData, error) {
	start := time.Now()
	ctxWithTimeout := ctx
	cancel := func() {}
	if e.timeout > 0 {
		ctxWithTimeout, cancel = context.WithTimeout(ctx, e.timeout)
	}
	defer cancel()

	req = req.WithContext(ctxWithTimeout)

	out, err := e.breaker(req.URL.Host).Execute(func() (interface{}, error) {
		resp, err := e.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &callerGoneError{err: err}
			}
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
		if err != nil {
			if ctx.Err() != nil {
				return nil, &callerGoneError{err: err}
			}
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}

		data := ResponseData{
			Status:    resp.StatusCode,
			Headers:   resp.Header.Clone(),
			BodyBytes: body,
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return data, &serverStatusError{status: resp.StatusCode}
		}
		return data, nil
	})

	var data ResponseData
	if d, ok := out.(ResponseData); ok {
		data = d
	}
	data.Duration = time.Since(start)

	var sse *serverStatusError
	switch {
	case errors.As(err, &sse):
		err = nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		err = ErrCircuitOpen
	}

	if e.observer != nil {
		e.observer(e.name, data.Status, err)
	}

	if err != nil {
		return data, fmt.Errorf("%s request failed: %w", e.name, err)
	}
	return data, nil
}

// Get is a convenience wrapper for a GET with optional headers.
func (e *Executor) Get(ctx context.Context, url string, headers map[string]string) (ResponseData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ResponseData{}, fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return e.Do(ctx, req)
}
