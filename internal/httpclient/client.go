package httpclient

import (
	"net"
	"net/http"
	"time"
)

// BrowserUserAgent is sent by scrapers that need to look like a desktop browser.
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Defaults for an upstream without its own tuning.
const (
	DefaultTimeout         = 10 * time.Second
	DefaultBreakerFailures = 5
	DefaultBreakerCooldown = 30 * time.Second
)

// Upstream tunes the executor of one outbound service. Zero fields take
// the defaults.
type Upstream struct {
	// Timeout bounds one call including reading the body
	Timeout time.Duration
	// BreakerFailures consecutive failures open the breaker
	BreakerFailures uint32
	// BreakerCooldown is how long an open breaker rejects calls
	BreakerCooldown time.Duration
	// PerHost keeps one breaker per target host, for services whose
	// URLs come from users
	PerHost bool
}

// Options turns u into executor options
func (u Upstream) Options() []ExecutorOption {
	timeout := u.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	failures := u.BreakerFailures
	if failures == 0 {
		failures = DefaultBreakerFailures
	}
	cooldown := u.BreakerCooldown
	if cooldown <= 0 {
		cooldown = DefaultBreakerCooldown
	}

	opts := []ExecutorOption{WithTimeout(timeout), WithBreaker(failures, cooldown)}
	if u.PerHost {
		opts = append(opts, WithBreakerPerHost())
	}
	return opts
}

// transport is shared by every executor so idle connections to the same
// upstream are pooled process-wide. Call deadlines come from the executor
// context, not from the client.
var transport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ForceAttemptHTTP2:   true,
	MaxIdleConns:        50,
	MaxIdleConnsPerHost: 4,
	IdleConnTimeout:     90 * time.Second,
	TLSHandshakeTimeout: 5 * time.Second,
}

func newClient() *http.Client {
	return &http.Client{Transport: transport}
}
