// Package crawl fetches a web page and reduces it to its visible text.
package crawl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"codeberg.org/snonux/toolbelt/internal/apperr"
	"codeberg.org/snonux/toolbelt/internal/dom"
	"codeberg.org/snonux/toolbelt/internal/httpclient"
)

// Timeout bounds one page fetch
const Timeout = 10 * time.Second

// stripped are the elements whose content is never visible text
var stripped = []string{"script", "style", "meta", "link", "noscript", "iframe", "svg"}

// Crawler fetches pages through a breaker-guarded executor
type Crawler struct {
	exec *httpclient.Executor
}

// New creates a crawler. A nil executor gets a default one.
func New(exec *httpclient.Executor) *Crawler {
	if exec == nil {
		exec = httpclient.NewExecutor("crawl", httpclient.WithTimeout(Timeout), httpclient.WithBreakerPerHost())
	}
	return &Crawler{exec: exec}
}

// NormalizeURL trims rawURL and prefixes https:// unless it already
// starts with http:// or https://
func NormalizeURL(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", apperr.Invalid("crawl.url", "please enter a URL")
	}
	lower := strings.ToLower(rawURL)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", apperr.Invalid("crawl.url", "invalid URL: %s", rawURL)
	}
	return u.String(), nil
}

// Fetch downloads rawURL and returns its visible text
func (c *Crawler) Fetch(ctx context.Context, rawURL string) (string, error) {
	const op = "crawl.fetch"
	target, err := NormalizeURL(rawURL)
	if err != nil {
		return "", err
	}

	resp, err := c.exec.Get(ctx, target, map[string]string{"User-Agent": httpclient.BrowserUserAgent})
	if err != nil {
		return "", apperr.Upstream(op, describe(err))
	}
	if resp.Status < 200 || resp.Status >= 300 {
		return "", apperr.Upstream(op, fmt.Errorf("HTTP error: %d", resp.Status))
	}

	text, err := ExtractText(resp.BodyBytes, resp.Headers.Get("Content-Type"))
	if err != nil {
		return "", apperr.E(op, apperr.KindInvalid, err)
	}
	return text, nil
}

// ExtractText decodes body using the content type or the page's meta
// charset, drops non-visible elements and collapses whitespace.
func ExtractText(body []byte, contentType string) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return "", fmt.Errorf("failed to decode page: %w", err)
	}
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}

	dom.Remove(doc, stripped...)
	text := dom.Text(doc)
	if text == "" {
		return "", fmt.Errorf("no text could be extracted from the web page")
	}
	return text, nil
}

func describe(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("web page request timed out: %w", err)
	case errors.Is(err, httpclient.ErrCircuitOpen):
		return err
	default:
		return fmt.Errorf("could not connect to the web page, please check the URL: %w", err)
	}
}
