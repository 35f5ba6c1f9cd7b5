// Package jobs scrapes job postings from the Incruit search page.
package jobs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"codeberg.org/snonux/toolbelt/internal/apperr"
	"codeberg.org/snonux/toolbelt/internal/dom"
	"codeberg.org/snonux/toolbelt/internal/httpclient"
	"codeberg.org/snonux/toolbelt/internal/logger"
)

const (
	// DefaultBaseURL is the Incruit search endpoint
	DefaultBaseURL = "https://search.incruit.com/list/search.asp"
	// PageSize is the number of postings per result page
	PageSize = 30
	// DefaultPages is how many result pages a search fetches
	DefaultPages = 2
)

// Job is one posting
type Job struct {
	Company  string `json:"company"`
	Title    string `json:"title"`
	Location string `json:"location"`
	Link     string `json:"link"`
}

// Client searches Incruit
type Client struct {
	baseURL string
	exec    *httpclient.Executor
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another search endpoint
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithExecutor sets the outbound executor
func WithExecutor(e *httpclient.Executor) Option {
	return func(c *Client) { c.exec = e }
}

// NewClient creates a search client
func NewClient(opts ...Option) *Client {
	c := &Client{baseURL: DefaultBaseURL}
	for _, opt := range opts {
		opt(c)
	}
	if c.exec == nil {
		c.exec = httpclient.NewExecutor("incruit")
	}
	return c
}

// SearchURL returns the URL of result page (0-based) for keyword
func (c *Client) SearchURL(keyword string, page int) string {
	q := url.Values{}
	q.Set("col", "job")
	q.Set("kw", keyword)
	q.Set("startno", fmt.Sprint(page*PageSize))
	return c.baseURL + "?" + q.Encode()
}

// Search fetches pages result pages for keyword and returns all postings
func (c *Client) Search(ctx context.Context, keyword string, pages int) ([]Job, error) {
	const op = "jobs.search"
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, apperr.E(op, apperr.KindInvalid, fmt.Errorf("keyword is required"))
	}
	if pages <= 0 {
		pages = DefaultPages
	}

	var all []Job
	for page := 0; page < pages; page++ {
		pageURL := c.SearchURL(keyword, page)
		resp, err := c.exec.Get(ctx, pageURL, map[string]string{"User-Agent": httpclient.BrowserUserAgent})
		if err != nil {
			return nil, apperr.Upstream(op, err)
		}
		if !StatusOK(resp.Status) {
			return nil, apperr.Upstream(op, fmt.Errorf("search page %d returned status %d", page+1, resp.Status))
		}

		body, err := charset.NewReader(bytes.NewReader(resp.BodyBytes), resp.Headers.Get("Content-Type"))
		if err != nil {
			return nil, apperr.Upstream(op, fmt.Errorf("failed to decode search page: %w", err))
		}
		jobs, err := ParseJobs(body, pageURL)
		if err != nil {
			return nil, apperr.Upstream(op, err)
		}
		logger.L().Debug("jobs.page", "keyword", keyword, "page", page+1, "count", len(jobs))
		all = append(all, jobs...)
	}
	return all, nil
}

// ParseJobs extracts postings from a search result page. Relative links
// are resolved against pageURL. Items without a title are skipped.
func ParseJobs(r io.Reader, pageURL string) ([]Job, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search page: %w", err)
	}
	base, _ := url.Parse(pageURL)

	var jobs []Job
	for _, li := range dom.FindAll(doc, dom.Element("li", "c_col")) {
		mid := dom.Find(li, dom.Element("div", "cell_mid"))
		title := dom.FindPath(mid, dom.Element("div", "cl_top"), dom.Element("a", ""))
		if title == nil {
			continue
		}

		job := Job{
			Company: dom.Text(dom.Find(li, dom.Element("a", "cpname"))),
			Title:   dom.Text(title),
			Link:    resolve(base, dom.Attr(title, "href")),
		}
		if loc := dom.FindPath(mid, dom.Element("div", "cl_md"), dom.Element("span", "")); loc != nil {
			job.Location = dom.Text(loc)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func resolve(base *url.URL, href string) string {
	if href == "" || base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// StatusOK reports whether status is a 2xx code
func StatusOK(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}
