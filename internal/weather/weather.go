// Package weather reads current conditions from OpenWeatherMap.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"codeberg.org/snonux/toolbelt/internal/apperr"
	"codeberg.org/snonux/toolbelt/internal/cache"
	"codeberg.org/snonux/toolbelt/internal/httpclient"
	"codeberg.org/snonux/toolbelt/internal/logger"
)

const (
	// DefaultBaseURL is the OpenWeatherMap API root
	DefaultBaseURL = "https://api.openweathermap.org"
	// CacheTTL is how long a report is reused for the same coordinates
	CacheTTL = 10 * time.Minute

	// DefaultLat and DefaultLon point at Gumi
	DefaultLat  = 36.2101
	DefaultLon  = 128.3544
	DefaultName = "구미"
)

// Report is the reduced current weather
type Report struct {
	Location    string  `json:"location"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	Temp        float64 `json:"temp"`
	FeelsLike   float64 `json:"feels_like"`
	Humidity    int     `json:"humidity"`
	Pressure    int     `json:"pressure"`
	WindSpeed   float64 `json:"wind_speed"`
	Clouds      int     `json:"clouds"`
	TempMin     float64 `json:"temp_min"`
	TempMax     float64 `json:"temp_max"`
	Visibility  float64 `json:"visibility"`
	Rain        float64 `json:"rain"`
	Snow        float64 `json:"snow"`
}

// StatusError carries the status of a failed upstream call
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("could not fetch weather data (status %d)", e.Status)
}

// StatusOf returns the upstream status carried by err, or 0
func StatusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

type apiResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Humidity  int     `json:"humidity"`
		Pressure  int     `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Clouds struct {
		All int `json:"all"`
	} `json:"clouds"`
	Visibility *float64           `json:"visibility"`
	Rain       map[string]float64 `json:"rain"`
	Snow       map[string]float64 `json:"snow"`
}

// Client fetches and caches reports
type Client struct {
	apiKey  string
	baseURL string
	exec    *httpclient.Executor
	cache   cache.Cache
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another API root
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithExecutor sets the outbound executor
func WithExecutor(e *httpclient.Executor) Option {
	return func(c *Client) { c.exec = e }
}

// WithCache sets the report cache; nil disables caching
func WithCache(cc cache.Cache) Option {
	return func(c *Client) { c.cache = cc }
}

// NewClient creates a weather client
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{apiKey: apiKey, baseURL: DefaultBaseURL}
	for _, opt := range opts {
		opt(c)
	}
	if c.exec == nil {
		c.exec = httpclient.NewExecutor("openweathermap", httpclient.WithTimeout(10*time.Second))
	}
	return c
}

// ParseCoordinates parses lat and lon query values. Either missing or
// not a number is a validation error.
func ParseCoordinates(lat, lon string) (float64, float64, error) {
	const op = "weather.coordinates"
	la, err1 := strconv.ParseFloat(lat, 64)
	lo, err2 := strconv.ParseFloat(lon, 64)
	if lat == "" || lon == "" || err1 != nil || err2 != nil {
		return 0, 0, apperr.Invalid(op, "latitude and longitude are required")
	}
	return la, lo, nil
}

func cacheKey(lat, lon float64) string {
	return fmt.Sprintf("weather:%.4f,%.4f", lat, lon)
}

// Current returns the current weather at lat, lon
func (c *Client) Current(ctx context.Context, lat, lon float64) (Report, error) {
	const op = "weather.current"
	if c.apiKey == "" {
		return Report{}, apperr.E(op, apperr.KindInternal, fmt.Errorf("OpenWeatherMap API key not found"))
	}

	key := cacheKey(lat, lon)
	if c.cache != nil {
		if data, err := c.cache.Get(ctx, key); err == nil {
			var r Report
			if json.Unmarshal(data, &r) == nil {
				return r, nil
			}
		}
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")
	q.Set("lang", "kr")

	resp, err := c.exec.Get(ctx, c.baseURL+"/data/2.5/weather?"+q.Encode(), nil)
	if err != nil {
		return Report{}, apperr.Upstream(op, err)
	}
	if resp.Status != 200 {
		return Report{}, apperr.Upstream(op, &StatusError{Status: resp.Status})
	}

	var raw apiResponse
	if err := json.Unmarshal(resp.BodyBytes, &raw); err != nil {
		return Report{}, apperr.Upstream(op, fmt.Errorf("invalid weather response: %w", err))
	}
	report, err := newReport(raw)
	if err != nil {
		return Report{}, apperr.Upstream(op, err)
	}

	if c.cache != nil {
		if data, err := json.Marshal(report); err == nil {
			if err := c.cache.Set(ctx, key, data, CacheTTL); err != nil {
				logger.L().Warn("weather.cache_failed", "error", err)
			}
		}
	}
	return report, nil
}

// newReport derives a Report from an API response
func newReport(raw apiResponse) (Report, error) {
	if len(raw.Weather) == 0 {
		return Report{}, fmt.Errorf("weather response has no conditions")
	}

	r := Report{
		Location:    raw.Name,
		Description: raw.Weather[0].Description,
		Icon:        raw.Weather[0].Icon,
		Temp:        round1(raw.Main.Temp),
		FeelsLike:   round1(raw.Main.FeelsLike),
		Humidity:    raw.Main.Humidity,
		Pressure:    raw.Main.Pressure,
		WindSpeed:   round1(raw.Wind.Speed),
		Clouds:      raw.Clouds.All,
		TempMin:     round1(raw.Main.TempMin),
		TempMax:     round1(raw.Main.TempMax),
		Rain:        raw.Rain["1h"],
		Snow:        raw.Snow["1h"],
	}
	if r.Location == "" {
		r.Location = "unknown"
	}
	if raw.Visibility != nil {
		r.Visibility = *raw.Visibility / 1000
	}
	return r, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
