// Package services turns the viper configuration into the app services
// used by the HTTP servers, the console commands and the MCP server.
package services

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"codeberg.org/snonux/toolbelt/internal/httpclient"
)

// Settings is the effective configuration. API keys are resolved by the
// caller and never printed.
type Settings struct {
	Server      ServerSettings      `mapstructure:"server" yaml:"server"`
	Output      OutputSettings      `mapstructure:"output" yaml:"output"`
	Log         LogSettings         `mapstructure:"log" yaml:"log"`
	Audio       AudioSettings       `mapstructure:"audio" yaml:"audio"`
	Translation TranslationSettings `mapstructure:"translation" yaml:"translation"`
	Sentiment   SentimentSettings   `mapstructure:"sentiment" yaml:"sentiment"`
	OCR         OCRSettings         `mapstructure:"ocr" yaml:"ocr"`
	WordCloud   WordCloudSettings   `mapstructure:"wordcloud" yaml:"wordcloud"`
	Weather     WeatherSettings     `mapstructure:"weather" yaml:"weather"`
	Jobs        JobsSettings        `mapstructure:"jobs" yaml:"jobs"`
	Cache       CacheSettings       `mapstructure:"cache" yaml:"cache"`
	Artifacts   ArtifactSettings    `mapstructure:"artifacts" yaml:"artifacts"`

	Upstream map[string]UpstreamSettings `mapstructure:"upstream" yaml:"upstream"`

	Keys Keys `mapstructure:"-" yaml:"-"`
}

type ServerSettings struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

type OutputSettings struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
}

type LogSettings struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file,omitempty"`
}

type AudioSettings struct {
	Provider          string  `mapstructure:"provider" yaml:"provider"`
	Fallback          string  `mapstructure:"fallback" yaml:"fallback"`
	OpenAIModel       string  `mapstructure:"openai_model" yaml:"openai_model"`
	OpenAIVoice       string  `mapstructure:"openai_voice" yaml:"openai_voice"`
	OpenAISpeed       float64 `mapstructure:"openai_speed" yaml:"openai_speed"`
	OpenAIInstruction string  `mapstructure:"openai_instruction" yaml:"openai_instruction,omitempty"`
	EnableCache       bool    `mapstructure:"enable_cache" yaml:"enable_cache"`
	CacheDir          string  `mapstructure:"cache_dir" yaml:"cache_dir,omitempty"`
	ESpeakVoice       string  `mapstructure:"espeak_voice" yaml:"espeak_voice"`
}

type TranslationSettings struct {
	Provider string `mapstructure:"provider" yaml:"provider"`
	Model    string `mapstructure:"model" yaml:"model,omitempty"`
}

type SentimentSettings struct {
	Provider string `mapstructure:"provider" yaml:"provider"`
	Model    string `mapstructure:"model" yaml:"model,omitempty"`
}

type OCRSettings struct {
	Languages   string `mapstructure:"languages" yaml:"languages"`
	PSM         int    `mapstructure:"psm" yaml:"psm"`
	DPI         int    `mapstructure:"dpi" yaml:"dpi"`
	PopplerPath string `mapstructure:"poppler_path" yaml:"poppler_path,omitempty"`
}

type WordCloudSettings struct {
	FontPath string `mapstructure:"font_path" yaml:"font_path,omitempty"`
	Width    int    `mapstructure:"width" yaml:"width"`
	Height   int    `mapstructure:"height" yaml:"height"`
	MaxWords int    `mapstructure:"max_words" yaml:"max_words"`
}

type WeatherSettings struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

type JobsSettings struct {
	Pages    int    `mapstructure:"pages" yaml:"pages"`
	Encoding string `mapstructure:"encoding" yaml:"encoding"`
}

type CacheSettings struct {
	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr,omitempty"`
	RedisPassword string `mapstructure:"redis_password" yaml:"-"`
	RedisDB       int    `mapstructure:"redis_db" yaml:"redis_db"`
	TTL           string `mapstructure:"ttl" yaml:"ttl"`
}

type ArtifactSettings struct {
	DB string `mapstructure:"db" yaml:"db,omitempty"`
}

// UpstreamSettings tune the outbound calls of one service (openweathermap,
// incruit, crawl). Durations use time.ParseDuration syntax.
type UpstreamSettings struct {
	Timeout         string `mapstructure:"timeout" yaml:"timeout"`
	BreakerFailures int    `mapstructure:"breaker_failures" yaml:"breaker_failures"`
	BreakerCooldown string `mapstructure:"breaker_cooldown" yaml:"breaker_cooldown"`
	PerHost         bool   `mapstructure:"per_host" yaml:"per_host,omitempty"`
}

// Keys are the upstream API keys
type Keys struct {
	OpenAI  string
	Gemini  string
	Weather string
}

// DefaultOutputDir is where artifacts go unless output.directory is set
func DefaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "toolbelt")
	}
	return filepath.Join(home, ".local", "state", "toolbelt")
}

// SetDefaults registers the default of every setting on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":5000")
	v.SetDefault("output.directory", DefaultOutputDir())
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("audio.provider", "openai")
	v.SetDefault("audio.fallback", "espeak")
	v.SetDefault("audio.openai_model", "gpt-4o-mini-tts")
	v.SetDefault("audio.openai_voice", "alloy")
	v.SetDefault("audio.openai_speed", 1.0)
	v.SetDefault("audio.espeak_voice", "ko")

	v.SetDefault("translation.provider", "openai")
	v.SetDefault("sentiment.provider", "lexicon")

	v.SetDefault("ocr.languages", "kor+eng")
	v.SetDefault("ocr.psm", 6)
	v.SetDefault("ocr.dpi", 300)

	v.SetDefault("wordcloud.width", 800)
	v.SetDefault("wordcloud.height", 400)
	v.SetDefault("wordcloud.max_words", 100)

	v.SetDefault("weather.base_url", "https://api.openweathermap.org")
	v.SetDefault("jobs.pages", 2)
	v.SetDefault("jobs.encoding", "cp949")
	v.SetDefault("cache.ttl", "24h")

	v.SetDefault("upstream.openweathermap.timeout", "10s")
	v.SetDefault("upstream.openweathermap.breaker_failures", 5)
	v.SetDefault("upstream.openweathermap.breaker_cooldown", "30s")
	v.SetDefault("upstream.incruit.timeout", "15s")
	v.SetDefault("upstream.incruit.breaker_failures", 5)
	v.SetDefault("upstream.incruit.breaker_cooldown", "30s")
	v.SetDefault("upstream.crawl.timeout", "10s")
	v.SetDefault("upstream.crawl.breaker_failures", 3)
	v.SetDefault("upstream.crawl.breaker_cooldown", "30s")
	v.SetDefault("upstream.crawl.per_host", true)
}

// Load reads the settings from v after applying defaults
func Load(v *viper.Viper) (*Settings, error) {
	SetDefaults(v)

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	if _, err := s.CacheTTL(); err != nil {
		return nil, err
	}
	for name := range s.Upstream {
		if _, err := s.UpstreamConfig(name); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

// CacheTTL parses cache.ttl
func (s *Settings) CacheTTL() (time.Duration, error) {
	if s.Cache.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.Cache.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid cache.ttl %q: %w", s.Cache.TTL, err)
	}
	return d, nil
}

// UpstreamConfig returns the executor tuning for service. A service
// without settings gets the httpclient defaults.
func (s *Settings) UpstreamConfig(service string) (httpclient.Upstream, error) {
	u, ok := s.Upstream[service]
	if !ok {
		return httpclient.Upstream{}, nil
	}
	if u.BreakerFailures < 0 {
		return httpclient.Upstream{}, fmt.Errorf("invalid upstream.%s.breaker_failures %d", service, u.BreakerFailures)
	}

	out := httpclient.Upstream{BreakerFailures: uint32(u.BreakerFailures), PerHost: u.PerHost}
	var err error
	if out.Timeout, err = parseDuration(u.Timeout); err != nil {
		return httpclient.Upstream{}, fmt.Errorf("invalid upstream.%s.timeout %q: %w", service, u.Timeout, err)
	}
	if out.BreakerCooldown, err = parseDuration(u.BreakerCooldown); err != nil {
		return httpclient.Upstream{}, fmt.Errorf("invalid upstream.%s.breaker_cooldown %q: %w", service, u.BreakerCooldown, err)
	}
	return out, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// YAML renders the settings as a config file
func (s *Settings) YAML() ([]byte, error) {
	return yaml.Marshal(s)
}
