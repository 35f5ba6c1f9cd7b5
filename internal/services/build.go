package services

import (
	"context"
	"errors"

	"codeberg.org/snonux/toolbelt/internal/artifact"
	"codeberg.org/snonux/toolbelt/internal/audio"
	"codeberg.org/snonux/toolbelt/internal/cache"
	"codeberg.org/snonux/toolbelt/internal/crawl"
	"codeberg.org/snonux/toolbelt/internal/httpclient"
	"codeberg.org/snonux/toolbelt/internal/jobs"
	"codeberg.org/snonux/toolbelt/internal/logger"
	"codeberg.org/snonux/toolbelt/internal/mcpserver"
	"codeberg.org/snonux/toolbelt/internal/metrics"
	"codeberg.org/snonux/toolbelt/internal/ocr"
	"codeberg.org/snonux/toolbelt/internal/sentiment"
	"codeberg.org/snonux/toolbelt/internal/translation"
	"codeberg.org/snonux/toolbelt/internal/weather"
	"codeberg.org/snonux/toolbelt/internal/web"
	"codeberg.org/snonux/toolbelt/internal/wordcloud"
)

// LoggerConfig returns the logger settings
func (s *Settings) LoggerConfig() logger.Config {
	return logger.Config{Level: s.Log.Level, Format: s.Log.Format, File: s.Log.File}
}

// OpenStore opens the artifact store under the output directory
func (s *Settings) OpenStore() (*artifact.Store, error) {
	return artifact.Open(s.Output.Directory, s.Artifacts.DB)
}

// NewCache returns a redis cache when cache.redis_addr is set, otherwise
// an in-process one. An unreachable redis falls back to memory.
func (s *Settings) NewCache(ctx context.Context) cache.Cache {
	if s.Cache.RedisAddr == "" {
		return cache.NewMemory()
	}

	ttl, _ := s.CacheTTL()
	r := cache.NewRedis(s.Cache.RedisAddr, s.Cache.RedisPassword, s.Cache.RedisDB, cache.WithTTL(ttl))
	if err := r.Ping(ctx); err != nil {
		logger.L().Warn("cache.redis_unavailable", "addr", s.Cache.RedisAddr, "error", err)
		r.Close()
		return cache.NewMemory()
	}
	return r
}

// Executor returns the outbound executor for service, tuned by its
// upstream settings. Calls are counted on m when it is not nil.
func (s *Settings) Executor(service string, m *metrics.Metrics) *httpclient.Executor {
	u, err := s.UpstreamConfig(service)
	if err != nil {
		logger.L().Warn("services.upstream_invalid", "service", service, "error", err)
	}
	opts := u.Options()
	if m != nil {
		opts = append(opts, httpclient.WithObserver(m.ObserveUpstream))
	}
	return httpclient.NewExecutor(service, opts...)
}

// AudioConfig maps the audio settings onto a provider config
func (s *Settings) AudioConfig() *audio.Config {
	cfg := audio.DefaultProviderConfig()
	cfg.Provider = s.Audio.Provider
	cfg.Fallback = s.Audio.Fallback
	cfg.OpenAIKey = s.Keys.OpenAI
	cfg.OpenAIModel = s.Audio.OpenAIModel
	cfg.OpenAIVoice = s.Audio.OpenAIVoice
	cfg.OpenAISpeed = s.Audio.OpenAISpeed
	if s.Audio.OpenAIInstruction != "" {
		cfg.OpenAIInstruction = s.Audio.OpenAIInstruction
	}
	cfg.EnableCache = s.Audio.EnableCache
	cfg.CacheDir = s.Audio.CacheDir
	if s.Audio.ESpeakVoice != "" {
		cfg.ESpeak.Voice = s.Audio.ESpeakVoice
	}
	return cfg
}

// NewTTS builds the speech provider. When the primary provider cannot be
// created the fallback is used alone.
func (s *Settings) NewTTS() (audio.Provider, error) {
	cfg := s.AudioConfig()
	p, err := audio.NewProvider(cfg)
	if err == nil {
		return p, nil
	}
	if cfg.Fallback == "" || cfg.Fallback == cfg.Provider {
		return nil, err
	}

	logger.L().Warn("tts.primary_unavailable", "provider", cfg.Provider, "error", err)
	cfg.Provider, cfg.Fallback = cfg.Fallback, ""
	return audio.NewProvider(cfg)
}

// NewTranslator builds the configured translator behind c
func (s *Settings) NewTranslator(ctx context.Context, c cache.Cache) (translation.Translator, error) {
	cfg := translation.DefaultConfig()
	cfg.Provider = s.Translation.Provider
	cfg.OpenAIKey = s.Keys.OpenAI
	cfg.GeminiKey = s.Keys.Gemini
	if s.Translation.Model != "" {
		cfg.OpenAIModel = s.Translation.Model
		cfg.GeminiModel = s.Translation.Model
	}

	t, err := translation.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return t, nil
	}
	ttl, _ := s.CacheTTL()
	return translation.NewCachedTranslator(t, c, ttl), nil
}

// NewSentiment builds the configured analyzer
func (s *Settings) NewSentiment(ctx context.Context) (sentiment.Analyzer, error) {
	return sentiment.New(ctx, &sentiment.Config{
		Provider:    s.Sentiment.Provider,
		OpenAIKey:   s.Keys.OpenAI,
		OpenAIModel: s.Sentiment.Model,
		GeminiKey:   s.Keys.Gemini,
		GeminiModel: s.Sentiment.Model,
	})
}

// OCRConfig maps the ocr settings
func (s *Settings) OCRConfig() *ocr.Config {
	cfg := ocr.DefaultConfig()
	if langs := ocr.ParseLanguages(s.OCR.Languages); len(langs) > 0 {
		cfg.Languages = langs
	}
	if s.OCR.PSM > 0 {
		cfg.PSM = s.OCR.PSM
	}
	if s.OCR.DPI > 0 {
		cfg.DPI = s.OCR.DPI
	}
	cfg.PopplerPath = s.OCR.PopplerPath
	return cfg
}

// WordCloudOptions maps the word cloud settings
func (s *Settings) WordCloudOptions() wordcloud.Options {
	opts := wordcloud.DefaultOptions()
	if s.WordCloud.Width > 0 {
		opts.Width = s.WordCloud.Width
	}
	if s.WordCloud.Height > 0 {
		opts.Height = s.WordCloud.Height
	}
	if s.WordCloud.MaxWords > 0 {
		opts.MaxWords = s.WordCloud.MaxWords
	}
	opts.FontPath = s.WordCloud.FontPath
	return opts
}

// NewWeather builds the weather client
func (s *Settings) NewWeather(c cache.Cache, m *metrics.Metrics) *weather.Client {
	return weather.NewClient(s.Keys.Weather,
		weather.WithBaseURL(s.Weather.BaseURL),
		weather.WithExecutor(s.Executor("openweathermap", m)),
		weather.WithCache(c),
	)
}

// NewJobs builds the job search client
func (s *Settings) NewJobs(m *metrics.Metrics) *jobs.Client {
	return jobs.NewClient(jobs.WithExecutor(s.Executor("incruit", m)))
}

// Services are the built dependencies plus what must be released after use
type Services struct {
	Settings *Settings
	Store    *artifact.Store
	Cache    cache.Cache
	Metrics  *metrics.Metrics
}

// Open creates the shared infrastructure: store, cache and metrics
func Open(ctx context.Context, s *Settings) (*Services, error) {
	store, err := s.OpenStore()
	if err != nil {
		return nil, err
	}
	return &Services{
		Settings: s,
		Store:    store,
		Cache:    s.NewCache(ctx),
		Metrics:  metrics.New(),
	}, nil
}

// Close releases the store and a redis connection
func (sv *Services) Close() error {
	var errs []error
	if c, ok := sv.Cache.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	errs = append(errs, sv.Store.Close())
	return errors.Join(errs...)
}

// WebDeps builds everything the HTTP apps need. A service that cannot be
// built is logged and left nil; its endpoints then answer "not configured".
func (sv *Services) WebDeps(ctx context.Context) *web.Deps {
	s := sv.Settings
	d := &web.Deps{
		Store:     sv.Store,
		Metrics:   sv.Metrics,
		OCR:       ocr.NewExtractor(s.OCRConfig()),
		Jobs:      s.NewJobs(sv.Metrics),
		JobPages:  s.Jobs.Pages,
		JobsCSV:   s.Jobs.Encoding,
		Crawler:   crawl.New(s.Executor("crawl", sv.Metrics)),
		WordCloud: s.WordCloudOptions(),
		Weather:   s.NewWeather(sv.Cache, sv.Metrics),
	}

	var err error
	if d.TTS, err = s.NewTTS(); err != nil {
		logger.L().Warn("services.tts_unavailable", "error", err)
	}
	if d.Translator, err = s.NewTranslator(ctx, sv.Cache); err != nil {
		logger.L().Warn("services.translation_unavailable", "error", err)
	}
	if d.Sentiment, err = s.NewSentiment(ctx); err != nil {
		logger.L().Warn("services.sentiment_unavailable", "error", err)
	}
	return d
}

// MCPDeps builds the services behind the MCP tools
func (sv *Services) MCPDeps(ctx context.Context) *mcpserver.Deps {
	w := sv.WebDeps(ctx)
	return &mcpserver.Deps{
		Store:      w.Store,
		TTS:        w.TTS,
		Translator: w.Translator,
		Weather:    w.Weather,
		Sentiment:  w.Sentiment,
		Jobs:       w.Jobs,
		JobPages:   w.JobPages,
	}
}
