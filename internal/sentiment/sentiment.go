// Package sentiment scores text from negative (-1) to positive (+1).
package sentiment

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"codeberg.org/snonux/toolbelt/internal/apperr"
)

// MaxModelChars is how much text is sent to a model
const MaxModelChars = 500

// Analyzer scores the sentiment of text
type Analyzer interface {
	Analyze(ctx context.Context, text string) (Result, error)
	Name() string
}

// Result is one analysis. Subjectivity is only set by the lexicon.
type Result struct {
	Polarity     float64  `json:"polarity"`
	PositiveProb float64  `json:"positive_prob"`
	NegativeProb float64  `json:"negative_prob"`
	Subjectivity *float64 `json:"subjectivity,omitempty"`
	Label        string   `json:"sentiment"`
}

// NewResult derives polarity and label from the class probabilities
func NewResult(positive, negative float64) Result {
	return Result{
		Polarity:     round3((positive - 0.5) * 2),
		PositiveProb: round3(positive),
		NegativeProb: round3(negative),
		Label:        label(positive),
	}
}

func label(positive float64) string {
	if positive > 0.5 {
		return "positive"
	}
	return "negative"
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Config selects an analyzer
type Config struct {
	Provider      string // "lexicon", "openai" or "gemini"
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	GeminiKey     string
	GeminiModel   string
}

// DefaultConfig uses the offline lexicon
func DefaultConfig() *Config {
	return &Config{Provider: "lexicon"}
}

// New builds the analyzer named in config
func New(ctx context.Context, config *Config) (Analyzer, error) {
	if config == nil {
		config = DefaultConfig()
	}
	switch config.Provider {
	case "lexicon", "":
		return NewLexicon(), nil
	case "openai":
		return NewOpenAIAnalyzer(config)
	case "gemini":
		return NewGeminiAnalyzer(ctx, config)
	default:
		return nil, fmt.Errorf("unknown sentiment provider: %s", config.Provider)
	}
}

// Prepare trims text, rejects empty input and cuts it to max runes
func Prepare(text string, max int) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperr.E("sentiment.analyze", apperr.KindInvalid, fmt.Errorf("text is empty"))
	}
	if max > 0 && utf8.RuneCountInString(text) > max {
		text = string([]rune(text)[:max])
	}
	return text, nil
}
