package audio

import (
	"context"
	"path/filepath"
	"strings"

	"codeberg.org/snonux/toolbelt/internal/apperr"
)

// ESpeakProvider implements Provider interface for espeak-ng
type ESpeakProvider struct {
	espeak *ESpeak
}

// NewESpeakProvider creates a new espeak-ng provider
func NewESpeakProvider(config *ESpeakConfig) (Provider, error) {
	if config == nil {
		config = DefaultConfig()
	}
	// providers must not share the mutable config with the console speaker
	cfg := *config

	espeak, err := New(&cfg)
	if err != nil {
		return nil, err
	}

	return &ESpeakProvider{espeak: espeak}, nil
}

// GenerateAudio generates audio using espeak-ng
func (p *ESpeakProvider) GenerateAudio(ctx context.Context, text string, outputFile string) error {
	if err := ValidateText(text, MaxEngineChars); err != nil {
		return err
	}

	var err error
	switch strings.ToLower(filepath.Ext(outputFile)) {
	case ".wav":
		err = p.espeak.GenerateAudio(ctx, text, outputFile)
	default:
		err = p.espeak.GenerateMP3(ctx, text, outputFile)
	}
	if err != nil {
		return apperr.Upstream("tts.espeak", err)
	}
	return nil
}

// Name returns the provider name
func (p *ESpeakProvider) Name() string {
	return "espeak-ng"
}

// IsAvailable checks if espeak-ng is installed
func (p *ESpeakProvider) IsAvailable() error {
	return checkESpeakInstalled()
}
