package translation

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"codeberg.org/snonux/toolbelt/internal/apperr"
)

// Translator translates text between languages. source may be "auto".
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
	Name() string
}

// Config selects and configures a translator
type Config struct {
	Provider      string // "openai" or "gemini"
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	GeminiKey     string
	GeminiModel   string
}

// DefaultConfig returns the default translator configuration
func DefaultConfig() *Config {
	return &Config{
		Provider:    "openai",
		OpenAIModel: openai.GPT4oMini,
		GeminiModel: "gemini-2.0-flash",
	}
}

// New builds the translator named in config
func New(ctx context.Context, config *Config) (Translator, error) {
	if config == nil {
		config = DefaultConfig()
	}
	switch config.Provider {
	case "openai", "":
		return NewOpenAITranslator(config), nil
	case "gemini":
		return NewGeminiTranslator(ctx, config)
	default:
		return nil, fmt.Errorf("unknown translation provider: %s", config.Provider)
	}
}

func buildPrompt(text, source, target string) string {
	from := "the detected source language"
	if source != "" && source != "auto" {
		from = LanguageName(source)
	}
	return fmt.Sprintf("Translate the following text from %s to %s. "+
		"Preserve line breaks. Respond with only the translation, nothing else.\n\n%s",
		from, LanguageName(target), text)
}

// OpenAITranslator translates with chat completions
type OpenAITranslator struct {
	apiKey string
	model  string
	client *openai.Client
}

// NewOpenAITranslator creates a new translator instance
func NewOpenAITranslator(config *Config) *OpenAITranslator {
	clientConfig := openai.DefaultConfig(config.OpenAIKey)
	if config.OpenAIBaseURL != "" {
		clientConfig.BaseURL = config.OpenAIBaseURL
	}
	model := config.OpenAIModel
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAITranslator{
		apiKey: config.OpenAIKey,
		model:  model,
		client: openai.NewClientWithConfig(clientConfig),
	}
}

// Name returns the provider name
func (t *OpenAITranslator) Name() string { return "openai" }

// Translate translates text to target
func (t *OpenAITranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	if t.apiKey == "" {
		return "", fmt.Errorf("OpenAI API key not found")
	}

	req := openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildPrompt(text, source, target),
			},
		},
		Temperature: 0.3,
	}

	resp, err := t.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", apperr.Upstream("translate.openai", fmt.Errorf("OpenAI API error: %w", err))
	}

	if len(resp.Choices) == 0 {
		return "", apperr.Upstream("translate.openai", fmt.Errorf("no translation returned"))
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// GeminiTranslator translates with the Gemini API
type GeminiTranslator struct {
	model  string
	client *genai.Client
}

// NewGeminiTranslator creates a Gemini-backed translator
func NewGeminiTranslator(ctx context.Context, config *Config) (*GeminiTranslator, error) {
	if config.GeminiKey == "" {
		return nil, fmt.Errorf("Gemini API key not found")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.GeminiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := config.GeminiModel
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiTranslator{model: model, client: client}, nil
}

// Name returns the provider name
func (t *GeminiTranslator) Name() string { return "gemini" }

// Translate translates text to target
func (t *GeminiTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	temp := float32(0.3)
	resp, err := t.client.Models.GenerateContent(ctx, t.model,
		genai.Text(buildPrompt(text, source, target)),
		&genai.GenerateContentConfig{Temperature: &temp})
	if err != nil {
		return "", apperr.Upstream("translate.gemini", fmt.Errorf("Gemini API error: %w", err))
	}

	out := strings.TrimSpace(resp.Text())
	if out == "" {
		return "", apperr.Upstream("translate.gemini", fmt.Errorf("no translation returned"))
	}
	return out, nil
}
