package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"codeberg.org/snonux/toolbelt/internal/apperr"
)

const classifierPrompt = `Classify the sentiment of the text below, which may be in any language.
Respond with a JSON object only, of the form {"positive": p, "negative": q},
where p and q are probabilities between 0 and 1 that add up to 1.

Text:
%s`

type probabilities struct {
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
}

// parseProbabilities reads the first JSON object in out and normalizes
// the two probabilities to sum to one.
func parseProbabilities(out string) (Result, error) {
	start, end := strings.Index(out, "{"), strings.LastIndex(out, "}")
	if start < 0 || end < start {
		return Result{}, fmt.Errorf("no JSON object in model output: %q", out)
	}

	var p probabilities
	if err := json.Unmarshal([]byte(out[start:end+1]), &p); err != nil {
		return Result{}, fmt.Errorf("invalid model output: %w", err)
	}
	p.Positive = clamp01(p.Positive)
	p.Negative = clamp01(p.Negative)

	sum := p.Positive + p.Negative
	if sum == 0 {
		return Result{}, fmt.Errorf("model returned zero probabilities")
	}
	return NewResult(p.Positive/sum, p.Negative/sum), nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// OpenAIAnalyzer asks a chat model for class probabilities
type OpenAIAnalyzer struct {
	model  string
	client *openai.Client
}

// NewOpenAIAnalyzer creates an OpenAI-backed analyzer
func NewOpenAIAnalyzer(config *Config) (*OpenAIAnalyzer, error) {
	if config.OpenAIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not found")
	}
	clientConfig := openai.DefaultConfig(config.OpenAIKey)
	if config.OpenAIBaseURL != "" {
		clientConfig.BaseURL = config.OpenAIBaseURL
	}
	model := config.OpenAIModel
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIAnalyzer{model: model, client: openai.NewClientWithConfig(clientConfig)}, nil
}

// Name returns the provider name
func (a *OpenAIAnalyzer) Name() string { return "openai" }

// Analyze implements Analyzer
func (a *OpenAIAnalyzer) Analyze(ctx context.Context, text string) (Result, error) {
	const op = "sentiment.openai"
	text, err := Prepare(text, MaxModelChars)
	if err != nil {
		return Result{}, err
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(classifierPrompt, text)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return Result{}, apperr.Upstream(op, fmt.Errorf("OpenAI API error: %w", err))
	}
	if len(resp.Choices) == 0 {
		return Result{}, apperr.Upstream(op, fmt.Errorf("no result returned"))
	}

	res, err := parseProbabilities(resp.Choices[0].Message.Content)
	if err != nil {
		return Result{}, apperr.Upstream(op, err)
	}
	return res, nil
}

// GeminiAnalyzer asks Gemini for class probabilities
type GeminiAnalyzer struct {
	model  string
	client *genai.Client
}

// NewGeminiAnalyzer creates a Gemini-backed analyzer
func NewGeminiAnalyzer(ctx context.Context, config *Config) (*GeminiAnalyzer, error) {
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
	return &GeminiAnalyzer{model: model, client: client}, nil
}

// Name returns the provider name
func (a *GeminiAnalyzer) Name() string { return "gemini" }

// Analyze implements Analyzer
func (a *GeminiAnalyzer) Analyze(ctx context.Context, text string) (Result, error) {
	const op = "sentiment.gemini"
	text, err := Prepare(text, MaxModelChars)
	if err != nil {
		return Result{}, err
	}

	temp := float32(0)
	resp, err := a.client.Models.GenerateContent(ctx, a.model,
		genai.Text(fmt.Sprintf(classifierPrompt, text)),
		&genai.GenerateContentConfig{Temperature: &temp, ResponseMIMEType: "application/json"})
	if err != nil {
		return Result{}, apperr.Upstream(op, fmt.Errorf("Gemini API error: %w", err))
	}

	res, err := parseProbabilities(resp.Text())
	if err != nil {
		return Result{}, apperr.Upstream(op, err)
	}
	return res, nil
}
