package models

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// ErrNoAPIKey is returned when no OpenAI key is configured
var ErrNoAPIKey = errors.New("OpenAI API key not found. Set OPENAI_API_KEY environment variable or configure in .toolbelt.yaml")

// Lister handles listing available OpenAI models
type Lister struct {
	apiKey string
	client *openai.Client
}

// Groups holds model ids by the apps that can use them
type Groups struct {
	Speech []string // text to speech
	Chat   []string // translation and sentiment
	Other  int      // models neither group uses
}

// NewLister creates a new model lister. baseURL overrides the API root
// when set.
func NewLister(apiKey, baseURL string) *Lister {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Lister{
		apiKey: apiKey,
		client: openai.NewClientWithConfig(cfg),
	}
}

// List fetches the models the key can see and groups them
func (l *Lister) List(ctx context.Context) (Groups, error) {
	if l.apiKey == "" {
		return Groups{}, ErrNoAPIKey
	}

	models, err := l.client.ListModels(ctx)
	if err != nil {
		return Groups{}, fmt.Errorf("failed to list models: %w", err)
	}

	ids := make([]string, 0, len(models.Models))
	for _, m := range models.Models {
		ids = append(ids, m.ID)
	}
	return Group(ids), nil
}

// Group sorts model ids into speech and chat models
func Group(ids []string) Groups {
	var g Groups
	for _, id := range ids {
		switch {
		case strings.Contains(id, "tts"):
			g.Speech = append(g.Speech, id)
		case strings.Contains(id, "audio"), strings.Contains(id, "realtime"),
			strings.Contains(id, "transcribe"), strings.Contains(id, "search"):
			g.Other++
		case strings.Contains(id, "gpt"), strings.Contains(id, "chat"), strings.HasPrefix(id, "o"):
			g.Chat = append(g.Chat, id)
		default:
			g.Other++
		}
	}
	sort.Strings(g.Speech)
	sort.Strings(g.Chat)
	return g
}

// Markdown formats the groups for the console
func (g Groups) Markdown() string {
	var b strings.Builder
	b.WriteString("# Available OpenAI models\n\n")

	b.WriteString("## Text to speech (`audio.openai_model`)\n\n")
	writeList(&b, g.Speech, "No TTS models found")

	b.WriteString("\n## Chat (`translation.model`, sentiment)\n\n")
	writeList(&b, g.Chat, "No chat models found")

	if g.Other > 0 {
		fmt.Fprintf(&b, "\n_%d other models not used by any app_\n", g.Other)
	}
	return b.String()
}

func writeList(b *strings.Builder, ids []string, empty string) {
	if len(ids) == 0 {
		b.WriteString("- " + empty + "\n")
		return
	}
	for _, id := range ids {
		b.WriteString("- `" + id + "`\n")
	}
}
