package models

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"strings"
	"testing"
)

func TestNewLister(t *testing.T) {
	lister := NewLister("test-api-key", "")

	if lister == nil {
		t.Fatal("NewLister returned nil")
	}

	if lister.apiKey != "test-api-key" {
		t.Errorf("Expected API key 'test-api-key', got '%s'", lister.apiKey)
	}

	if lister.client == nil {
		t.Error("OpenAI client not initialized")
	}
}

func TestList_NoAPIKey(t *testing.T) {
	lister := NewLister("", "")

	_, err := lister.List(context.Background())
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("Expected ErrNoAPIKey, got: %v", err)
	}
}

func TestGroup(t *testing.T) {
	g := Group([]string{"tts-1-hd", "gpt-4o-mini", "whisper-1", "gpt-4o-mini-tts", "gpt-4o-audio-preview", "o3-mini", "dall-e-3"})

	if !reflect.DeepEqual(g.Speech, []string{"gpt-4o-mini-tts", "tts-1-hd"}) {
		t.Errorf("Speech = %v", g.Speech)
	}
	if !reflect.DeepEqual(g.Chat, []string{"gpt-4o-mini", "o3-mini"}) {
		t.Errorf("Chat = %v", g.Chat)
	}
	if g.Other != 3 {
		t.Errorf("Other = %d, want 3", g.Other)
	}
}

func TestListAgainstStubServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","data":[{"id":"tts-1","object":"model"},{"id":"gpt-4o","object":"model"}]}`))
	}))
	defer srv.Close()

	g, err := NewLister("k", srv.URL+"/v1").List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	md := g.Markdown()
	for _, want := range []string{"`tts-1`", "`gpt-4o`", "# Available OpenAI models"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestMarkdownEmptyGroups(t *testing.T) {
	md := Groups{}.Markdown()
	if !strings.Contains(md, "No TTS models found") || !strings.Contains(md, "No chat models found") {
		t.Errorf("unexpected markdown:\n%s", md)
	}
}

func TestList_Integration(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("Skipping integration test: OPENAI_API_KEY not set")
	}

	if _, err := NewLister(apiKey, "").List(context.Background()); err != nil {
		t.Errorf("List failed: %v", err)
	}
}
