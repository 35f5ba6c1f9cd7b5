// Package testutil holds fakes and file helpers shared by package tests.
package testutil

import (
	"context"
	"os"
	"strings"
	"sync"
)

// FakeTTS writes "ID3" followed by the text as the audio file
type FakeTTS struct {
	Err   error
	mu    sync.Mutex
	Calls int
}

func (f *FakeTTS) Name() string       { return "fake" }
func (f *FakeTTS) IsAvailable() error { return nil }

func (f *FakeTTS) GenerateAudio(ctx context.Context, text, outputFile string) error {
	f.mu.Lock()
	f.Calls++
	f.mu.Unlock()

	if f.Err != nil {
		return f.Err
	}
	return os.WriteFile(outputFile, []byte("ID3"+text), 0644)
}

// StubTranslator returns the upper-cased text followed by " [target]"
// and records the source language of every call
type StubTranslator struct {
	Err     error
	mu      sync.Mutex
	Sources []string
}

func (s *StubTranslator) Name() string { return "stub" }

func (s *StubTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	s.mu.Lock()
	s.Sources = append(s.Sources, source)
	s.mu.Unlock()

	if s.Err != nil {
		return "", s.Err
	}
	return strings.ToUpper(text) + " [" + target + "]", nil
}

// Calls returns how many translations were requested
func (s *StubTranslator) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Sources)
}
