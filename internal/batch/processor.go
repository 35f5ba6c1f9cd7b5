// Package batch reads translation batch files.
package batch

import (
	"context"
	"fmt"
	"os"
	"strings"

	"codeberg.org/snonux/toolbelt/internal/translation"
)

// Entry is one line of a batch file
type Entry struct {
	Text string
	// Target is the language named on the line, empty for the default
	Target string
}

// ReadBatchFile reads entries from a file.
// Supports formats:
// - Text only: "Good morning" (translated to the default target)
// - With target: "Good morning = 일본어" (translated to that language)
// Blank lines and lines with nothing before "=" are skipped.
func ReadBatchFile(filename string) ([]Entry, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	return Parse(string(content)), nil
}

// Parse reads entries from batch file content
func Parse(content string) []Entry {
	var entries []Entry
	for _, line := range splitLines(content) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// The last "=" separates the target so the text may contain one
		if i := strings.LastIndex(line, "="); i >= 0 {
			text := strings.TrimSpace(line[:i])
			target := strings.TrimSpace(line[i+1:])
			if text != "" {
				entries = append(entries, Entry{Text: text, Target: target})
			}
			continue
		}
		entries = append(entries, Entry{Text: line})
	}
	return entries
}

// splitLines splits a string by newlines, dropping carriage returns
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r", "")
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return nil
	}
	return lines
}

// Outcome is the result of one entry
type Outcome struct {
	Entry       Entry
	Translation string
	Code        string
	Err         error
}

// Process translates every entry in order. Entries without a target use
// defaultTarget. A failed entry is recorded and processing continues.
func Process(ctx context.Context, t translation.Translator, entries []Entry, defaultTarget string) []Outcome {
	out := make([]Outcome, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			out = append(out, Outcome{Entry: e, Err: err})
			continue
		}
		target := e.Target
		if target == "" {
			target = defaultTarget
		}
		text, code, err := translation.TranslateText(ctx, t, e.Text, target)
		out = append(out, Outcome{Entry: e, Translation: text, Code: code, Err: err})
	}
	return out
}

// Failed counts outcomes with an error
func Failed(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}
