package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"codeberg.org/snonux/toolbelt/internal"
)

// Synthesize validates text, renders it with p into dir as <uuid>.mp3 and
// returns the file name.
func Synthesize(ctx context.Context, p Provider, dir, text string, maxChars int) (string, error) {
	if err := ValidateText(text, maxChars); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	name := internal.NewFileID() + ".mp3"
	if err := p.GenerateAudio(ctx, text, filepath.Join(dir, name)); err != nil {
		return "", err
	}
	return name, nil
}
