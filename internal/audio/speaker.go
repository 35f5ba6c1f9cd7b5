package audio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// DefaultRate is the speaking rate used when none is given
const DefaultRate = 200

// SampleText is spoken by the "sample" menu entry
const SampleText = "안녕하세요. 이것은 텍스트를 음성으로 변환하는 예제입니다."

// SpeakOptions tune a single utterance. Zero values mean defaults; a
// VoiceIndex outside the voice list keeps the default voice.
type SpeakOptions struct {
	Rate       int
	Volume     float64
	VoiceIndex int
	HasVoice   bool
}

// Speaker plays text aloud
type Speaker interface {
	Speak(ctx context.Context, text string, opts SpeakOptions) error
	Voices(ctx context.Context) ([]Voice, error)
}

// ESpeakSpeaker plays text through espeak-ng
type ESpeakSpeaker struct {
	base ESpeakConfig
}

// NewESpeakSpeaker checks espeak-ng is present and returns a speaker
func NewESpeakSpeaker(config *ESpeakConfig) (*ESpeakSpeaker, error) {
	if err := checkESpeakInstalled(); err != nil {
		return nil, err
	}
	if config == nil {
		config = DefaultConfig()
	}
	return &ESpeakSpeaker{base: *config}, nil
}

// Speak plays text with opts applied on top of the base config
func (s *ESpeakSpeaker) Speak(ctx context.Context, text string, opts SpeakOptions) error {
	cfg := s.base
	e := &ESpeak{config: &cfg}

	rate := opts.Rate
	if rate == 0 {
		rate = DefaultRate
	}
	e.SetSpeed(rate)

	volume := opts.Volume
	if volume == 0 {
		volume = 1.0
	}
	e.SetVolume(volume)

	if opts.HasVoice {
		voices, err := s.Voices(ctx)
		if err == nil && opts.VoiceIndex >= 0 && opts.VoiceIndex < len(voices) {
			e.SetVoice(voices[opts.VoiceIndex].Language)
		}
	}

	return e.Speak(ctx, text)
}

// Voices lists the installed espeak-ng voices
func (s *ESpeakSpeaker) Voices(ctx context.Context) ([]Voice, error) {
	return ListVoices(ctx)
}

// Console is the interactive text-to-speech menu
type Console struct {
	In      io.Reader
	Out     io.Writer
	Speaker Speaker
}

// Run shows the voice list and loops over the menu until the user quits,
// input ends or ctx is cancelled. Cancellation returns nil even while a
// prompt is waiting for input.
func (c *Console) Run(ctx context.Context) error {
	lines := scanLines(ctx, c.In)
	readLine := func(prompt string) (string, bool) {
		fmt.Fprint(c.Out, prompt)
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.Out)
			return "", false
		case line, ok := <-lines:
			return line, ok
		}
	}

	fmt.Fprintln(c.Out, strings.Repeat("=", 50))
	fmt.Fprintln(c.Out, "Text to speech")
	fmt.Fprintln(c.Out, strings.Repeat("=", 50))
	c.printVoices(ctx)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		fmt.Fprintln(c.Out, "\nChoose an option:")
		fmt.Fprintln(c.Out, "1. Type text")
		fmt.Fprintln(c.Out, "2. Read text from a file")
		fmt.Fprintln(c.Out, "3. Use the sample text")
		fmt.Fprintln(c.Out, "4. Show voices again")
		fmt.Fprintln(c.Out, "5. Quit")

		choice, ok := readLine("\nChoice (1-5): ")
		if !ok {
			return nil
		}

		switch strings.TrimSpace(choice) {
		case "1":
			text, ok := readLine("\nText to speak: ")
			if !ok {
				return nil
			}
			if strings.TrimSpace(text) == "" {
				fmt.Fprintln(c.Out, "Please enter some text.")
				continue
			}
			rateInput, ok := readLine(fmt.Sprintf("Speaking rate (default: %d, Enter to skip): ", DefaultRate))
			if !ok && ctx.Err() != nil {
				return nil
			}
			opts := SpeakOptions{}
			if r := strings.TrimSpace(rateInput); r != "" {
				rate, err := strconv.Atoi(r)
				if err != nil {
					fmt.Fprintf(c.Out, "Invalid rate %q, using default.\n", r)
				} else {
					opts.Rate = rate
				}
			}
			c.say(ctx, text, opts)

		case "2":
			path, ok := readLine("\nFile path: ")
			if !ok {
				return nil
			}
			path = strings.TrimSpace(path)
			data, err := os.ReadFile(path)
			if errors.Is(err, os.ErrNotExist) {
				fmt.Fprintf(c.Out, "File not found: %s\n", path)
				continue
			}
			if err != nil {
				fmt.Fprintf(c.Out, "Failed to read file: %v\n", err)
				continue
			}
			if strings.TrimSpace(string(data)) == "" {
				fmt.Fprintln(c.Out, "The file is empty.")
				continue
			}
			c.say(ctx, string(data), SpeakOptions{})

		case "3":
			fmt.Fprintf(c.Out, "\nSample text: %s\n", SampleText)
			c.say(ctx, SampleText, SpeakOptions{})

		case "4":
			c.printVoices(ctx)

		case "5":
			fmt.Fprintln(c.Out, "\nBye.")
			return nil

		default:
			fmt.Fprintln(c.Out, "\nInvalid choice. Enter a number between 1 and 5.")
		}
	}
}

// scanLines feeds lines of in to the returned channel and closes it at
// end of input. The reader goroutine stays blocked on in after ctx is
// cancelled until in yields or closes.
func scanLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

func (c *Console) say(ctx context.Context, text string, opts SpeakOptions) {
	fmt.Fprintln(c.Out, "\nSpeaking...")
	if err := c.Speaker.Speak(ctx, text, opts); err != nil {
		fmt.Fprintf(c.Out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(c.Out, "Done!")
}

func (c *Console) printVoices(ctx context.Context) {
	voices, err := c.Speaker.Voices(ctx)
	if err != nil {
		fmt.Fprintf(c.Out, "Failed to list voices: %v\n", err)
		return
	}

	fmt.Fprintln(c.Out, "\n=== Available voices ===")
	for i, v := range voices {
		fmt.Fprintf(c.Out, "%d: %s (%s)\n", i, v.Name, v.Language)
	}
	fmt.Fprintln(c.Out)
}
