package cli

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"codeberg.org/snonux/toolbelt/internal"
	"codeberg.org/snonux/toolbelt/internal/artifact"
	"codeberg.org/snonux/toolbelt/internal/audio"
	"codeberg.org/snonux/toolbelt/internal/batch"
	"codeberg.org/snonux/toolbelt/internal/crawl"
	"codeberg.org/snonux/toolbelt/internal/jobs"
	"codeberg.org/snonux/toolbelt/internal/logger"
	"codeberg.org/snonux/toolbelt/internal/mcpserver"
	"codeberg.org/snonux/toolbelt/internal/models"
	"codeberg.org/snonux/toolbelt/internal/ocr"
	"codeberg.org/snonux/toolbelt/internal/qrcode"
	"codeberg.org/snonux/toolbelt/internal/render"
	"codeberg.org/snonux/toolbelt/internal/services"
	"codeberg.org/snonux/toolbelt/internal/table"
	"codeberg.org/snonux/toolbelt/internal/translation"
	"codeberg.org/snonux/toolbelt/internal/web"
	"codeberg.org/snonux/toolbelt/internal/wordcloud"
	"codeberg.org/snonux/toolbelt/internal/youtube"
)

// openServices loads the settings and opens store, cache and metrics.
// The caller closes the result.
func openServices(ctx context.Context) (*services.Services, error) {
	s, err := LoadSettings()
	if err != nil {
		return nil, err
	}
	return services.Open(ctx, s)
}

func printer(cmd *cobra.Command) *render.Printer {
	return render.New(cmd.OutOrStdout())
}

// writeFile writes data to path, creating parent directories
func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0644)
}

// saveOutput writes data to output when set, otherwise stores it as a
// new artifact of app named name. It returns the written path.
func saveOutput(ctx context.Context, sv *services.Services, output, app, name string, data []byte) (string, error) {
	if output != "" {
		return output, writeFile(output, data)
	}
	mimeType := mime.TypeByExtension(filepath.Ext(name))
	a, err := sv.Store.Save(ctx, app, name, mimeType, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	return a.Path, nil
}

func runServe(cmd *cobra.Command, args []string, flags *Flags) error {
	name := "all"
	if len(args) > 0 {
		name = args[0]
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sv, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer sv.Close()

	handler, err := web.NewRouter(name, sv.WebDeps(ctx))
	if err != nil {
		return err
	}

	p := printer(cmd)
	p.Banner("toolbelt", internal.Version)
	p.Printf("Serving %s on %s\n", name, web.BrowserURL(sv.Settings.Server.Addr))
	return web.Run(ctx, sv.Settings.Server.Addr, handler, flags.Open)
}

func runTTS(cmd *cobra.Command, args []string, flags *Flags) error {
	ctx := cmd.Context()
	sv, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer sv.Close()

	provider, err := sv.Settings.NewTTS()
	if err != nil {
		return fmt.Errorf("failed to create speech provider: %w", err)
	}

	text := strings.Join(args, " ")
	if flags.Output != "" {
		if err := audio.ValidateText(text, audio.MaxEngineChars); err != nil {
			return err
		}
		if err := provider.GenerateAudio(ctx, text, flags.Output); err != nil {
			return err
		}
		printer(cmd).Printf("Audio saved to: %s\n", flags.Output)
		return nil
	}

	dir, err := sv.Store.Dir("tts")
	if err != nil {
		return err
	}
	name, err := audio.Synthesize(ctx, provider, dir, text, audio.MaxEngineChars)
	if err != nil {
		return err
	}
	a, err := sv.Store.Register(ctx, "tts", name, "audio/mpeg")
	if err != nil {
		return err
	}
	printer(cmd).Printf("Audio saved to: %s\n", a.Path)
	return nil
}

func runSpeak(cmd *cobra.Command, flags *Flags) error {
	s, err := LoadSettings()
	if err != nil {
		return err
	}

	speaker, err := audio.NewESpeakSpeaker(s.AudioConfig().ESpeak)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	console := &audio.Console{In: cmd.InOrStdin(), Out: cmd.OutOrStdout(), Speaker: speaker}
	return console.Run(ctx)
}

func runTranslate(cmd *cobra.Command, args []string, flags *Flags) error {
	ctx := cmd.Context()
	sv, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer sv.Close()

	t, err := sv.Settings.NewTranslator(ctx, sv.Cache)
	if err != nil {
		return fmt.Errorf("failed to create translator: %w", err)
	}

	if flags.BatchFile != "" {
		return runTranslateBatch(cmd, t, flags)
	}

	text := strings.Join(args, " ")
	if flags.Input != "" {
		data, err := os.ReadFile(flags.Input)
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		if text, err = translation.DecodeUpload(data); err != nil {
			return err
		}
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("nothing to translate: give text, --input or --batch")
	}

	translated, err := translateFrom(ctx, t, text, flags.From, flags.To)
	if err != nil {
		return err
	}

	if flags.Output != "" {
		if err := writeFile(flags.Output, []byte(translated)); err != nil {
			return err
		}
		printer(cmd).Printf("Translation saved to: %s\n", flags.Output)
		return nil
	}
	printer(cmd).Printf("%s\n", translated)
	return nil
}

// translateFrom translates text from an explicit source language. An
// empty or "auto" source detects the language.
func translateFrom(ctx context.Context, t translation.Translator, text, from, to string) (string, error) {
	if from == "" || from == "auto" {
		translated, _, err := translation.TranslateText(ctx, t, text, to)
		return translated, err
	}

	source := translation.LanguageCode(from)
	target := translation.LanguageCode(to)
	var out []string
	for _, chunk := range translation.Chunk(text, translation.ChunkChars) {
		translated, err := t.Translate(ctx, chunk, source, target)
		if err != nil {
			return "", err
		}
		out = append(out, translated)
	}
	return strings.Join(out, "\n\n"), nil
}

func runTranslateBatch(cmd *cobra.Command, t translation.Translator, flags *Flags) error {
	entries, err := batch.ReadBatchFile(flags.BatchFile)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no entries in %s", flags.BatchFile)
	}

	outcomes := batch.Process(cmd.Context(), t, entries, flags.To)

	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		result := o.Translation
		if o.Err != nil {
			result = "error: " + o.Err.Error()
		}
		rows = append(rows, []string{o.Entry.Text, o.Code, result})
	}
	if err := printer(cmd).Markdown(render.Table([]string{"Text", "Target", "Translation"}, rows)); err != nil {
		return err
	}

	if n := batch.Failed(outcomes); n > 0 {
		return fmt.Errorf("%d of %d entries failed", n, len(outcomes))
	}
	return nil
}

func runOCR(cmd *cobra.Command, args []string, flags *Flags) error {
	ctx := cmd.Context()
	path := args[0]
	if !ocr.Allowed(path) {
		return fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	s, err := LoadSettings()
	if err != nil {
		return err
	}
	text, err := ocr.NewExtractor(s.OCRConfig()).Extract(ctx, filepath.Base(path), data)
	if err != nil {
		return err
	}
	return writeOCR(cmd, text, flags)
}

// writeOCR prints or saves extracted text and writes the table workbook
func writeOCR(cmd *cobra.Command, text string, flags *Flags) error {
	p := printer(cmd)
	if flags.Output != "" {
		if err := writeFile(flags.Output, []byte(text)); err != nil {
			return err
		}
		p.Printf("Text saved to: %s\n", flags.Output)
	} else if flags.XLSXOut == "" {
		p.Printf("%s\n", text)
	}

	if flags.XLSXOut == "" {
		return nil
	}
	t, err := table.Parse(text)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := table.WriteXLSX(&buf, t); err != nil {
		return err
	}
	if err := writeFile(flags.XLSXOut, buf.Bytes()); err != nil {
		return err
	}
	p.Printf("Table with %d columns and %d rows saved to: %s\n", t.Width(), len(t.Rows), flags.XLSXOut)
	return nil
}

func runJobs(cmd *cobra.Command, args []string, flags *Flags) error {
	ctx := cmd.Context()
	s, err := LoadSettings()
	if err != nil {
		return err
	}

	keyword := strings.Join(args, " ")
	found, err := s.NewJobs(nil).Search(ctx, keyword, s.Jobs.Pages)
	if err != nil {
		return err
	}
	return writeJobs(cmd, keyword, found, flags.CSVOut, s.Jobs.Encoding)
}

func writeJobs(cmd *cobra.Command, keyword string, found []jobs.Job, csvOut, encoding string) error {
	p := printer(cmd)
	rows := make([][]string, 0, len(found))
	for _, j := range found {
		rows = append(rows, []string{j.Company, j.Title, j.Location, j.Link})
	}
	md := fmt.Sprintf("## %d postings for %q\n\n", len(found), keyword) +
		render.Table([]string{"Company", "Title", "Location", "Link"}, rows)
	if err := p.Markdown(md); err != nil {
		return err
	}

	if csvOut == "" {
		return nil
	}
	var buf bytes.Buffer
	if err := jobs.WriteCSV(&buf, found, encoding); err != nil {
		return err
	}
	if err := writeFile(csvOut, buf.Bytes()); err != nil {
		return err
	}
	p.Printf("CSV saved to: %s\n", csvOut)
	return nil
}

func runWordCloud(cmd *cobra.Command, flags *Flags) error {
	ctx := cmd.Context()
	sv, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer sv.Close()

	var text string
	if flags.TextFile != "" {
		data, err := os.ReadFile(flags.TextFile)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", flags.TextFile, err)
		}
		if text, err = web.DecodeText(data); err != nil {
			return err
		}
	} else {
		crawler := crawl.New(sv.Settings.Executor("crawl", nil))
		if text, err = crawler.Fetch(ctx, flags.URL); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	words, err := wordcloud.Generate(&buf, text, sv.Settings.WordCloudOptions())
	if err != nil {
		return err
	}
	name := internal.TimestampedName("wordcloud", "_"+internal.ShortID()+".png", time.Now())
	path, err := saveOutput(ctx, sv, flags.Output, "wordcloud", name, buf.Bytes())
	if err != nil {
		return err
	}

	p := printer(cmd)
	p.Printf("Word cloud with %d words saved to: %s\n", len(words), path)

	analyzer, err := sv.Settings.NewSentiment(ctx)
	if err != nil {
		logger.L().Warn("wordcloud.sentiment_unavailable", "error", err)
		return nil
	}
	res, err := analyzer.Analyze(ctx, text)
	if err != nil {
		logger.L().Warn("wordcloud.sentiment_failed", "error", err)
		return nil
	}
	return p.Markdown(sentimentMarkdown(analyzer.Name(), res.Label, res.Polarity, res.PositiveProb, res.NegativeProb))
}

func runSentiment(cmd *cobra.Command, args []string, flags *Flags) error {
	ctx := cmd.Context()
	text := strings.Join(args, " ")
	if flags.Input != "" {
		data, err := os.ReadFile(flags.Input)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", flags.Input, err)
		}
		if text, err = web.DecodeText(data); err != nil {
			return err
		}
	}

	s, err := LoadSettings()
	if err != nil {
		return err
	}
	analyzer, err := s.NewSentiment(ctx)
	if err != nil {
		return err
	}
	res, err := analyzer.Analyze(ctx, text)
	if err != nil {
		return err
	}
	return printer(cmd).Markdown(sentimentMarkdown(analyzer.Name(), res.Label, res.Polarity, res.PositiveProb, res.NegativeProb))
}

func sentimentMarkdown(analyzer, label string, polarity, positive, negative float64) string {
	return fmt.Sprintf("## Sentiment: %s\n\n", label) + render.Table(
		[]string{"Analyzer", "Polarity", "Positive", "Negative"},
		[][]string{{analyzer, fmt.Sprintf("%.3f", polarity), fmt.Sprintf("%.3f", positive), fmt.Sprintf("%.3f", negative)}},
	)
}

func runWeather(cmd *cobra.Command, flags *Flags) error {
	ctx := cmd.Context()
	sv, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer sv.Close()

	r, err := sv.Settings.NewWeather(sv.Cache, nil).Current(ctx, flags.Lat, flags.Lon)
	if err != nil {
		return err
	}

	md := fmt.Sprintf("## Weather in %s\n\n**%s**, %.1f°C (feels like %.1f°C)\n\n", flags.Name, r.Description, r.Temp, r.FeelsLike) +
		render.Table([]string{"Min", "Max", "Humidity", "Pressure", "Wind", "Clouds", "Visibility", "Rain 1h", "Snow 1h"},
			[][]string{{
				fmt.Sprintf("%.1f°C", r.TempMin),
				fmt.Sprintf("%.1f°C", r.TempMax),
				fmt.Sprintf("%d%%", r.Humidity),
				fmt.Sprintf("%d hPa", r.Pressure),
				fmt.Sprintf("%.1f m/s", r.WindSpeed),
				fmt.Sprintf("%d%%", r.Clouds),
				fmt.Sprintf("%.1f km", r.Visibility),
				fmt.Sprintf("%.1f mm", r.Rain),
				fmt.Sprintf("%.1f mm", r.Snow),
			}})
	return printer(cmd).Markdown(md)
}

func runQR(cmd *cobra.Command, args []string, flags *Flags) error {
	ctx := cmd.Context()
	png, err := qrcode.Generate(strings.Join(args, " "), flags.QRSize)
	if err != nil {
		return err
	}

	sv, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer sv.Close()

	path, err := saveOutput(ctx, sv, flags.Output, "qr", qrcode.FileName(time.Now()), png)
	if err != nil {
		return err
	}
	printer(cmd).Printf("QR code saved to: %s\n", path)
	return nil
}

func runYouTube(cmd *cobra.Command, args []string, flags *Flags) error {
	ctx := cmd.Context()
	url := ""
	if len(args) > 0 {
		url = args[0]
	} else {
		var err error
		if url, err = prompt(cmd.InOrStdin(), cmd.OutOrStdout(), "YouTube URL: "); err != nil {
			return err
		}
	}

	sv, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer sv.Close()

	audioDir, err := sv.Store.Dir(web.YouTubeAudioApp)
	if err != nil {
		return err
	}
	videoDir, err := sv.Store.Dir(web.YouTubeVideoApp)
	if err != nil {
		return err
	}

	res, err := youtube.NewDownloader(nil, audioDir, videoDir).Download(ctx, url)
	if err != nil {
		return err
	}
	audioArt, err := sv.Store.Register(ctx, web.YouTubeAudioApp, res.AudioFile, mime.TypeByExtension(filepath.Ext(res.AudioFile)))
	if err != nil {
		return err
	}
	videoArt, err := sv.Store.Register(ctx, web.YouTubeVideoApp, res.VideoFile, mime.TypeByExtension(filepath.Ext(res.VideoFile)))
	if err != nil {
		return err
	}

	p := printer(cmd)
	p.Printf("Downloaded: %s\n", res.Title)
	p.Printf("Audio: %s\n", audioArt.Path)
	p.Printf("Video: %s\n", videoArt.Path)
	return nil
}

// prompt reads one trimmed line from in
func prompt(in io.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func runModels(cmd *cobra.Command) error {
	groups, err := models.NewLister(GetOpenAIKey(), "").List(cmd.Context())
	if err != nil {
		return err
	}
	return printer(cmd).Markdown(groups.Markdown())
}

func runArchive(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := LoadSettings()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		path, err := artifact.Archive(s.Output.Directory)
		if err != nil {
			return fmt.Errorf("failed to archive output: %w", err)
		}
		printer(cmd).Printf("Archived %s to %s\n", s.Output.Directory, path)
		return nil
	}

	sv, err := services.Open(ctx, s)
	if err != nil {
		return err
	}
	defer sv.Close()

	path, err := sv.Store.ArchiveApp(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to archive %s: %w", args[0], err)
	}
	printer(cmd).Printf("Archived %s to %s\n", args[0], path)
	return nil
}

func runMCP(cmd *cobra.Command) error {
	ctx := cmd.Context()
	sv, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer sv.Close()

	return mcpserver.NewServer(sv.MCPDeps(ctx)).ServeStdio()
}

func runConfig(cmd *cobra.Command) error {
	s, err := LoadSettings()
	if err != nil {
		return err
	}
	out, err := s.YAML()
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
