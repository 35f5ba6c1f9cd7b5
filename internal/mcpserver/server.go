// Package mcpserver exposes a subset of the apps as MCP tools over stdio.
package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"

	"codeberg.org/snonux/toolbelt/internal"
	"codeberg.org/snonux/toolbelt/internal/apperr"
	"codeberg.org/snonux/toolbelt/internal/artifact"
	"codeberg.org/snonux/toolbelt/internal/audio"
	"codeberg.org/snonux/toolbelt/internal/jobs"
	"codeberg.org/snonux/toolbelt/internal/logger"
	"codeberg.org/snonux/toolbelt/internal/qrcode"
	"codeberg.org/snonux/toolbelt/internal/sentiment"
	"codeberg.org/snonux/toolbelt/internal/translation"
	"codeberg.org/snonux/toolbelt/internal/weather"
)

// Deps are the app services behind the tools. A nil service makes its
// tool answer with an error result.
type Deps struct {
	Store      *artifact.Store
	TTS        audio.Provider
	Translator translation.Translator
	Weather    *weather.Client
	Sentiment  sentiment.Analyzer
	Jobs       *jobs.Client
	JobPages   int
}

// Server wraps the MCP server and the tool handlers
type Server struct {
	deps      *Deps
	mcpServer *server.MCPServer
}

// NewServer creates the server and registers every tool
func NewServer(deps *Deps) *Server {
	s := &Server{
		deps:      deps,
		mcpServer: server.NewMCPServer("toolbelt", internal.Version),
	}
	s.registerTools()
	return s
}

// ServeStdio serves on stdin/stdout until the client disconnects
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("text_to_speech",
		mcp.WithDescription("Convert text (up to 1000 characters) to an MP3 file and return its path."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to speak")),
	), s.handleTextToSpeech)

	s.mcpServer.AddTool(mcp.NewTool("translate",
		mcp.WithDescription("Translate text. The source language is detected."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to translate")),
		mcp.WithString("language", mcp.Description("Target language: 한국어, 영어, 일본어 or ko, en, ja (default ko)")),
	), s.handleTranslate)

	s.mcpServer.AddTool(mcp.NewTool("weather",
		mcp.WithDescription("Current weather at a location from OpenWeatherMap."),
		mcp.WithNumber("lat", mcp.Description("Latitude (default Gumi)")),
		mcp.WithNumber("lon", mcp.Description("Longitude (default Gumi)")),
	), s.handleWeather)

	s.mcpServer.AddTool(mcp.NewTool("qr_code",
		mcp.WithDescription("Encode text as a QR code PNG."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text or URL to encode")),
		mcp.WithNumber("size", mcp.Description("Edge length in pixels (default 256)")),
	), s.handleQRCode)

	s.mcpServer.AddTool(mcp.NewTool("sentiment",
		mcp.WithDescription("Score the sentiment of text: polarity -1..1 and a positive/negative label."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to analyze")),
	), s.handleSentiment)

	s.mcpServer.AddTool(mcp.NewTool("search_jobs",
		mcp.WithDescription("Search job postings on Incruit."),
		mcp.WithString("keyword", mcp.Required(), mcp.Description("Search keyword")),
		mcp.WithNumber("pages", mcp.Description("Result pages to fetch (default 2)")),
	), s.handleSearchJobs)
}

type textArgs struct {
	Text     string `mapstructure:"text"`
	Language string `mapstructure:"language"`
	Size     int    `mapstructure:"size"`
}

type weatherArgs struct {
	Lat *float64 `mapstructure:"lat"`
	Lon *float64 `mapstructure:"lon"`
}

type jobsArgs struct {
	Keyword string `mapstructure:"keyword"`
	Pages   int    `mapstructure:"pages"`
}

// decode copies the call arguments into v
func decode(request mcp.CallToolRequest, v any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           v,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(request.GetArguments()); err != nil {
		return apperr.Invalid("mcp.arguments", "invalid arguments: %v", err)
	}
	return nil
}

// failure turns err into a tool error result; the protocol call succeeds
func failure(tool string, err error) (*mcp.CallToolResult, error) {
	logger.L().Warn("mcp.tool_failed", "tool", tool, "error", err)
	return mcp.NewToolResultError(apperr.Message(err)), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

func notConfigured(what string) error {
	return apperr.E("mcp.tool", apperr.KindInternal, fmt.Errorf("%s is not configured", what))
}

func (s *Server) handleTextToSpeech(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "text_to_speech"
	var args textArgs
	if err := decode(request, &args); err != nil {
		return failure(tool, err)
	}
	if s.deps.TTS == nil || s.deps.Store == nil {
		return failure(tool, notConfigured("text to speech"))
	}

	dir, err := s.deps.Store.Dir("tts")
	if err != nil {
		return failure(tool, err)
	}
	name, err := audio.Synthesize(ctx, s.deps.TTS, dir, args.Text, audio.MaxRequestChars)
	if err != nil {
		return failure(tool, err)
	}
	a, err := s.deps.Store.Register(ctx, "tts", name, "audio/mpeg")
	if err != nil {
		return failure(tool, err)
	}
	return mcp.NewToolResultText(a.Path), nil
}

func (s *Server) handleTranslate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "translate"
	var args textArgs
	if err := decode(request, &args); err != nil {
		return failure(tool, err)
	}
	if s.deps.Translator == nil {
		return failure(tool, notConfigured("translation"))
	}

	text, _, err := translation.TranslateText(ctx, s.deps.Translator, args.Text, args.Language)
	if err != nil {
		return failure(tool, err)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleWeather(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "weather"
	var args weatherArgs
	if err := decode(request, &args); err != nil {
		return failure(tool, err)
	}
	if s.deps.Weather == nil {
		return failure(tool, notConfigured("weather"))
	}

	lat, lon := weather.DefaultLat, weather.DefaultLon
	if args.Lat != nil && args.Lon != nil {
		lat, lon = *args.Lat, *args.Lon
	}
	report, err := s.deps.Weather.Current(ctx, lat, lon)
	if err != nil {
		return failure(tool, err)
	}
	return jsonResult(report)
}

func (s *Server) handleQRCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "qr_code"
	var args textArgs
	if err := decode(request, &args); err != nil {
		return failure(tool, err)
	}

	png, err := qrcode.Generate(args.Text, args.Size)
	if err != nil {
		return failure(tool, err)
	}

	summary := "QR code generated"
	if s.deps.Store != nil {
		a, err := s.deps.Store.Save(ctx, "qr", qrcode.FileName(time.Now()), "image/png", bytes.NewReader(png))
		if err != nil {
			return failure(tool, err)
		}
		summary = a.Path
	}
	return mcp.NewToolResultImage(summary, base64.StdEncoding.EncodeToString(png), "image/png"), nil
}

func (s *Server) handleSentiment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "sentiment"
	var args textArgs
	if err := decode(request, &args); err != nil {
		return failure(tool, err)
	}
	if s.deps.Sentiment == nil {
		return failure(tool, notConfigured("sentiment analysis"))
	}

	res, err := s.deps.Sentiment.Analyze(ctx, args.Text)
	if err != nil {
		return failure(tool, err)
	}
	return jsonResult(res)
}

func (s *Server) handleSearchJobs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "search_jobs"
	var args jobsArgs
	if err := decode(request, &args); err != nil {
		return failure(tool, err)
	}
	if s.deps.Jobs == nil {
		return failure(tool, notConfigured("job search"))
	}

	pages := args.Pages
	if pages <= 0 {
		pages = s.deps.JobPages
	}
	found, err := s.deps.Jobs.Search(ctx, args.Keyword, pages)
	if err != nil {
		return failure(tool, err)
	}
	if found == nil {
		found = []jobs.Job{}
	}
	return jsonResult(found)
}
