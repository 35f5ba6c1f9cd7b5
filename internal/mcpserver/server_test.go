package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/snonux/toolbelt/internal/jobs"
	"codeberg.org/snonux/toolbelt/internal/sentiment"
	"codeberg.org/snonux/toolbelt/internal/testutil"
	"codeberg.org/snonux/toolbelt/internal/weather"
)

func newRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text
}

func TestTextToSpeech(t *testing.T) {
	s := NewServer(&Deps{Store: testutil.NewStore(t), TTS: &testutil.FakeTTS{}})

	res, err := s.handleTextToSpeech(context.Background(), newRequest("text_to_speech", map[string]any{"text": "hello"}))
	require.NoError(t, err)
	require.False(t, res.IsError, textOf(t, res))

	path := textOf(t, res)
	assert.Equal(t, ".mp3", filepath.Ext(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ID3hello", string(data))
}

func TestTextToSpeechErrors(t *testing.T) {
	ctx := context.Background()

	s := NewServer(&Deps{Store: testutil.NewStore(t), TTS: &testutil.FakeTTS{}})
	res, err := s.handleTextToSpeech(ctx, newRequest("text_to_speech", map[string]any{"text": "   "}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	s = NewServer(&Deps{Store: testutil.NewStore(t), TTS: &testutil.FakeTTS{Err: errors.New("engine down")}})
	res, err = s.handleTextToSpeech(ctx, newRequest("text_to_speech", map[string]any{"text": "hi"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "engine down")

	s = NewServer(&Deps{})
	res, err = s.handleTextToSpeech(ctx, newRequest("text_to_speech", map[string]any{"text": "hi"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "not configured")
}

func TestTranslate(t *testing.T) {
	s := NewServer(&Deps{Translator: &testutil.StubTranslator{}})
	ctx := context.Background()

	res, err := s.handleTranslate(ctx, newRequest("translate", map[string]any{"text": "hi", "language": "영어"}))
	require.NoError(t, err)
	assert.Equal(t, "HI [en]", textOf(t, res))

	res, err = s.handleTranslate(ctx, newRequest("translate", map[string]any{"text": "hi"}))
	require.NoError(t, err)
	assert.Equal(t, "HI [ko]", textOf(t, res))
}

func TestWeather(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"Seoul","weather":[{"description":"clear","icon":"01d"}],"main":{"temp":10}}`))
	}))
	defer srv.Close()

	s := NewServer(&Deps{Weather: weather.NewClient("key", weather.WithBaseURL(srv.URL))})
	res, err := s.handleWeather(context.Background(), newRequest("weather", map[string]any{"lat": 37.5, "lon": "127"}))
	require.NoError(t, err)
	require.False(t, res.IsError, textOf(t, res))

	var report weather.Report
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &report))
	assert.Equal(t, "Seoul", report.Location)
	assert.Contains(t, gotQuery, "lat=37.5")
	assert.Contains(t, gotQuery, "lon=127")
}

func TestQRCode(t *testing.T) {
	s := NewServer(&Deps{Store: testutil.NewStore(t)})

	res, err := s.handleQRCode(context.Background(), newRequest("qr_code", map[string]any{"text": "https://example.com", "size": 128}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 2)

	img, ok := res.Content[1].(mcp.ImageContent)
	require.True(t, ok, "expected image content, got %T", res.Content[1])
	assert.Equal(t, "image/png", img.MIMEType)
	png, err := base64.StdEncoding.DecodeString(img.Data)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(png[:4]))

	_, err = os.Stat(textOf(t, res))
	assert.NoError(t, err)

	res, err = s.handleQRCode(context.Background(), newRequest("qr_code", map[string]any{"text": ""}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestSentiment(t *testing.T) {
	s := NewServer(&Deps{Sentiment: sentiment.NewLexicon()})

	res, err := s.handleSentiment(context.Background(), newRequest("sentiment", map[string]any{"text": "I love this, it is great"}))
	require.NoError(t, err)
	require.False(t, res.IsError, textOf(t, res))

	var result sentiment.Result
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &result))
	assert.Equal(t, "positive", result.Label)
}

func TestSearchJobs(t *testing.T) {
	pages := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		w.Write([]byte(`<html><body><ul><li class="c_col"><a class="cpname">Acme</a>
<div class="cell_mid"><div class="cl_top"><a href="/jobdb_info/1">Nurse</a></div></div></li></ul></body></html>`))
	}))
	defer srv.Close()

	s := NewServer(&Deps{Jobs: jobs.NewClient(jobs.WithBaseURL(srv.URL)), JobPages: 3})
	res, err := s.handleSearchJobs(context.Background(), newRequest("search_jobs", map[string]any{"keyword": "nurse", "pages": 1}))
	require.NoError(t, err)
	require.False(t, res.IsError, textOf(t, res))

	var found []jobs.Job
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &found))
	require.Len(t, found, 1)
	assert.Equal(t, "Acme", found[0].Company)
	assert.Equal(t, 1, pages)

	res, err = s.handleSearchJobs(context.Background(), newRequest("search_jobs", map[string]any{"keyword": ""}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestDecodeRejectsBadArguments(t *testing.T) {
	var args jobsArgs
	err := decode(newRequest("search_jobs", map[string]any{"pages": map[string]any{"n": 1}}), &args)
	assert.Error(t, err)
}
