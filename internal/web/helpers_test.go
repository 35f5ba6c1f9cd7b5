package web

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	yt "github.com/kkdai/youtube/v2"
	"github.com/stretchr/testify/require"

	"codeberg.org/snonux/toolbelt/internal/metrics"
	"codeberg.org/snonux/toolbelt/internal/ocr"
	"codeberg.org/snonux/toolbelt/internal/sentiment"
	"codeberg.org/snonux/toolbelt/internal/testutil"
	"codeberg.org/snonux/toolbelt/internal/wordcloud"
)

type fixedEngine struct{ text string }

func (f *fixedEngine) Recognize(ctx context.Context, image []byte) (string, error) {
	return f.text, nil
}

type onePage struct{}

func (onePage) Pages(ctx context.Context, pdf []byte) ([][]byte, error) {
	return [][]byte{pdf}, nil
}

type fakeSource struct{}

func (fakeSource) Video(ctx context.Context, url string) (*yt.Video, error) {
	return &yt.Video{ID: "abc", Title: "clip", Formats: yt.FormatList{
		{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, AudioChannels: 2},
		{ItagNo: 137, MimeType: `video/mp4; codecs="avc1"`},
	}}, nil
}

func (fakeSource) Stream(ctx context.Context, video *yt.Video, format *yt.Format) (io.ReadCloser, int64, error) {
	return io.NopCloser(strings.NewReader("stream")), 6, nil
}

func newTestDeps(t *testing.T) *Deps {
	t.Helper()
	opts := wordcloud.DefaultOptions()
	opts.Width, opts.Height = 200, 100

	return &Deps{
		Store:      testutil.NewStore(t),
		Metrics:    metrics.New(),
		TTS:        &testutil.FakeTTS{},
		Translator: &testutil.StubTranslator{},
		OCR:        &ocr.Extractor{Engine: &fixedEngine{text: "Name\tAge\nKim\t30"}, Rasterizer: onePage{}},
		JobsCSV:    "utf-8",
		WordCloud:  opts,
		Sentiment:  sentiment.NewLexicon(),
		YouTube:    fakeSource{},
	}
}

func newTestServer(t *testing.T, app string, deps *Deps) *httptest.Server {
	t.Helper()
	h, err := NewRouter(app, deps)
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func postFile(t *testing.T, url, field, name string, data []byte, extra map[string]string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range extra {
		require.NoError(t, mw.WriteField(k, v))
	}
	if name != "-" {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	resp, err := http.Post(url, mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	return resp
}

func readBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return b
}
