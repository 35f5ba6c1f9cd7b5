package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/korean"

	"codeberg.org/snonux/toolbelt/internal/apperr"
	"codeberg.org/snonux/toolbelt/internal/cache"
	"codeberg.org/snonux/toolbelt/internal/jobs"
	"codeberg.org/snonux/toolbelt/internal/ocr"
	"codeberg.org/snonux/toolbelt/internal/testutil"
	"codeberg.org/snonux/toolbelt/internal/weather"
)

func decodeMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(readBody(t, resp), &m))
	return m
}

func TestTTSValidation(t *testing.T) {
	srv := newTestServer(t, "tts", newTestDeps(t))
	url := srv.URL + "/api/text-to-speech"

	tests := []struct {
		name string
		resp func() *http.Response
		want int
	}{
		{"not json", func() *http.Response {
			r, err := http.Post(url, "text/plain", strings.NewReader("hi"))
			require.NoError(t, err)
			return r
		}, http.StatusBadRequest},
		{"missing text", func() *http.Response { return postJSON(t, url, `{}`) }, http.StatusBadRequest},
		{"blank text", func() *http.Response { return postJSON(t, url, `{"text":"   "}`) }, http.StatusBadRequest},
		{"too long", func() *http.Response {
			return postJSON(t, url, fmt.Sprintf(`{"text":%q}`, strings.Repeat("가", 1001)))
		}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := tt.resp()
			assert.Equal(t, tt.want, resp.StatusCode)
			body := decodeMap(t, resp)
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestDecodeJSONTooLarge(t *testing.T) {
	body := `{"text":"` + strings.Repeat("a", MaxUploadBytes+10) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	var v struct{ Text string }
	err := decodeJSON(httptest.NewRecorder(), req, &v)
	assert.True(t, apperr.IsKind(err, apperr.KindTooLarge), "got %v", err)
	assert.Equal(t, http.StatusRequestEntityTooLarge, apperr.Status(err))
}

func TestUploadTooLarge(t *testing.T) {
	tests := []struct {
		app, name string
	}{
		{"translate", "big.txt"},
		{"ocr", "big.png"},
		{"wordcloud", "big.md"},
	}

	for _, tt := range tests {
		t.Run(tt.app, func(t *testing.T) {
			h, err := NewRouter(tt.app, newTestDeps(t))
			require.NoError(t, err)

			var buf bytes.Buffer
			mw := multipart.NewWriter(&buf)
			fw, err := mw.CreateFormFile("file", tt.name)
			require.NoError(t, err)
			_, err = fw.Write(bytes.Repeat([]byte("a"), MaxUploadBytes+1024))
			require.NoError(t, err)
			require.NoError(t, mw.Close())

			req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
			req.Header.Set("Content-Type", mw.FormDataContentType())
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, false, body["success"])
			assert.Equal(t, "file too large (max 16MB)", body["error"])
		})
	}
}

func TestTTSSynthesizeAndDownload(t *testing.T) {
	srv := newTestServer(t, "tts", newTestDeps(t))

	resp := postJSON(t, srv.URL+"/api/text-to-speech", `{"text":"안녕하세요"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeMap(t, resp)
	assert.Equal(t, true, body["success"])

	file := body["file"].(string)
	assert.True(t, strings.HasSuffix(file, ".mp3"))
	assert.Equal(t, "/api/download/"+file, body["download_url"])

	dl, err := http.Get(srv.URL + body["download_url"].(string))
	require.NoError(t, err)
	data := readBody(t, dl)
	assert.Equal(t, http.StatusOK, dl.StatusCode)
	assert.Equal(t, "audio/mpeg", dl.Header.Get("Content-Type"))
	assert.Contains(t, dl.Header.Get("Content-Disposition"), `filename="speech_`+strings.TrimSuffix(file, ".mp3")+`.mp3"`)
	assert.Equal(t, "ID3안녕하세요", string(data))

	missing, err := http.Get(srv.URL + "/api/download/nope.mp3")
	require.NoError(t, err)
	readBody(t, missing)
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestTTSEngineFailure(t *testing.T) {
	deps := newTestDeps(t)
	deps.TTS = &testutil.FakeTTS{Err: errors.New("espeak-ng crashed")}
	srv := newTestServer(t, "tts", deps)

	resp := postJSON(t, srv.URL+"/api/text-to-speech", `{"text":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "espeak-ng crashed", decodeMap(t, resp)["message"])
}

func TestTranslateUpload(t *testing.T) {
	srv := newTestServer(t, "translate", newTestDeps(t))

	resp := postFile(t, srv.URL+"/upload", "file", "notes.pdf", []byte("x"), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	readBody(t, resp)

	resp = postFile(t, srv.URL+"/upload", "file", "-", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "no file uploaded", decodeMap(t, resp)["error"])

	resp = postFile(t, srv.URL+"/upload", "file", "notes.txt", []byte("hello"), map[string]string{"language": "영어"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeMap(t, resp)
	assert.Equal(t, "notes_translated_en.txt", body["filename"])
	assert.Equal(t, "HELLO [en]", body["preview"])

	dl, err := http.Get(srv.URL + body["download_url"].(string))
	require.NoError(t, err)
	assert.Equal(t, "HELLO [en]", string(readBody(t, dl)))
	assert.Equal(t, "text/plain; charset=utf-8", dl.Header.Get("Content-Type"))
}

func TestTranslateDefaultsToKorean(t *testing.T) {
	srv := newTestServer(t, "translate", newTestDeps(t))

	resp := postFile(t, srv.URL+"/upload", "file", "a.txt", []byte("hi"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "a_translated_ko.txt", decodeMap(t, resp)["filename"])

	resp = postJSON(t, srv.URL+"/api/translate", `{"text":"good","language":"ja"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeMap(t, resp)
	assert.Equal(t, "GOOD [ja]", body["text"])
	assert.Equal(t, "ja", body["language"])
}

func TestTranslateNotConfigured(t *testing.T) {
	deps := newTestDeps(t)
	deps.Translator = nil
	srv := newTestServer(t, "translate", deps)

	resp := postJSON(t, srv.URL+"/api/translate", `{"text":"good"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	readBody(t, resp)
}

func TestOCRUpload(t *testing.T) {
	deps := newTestDeps(t)
	srv := newTestServer(t, "ocr", deps)

	resp := postFile(t, srv.URL+"/upload", "file", "scan.txt", []byte("x"), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	readBody(t, resp)

	resp = postFile(t, srv.URL+"/upload", "file", "scan.PNG", []byte("png"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Name\tAge\nKim\t30", string(readBody(t, resp)))
	assert.Equal(t, `attachment; filename="scan.txt"`, resp.Header.Get("Content-Disposition"))

	resp = postFile(t, srv.URL+"/upload", "file", "doc.pdf", []byte("pdf"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(readBody(t, resp)), ocr.PageSeparator(1))
}

func TestOCRNoText(t *testing.T) {
	deps := newTestDeps(t)
	deps.OCR.Engine = &fixedEngine{text: "  \n"}
	srv := newTestServer(t, "ocr", deps)

	resp := postFile(t, srv.URL+"/upload", "file", "blank.jpg", []byte("jpg"), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, false, decodeMap(t, resp)["success"])
}

func TestOCRConvertToExcel(t *testing.T) {
	srv := newTestServer(t, "ocr", newTestDeps(t))

	resp := postFile(t, srv.URL+"/convert-to-excel", "file", "scan.png", []byte("png"), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	readBody(t, resp)

	resp = postFile(t, srv.URL+"/convert-to-excel", "file", "table.pdf", []byte("pdf"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := readBody(t, resp)
	assert.Equal(t, `attachment; filename="table.xlsx"`, resp.Header.Get("Content-Disposition"))

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Name", "Age"}, {"Kim", "30"}}, rows)
}

const jobsPage = `<html><body><ul>
<li class="c_col">
  <a class="cpname">서울병원</a>
  <div class="cell_mid">
    <div class="cl_top"><a href="/jobdb_info/1">간호사 모집</a></div>
    <div class="cl_md"><span>서울</span></div>
  </div>
</li>
</ul></body></html>`

func TestJobsSearchAndDownload(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(jobsPage))
	}))
	defer upstream.Close()

	deps := newTestDeps(t)
	deps.Jobs = jobs.NewClient(jobs.WithBaseURL(upstream.URL))
	deps.JobPages = 1
	srv := newTestServer(t, "jobs", deps)

	resp, err := http.Get(srv.URL + "/search?keyword=" + "%EA%B0%84%ED%98%B8%EC%82%AC")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeMap(t, resp)
	assert.Equal(t, "간호사", body["keyword"])
	assert.EqualValues(t, 1, body["count"])

	resp, err = http.Get(srv.URL + "/search")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	readBody(t, resp)

	resp, err = http.Get(srv.URL + "/download?keyword=nurse")
	require.NoError(t, err)
	csv := string(readBody(t, resp))
	assert.Equal(t, `attachment; filename="jobs.csv"`, resp.Header.Get("Content-Disposition"))
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, csv, "회사이름,공고제목,회사위치,자세히보기")
	assert.Contains(t, csv, "서울병원,간호사 모집,서울,"+upstream.URL+"/jobdb_info/1")
}

func TestWordCloudUpload(t *testing.T) {
	srv := newTestServer(t, "wordcloud", newTestDeps(t))

	resp := postFile(t, srv.URL+"/upload", "file", "notes.md",
		[]byte("golang golang golang is a great language and golang tooling is great"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeMap(t, resp)
	name := body["filename"].(string)
	assert.Regexp(t, `^wordcloud_\d{8}_\d{6}_[0-9a-f]{8}\.png$`, name)
	assert.Equal(t, "/download/"+name, body["download_url"])

	s, ok := body["sentiment"].(map[string]any)
	require.True(t, ok, "sentiment should be attached")
	assert.Equal(t, "positive", s["sentiment"])

	dl, err := http.Get(srv.URL + "/download/" + name)
	require.NoError(t, err)
	png := readBody(t, dl)
	assert.Equal(t, "image/png", dl.Header.Get("Content-Type"))
	assert.Equal(t, []byte("\x89PNG"), png[:4])

	resp = postFile(t, srv.URL+"/upload", "file", "notes.docx", []byte("x"), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	readBody(t, resp)

	resp = postFile(t, srv.URL+"/upload", "file", "empty.txt", []byte("  \n"), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	readBody(t, resp)
}

func TestWordCloudCrawlValidation(t *testing.T) {
	srv := newTestServer(t, "wordcloud", newTestDeps(t))

	resp := postJSON(t, srv.URL+"/crawl", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "no URL provided", decodeMap(t, resp)["error"])

	resp = postJSON(t, srv.URL+"/crawl", `{"url":"  "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "please enter a URL", decodeMap(t, resp)["error"])
}

func TestWordCloudCrawl(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><body><script>var x;</script><p>rivers rivers mountains</p></body></html>`))
	}))
	defer page.Close()

	srv := newTestServer(t, "wordcloud", newTestDeps(t))
	resp := postJSON(t, srv.URL+"/crawl", fmt.Sprintf(`{"url":%q}`, page.URL))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decodeMap(t, resp)["success"])
}

func TestDecodeText(t *testing.T) {
	got, err := DecodeText([]byte("\ufeff안녕"))
	require.NoError(t, err)
	assert.Equal(t, "안녕", got)

	cp949, err := korean.EUCKR.NewEncoder().Bytes([]byte("한국어 텍스트"))
	require.NoError(t, err)
	got, err = DecodeText(cp949)
	require.NoError(t, err)
	assert.Equal(t, "한국어 텍스트", got)

	_, err = DecodeText([]byte{0xff, 0xff, 0xff})
	assert.True(t, apperr.IsKind(err, apperr.KindInvalid))

	_, err = DecodeText([]byte(" \n"))
	assert.True(t, apperr.IsKind(err, apperr.KindInvalid))
}

func TestSentimentAnalyze(t *testing.T) {
	srv := newTestServer(t, "sentiment", newTestDeps(t))

	resp, err := http.Get(srv.URL + "/api")
	require.NoError(t, err)
	assert.Equal(t, "lexicon", decodeMap(t, resp)["analyzer"])

	resp = postJSON(t, srv.URL+"/analyze", `{"text":"this is a terrible awful day"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decodeMap(t, resp)["result"].(map[string]any)
	assert.Equal(t, "negative", res["sentiment"])
	assert.Less(t, res["polarity"].(float64), 0.0)

	resp = postJSON(t, srv.URL+"/analyze", `{"text":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	readBody(t, resp)

	resp = postFile(t, srv.URL+"/upload", "file", "review.txt", []byte("I love it, wonderful"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res = decodeMap(t, resp)["result"].(map[string]any)
	assert.Equal(t, "positive", res["sentiment"])
}

func TestWeatherAPI(t *testing.T) {
	status := http.StatusOK
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(`{"name":"Gumi","weather":[{"description":"맑음","icon":"01d"}],
			"main":{"temp":21.04,"feels_like":20.5,"temp_min":19,"temp_max":23,"humidity":40,"pressure":1012},
			"wind":{"speed":3.14},"clouds":{"all":5},"visibility":10000}`))
	}))
	defer upstream.Close()

	deps := newTestDeps(t)
	deps.Weather = weather.NewClient("key", weather.WithBaseURL(upstream.URL), weather.WithCache(cache.NewMemory()))
	srv := newTestServer(t, "weather", deps)

	resp, err := http.Get(srv.URL + "/api/weather?lat=36.2&lon=")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	readBody(t, resp)

	resp, err = http.Get(srv.URL + "/api/weather?lat=36.2&lon=128.3")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeMap(t, resp)
	assert.Equal(t, "Gumi", body["location"])
	assert.Equal(t, 21.0, body["temp"])
	assert.Equal(t, 10.0, body["visibility"])

	status = http.StatusUnauthorized
	resp, err = http.Get(srv.URL + "/api/weather?lat=1&lon=2")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, false, decodeMap(t, resp)["success"])
}

func TestQRCode(t *testing.T) {
	srv := newTestServer(t, "qr", newTestDeps(t))

	resp, err := http.PostForm(srv.URL+"/", map[string][]string{"qr_data": {"  "}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	readBody(t, resp)

	resp, err = http.PostForm(srv.URL+"/", map[string][]string{"qr_data": {"https://example.com"}})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeMap(t, resp)
	assert.Regexp(t, `^qrcode_\d{8}_\d{6}\.png$`, body["filename"])

	resp, err = http.Get(srv.URL + "/download/qrcode_19990101_000000.png")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	readBody(t, resp)
}

func TestYouTube(t *testing.T) {
	srv := newTestServer(t, "youtube", newTestDeps(t))

	resp := postJSON(t, srv.URL+"/download", `{"url":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	readBody(t, resp)

	resp = postJSON(t, srv.URL+"/download", `{"url":"https://www.youtube.com/watch?v=abc"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeMap(t, resp)
	assert.Equal(t, "clip", body["title"])
	assert.Equal(t, "clip_abc.m4a", body["audio_file"])
	assert.Equal(t, "clip_abc.mp4", body["video_file"])

	dl, err := http.Get(srv.URL + "/download-file/audio/clip_abc.m4a")
	require.NoError(t, err)
	assert.Equal(t, "stream", string(readBody(t, dl)))

	dl, err = http.Get(srv.URL + "/download-file/subtitle/clip_abc.m4a")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, dl.StatusCode)
	readBody(t, dl)

	dl, err = http.Get(srv.URL + "/download-file/video/other.mp4")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, dl.StatusCode)
	readBody(t, dl)
}
