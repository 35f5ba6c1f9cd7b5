package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"codeberg.org/snonux/toolbelt/internal/logger"
)

//go:embed pages/*.md
var pageFS embed.FS

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
)

var shell = template.Must(template.New("page").Parse(`<!doctype html>
<html lang="ko">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<base href="{{.Base}}/">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; }
form { margin: 1rem 0; }
pre { background: #f4f4f4; padding: 1rem; white-space: pre-wrap; }
table { border-collapse: collapse; } td, th { border: 1px solid #ccc; padding: .3rem .6rem; }
</style>
</head>
<body>
{{.Body}}
<pre id="result"></pre>
<script>
const out = document.getElementById('result');
document.querySelectorAll('form[data-endpoint]').forEach(form => {
  form.addEventListener('submit', async ev => {
    ev.preventDefault();
    out.textContent = '...';
    const kind = form.dataset.kind;
    let url = form.dataset.endpoint, opts = {method: 'POST'};
    if (kind === 'json') {
      opts.headers = {'Content-Type': 'application/json'};
      opts.body = JSON.stringify(Object.fromEntries(new FormData(form)));
    } else if (kind === 'query') {
      url += '?' + new URLSearchParams(new FormData(form));
      opts.method = 'GET';
    } else if (kind === 'form') {
      opts.body = new URLSearchParams(new FormData(form));
    } else {
      opts.body = new FormData(form);
    }
    const res = await fetch(url, opts);
    const type = res.headers.get('Content-Type') || '';
    if (form.dataset.download && res.ok && !type.startsWith('application/json')) {
      const a = document.createElement('a');
      a.href = URL.createObjectURL(await res.blob());
      const m = /filename="([^"]+)"/.exec(res.headers.get('Content-Disposition') || '');
      a.download = m ? m[1] : 'download';
      a.click();
      out.textContent = 'Downloaded ' + a.download;
      return;
    }
    const data = await res.json();
    out.textContent = JSON.stringify(data, null, 2);
    if (data.download_url) {
      out.append('\n');
      const a = document.createElement('a');
      a.href = data.download_url; a.textContent = 'Download';
      out.append(a);
    }
  });
});
</script>
</body>
</html>
`))

type page struct {
	Base  string
	Title string
	Body  template.HTML
}

var (
	pageMu    sync.Mutex
	pageCache = map[string][]byte{}
)

// renderPage renders pages/<name>.md inside the HTML shell. base is the
// mount prefix of the app ("" when it owns the root).
func renderPage(name, title, base string) ([]byte, error) {
	key := name + "|" + base
	pageMu.Lock()
	defer pageMu.Unlock()
	if out, ok := pageCache[key]; ok {
		return out, nil
	}

	src, err := pageFS.ReadFile("pages/" + name + ".md")
	if err != nil {
		return nil, fmt.Errorf("unknown page %s: %w", name, err)
	}
	var body bytes.Buffer
	if err := markdown.Convert(src, &body); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}

	var out bytes.Buffer
	if err := shell.Execute(&out, page{Base: base, Title: title, Body: template.HTML(body.String())}); err != nil {
		return nil, err
	}
	pageCache[key] = out.Bytes()
	return out.Bytes(), nil
}

func pageHandler(name, title, base string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := renderPage(name, title, base)
		if err != nil {
			logger.L().Error("page.render_failed", "page", name, "error", err)
			errorJSON(w, http.StatusInternalServerError, "failed to render page")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(out)
	}
}
