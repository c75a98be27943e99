package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"
)

const editor = `<textarea id="src" rows="10" cols="40"></textarea>`

// tableScript draws the textarea content on a canvas a moment after every input event.
const tableScript = `<script>
document.addEventListener('input', (ev) => {
	if (ev.target.id !== 'src') return;
	const src = ev.target;
	setTimeout(() => {
		const out = document.getElementById('output');
		out.innerHTML = '';
		const canvas = document.createElement('canvas');
		canvas.width = 480;
		canvas.height = 240;
		const g = canvas.getContext('2d');
		const grad = g.createLinearGradient(0, 0, 480, 240);
		grad.addColorStop(0, '#b03030');
		grad.addColorStop(1, '#3030b0');
		g.fillStyle = grad;
		g.fillRect(0, 0, 480, 240);
		g.fillStyle = '#fff';
		g.font = '20px Arial';
		src.value.split('\n').forEach((line, i) => g.fillText(line, 16, 32 + i * 28));
		out.appendChild(canvas);
	}, 100);
});
</script>`

const pageTemplate = `<!DOCTYPE html>
<html>
<head><title>table</title></head>
<body>
<div id="consent"><button onclick="document.getElementById('consent').remove()">Accept all</button></div>
%s
<div id="output"></div>
%s
</body>
</html>`

// TablePage mimics the external table page: a textarea whose content is drawn
// on a canvas a moment after every input event, behind a consent banner.
var TablePage = fmt.Sprintf(pageTemplate, editor, tableScript)

// LateTablePage is TablePage with the textarea fetched after the document loaded,
// so it only exists once the page's network has settled.
var LateTablePage = fmt.Sprintf(pageTemplate, `<div id="editor"></div>
<script>
window.addEventListener('load', () => {
	fetch('/editor').then(r => r.text()).then(html => {
		document.getElementById('editor').innerHTML = html;
	});
});
</script>`, tableScript)

// EditorDelay is how long /editor takes to answer.
const EditorDelay = 300 * time.Millisecond

// NewTableSite serves TablePage at /table and LateTablePage at /table-late.
func NewTableSite() *httptest.Server {
	html := func(page string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(page))
		}
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/table", html(TablePage))
	mux.HandleFunc("/table-late", html(LateTablePage))
	mux.HandleFunc("/editor", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(EditorDelay):
		case <-r.Context().Done():
			return
		}
		html(editor)(w, r)
	})
	return httptest.NewServer(mux)
}
