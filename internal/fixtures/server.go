package fixtures

import (
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// Server serves pages with known rendering and load behaviour for capture
// tests and manual checks.
type Server struct {
	cfg    Config
	pages  map[string]Page
	router chi.Router
}

// New creates a fixture server.
func New(cfg Config) *Server {
	s := &Server{cfg: cfg, pages: make(map[string]Page)}
	for _, p := range Pages() {
		s.pages[p.Path] = p
	}

	r := chi.NewRouter()
	r.Get("/", s.indexHandler)
	for path := range s.pages {
		r.Get(path, s.pageHandler(path))
	}
	r.Get("/hanging", s.hangingHandler)
	r.Get("/stall.png", s.stallHandler)
	r.Get("/slow", s.slowHandler)
	r.Get("/status/{code}", s.statusHandler)
	s.router = r
	return s
}

// Handler exposes the routes, e.g. for httptest.NewServer.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	fmt.Printf("Fixture server starting on http://localhost%s\n", addr)
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	return srv.ListenAndServe()
}

func (s *Server) pageHandler(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := s.pages[path]
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(p.HTML))
	}
}

func (s *Server) hangingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(hangingHTML))
}

// stallHandler never completes its body until the client leaves or HangFor
// elapses.
func (s *Server) stallHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	var timeout <-chan time.Time
	if s.cfg.HangFor > 0 {
		t := time.NewTimer(s.cfg.HangFor)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case <-r.Context().Done():
	case <-timeout:
	}
}

// slowHandler delays the whole response by ?ms= milliseconds.
func (s *Server) slowHandler(w http.ResponseWriter, r *http.Request) {
	delay := s.cfg.SlowDelay
	if ms, err := strconv.Atoi(r.URL.Query().Get("ms")); err == nil && ms >= 0 {
		delay = time.Duration(ms) * time.Millisecond
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-r.Context().Done():
		return
	case <-t.C:
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(slowHTML))
}

// statusHandler answers with the given status and a small HTML body.
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(chi.URLParam(r, "code"))
	if err != nil || code < 200 || code > 599 {
		http.Error(w, "invalid status code", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	fmt.Fprintf(w, "<html><head><title>%d</title></head><body><h1>%d %s</h1></body></html>", code, code, http.StatusText(code))
}

var indexTmpl = template.Must(template.New("index").Parse(indexHTML))

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Pages []Page
		Port  int
	}{Pages: Pages(), Port: s.cfg.Port}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = indexTmpl.Execute(w, data)
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Capture fixtures</title>
    <style>
        body { font-family: system-ui, -apple-system, sans-serif; max-width: 900px; margin: 0 auto; padding: 20px; background: #f5f5f5; }
        h1 { color: #333; border-bottom: 2px solid #007bff; padding-bottom: 10px; }
        .page-card { background: white; border-radius: 8px; padding: 15px 20px; margin: 12px 0; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .page-path { font-weight: bold; color: #007bff; text-decoration: none; }
        .page-desc { color: #666; margin: 5px 0 0; }
    </style>
</head>
<body>
    <h1>Capture fixtures</h1>
    {{range .Pages}}
    <div class="page-card">
        <a href="{{.Path}}" class="page-path">{{.Path}}</a>
        <p class="page-desc">{{.Description}}</p>
    </div>
    {{end}}
    <div class="page-card">
        <a href="/hanging" class="page-path">/hanging</a>
        <p class="page-desc">Paints immediately but never fires the load event.</p>
    </div>
    <div class="page-card">
        <a href="/slow?ms=3000" class="page-path">/slow?ms=3000</a>
        <p class="page-desc">Delays the whole response.</p>
    </div>
    <div class="page-card">
        <a href="/status/404" class="page-path">/status/404</a>
        <p class="page-desc">Answers with the given HTTP status.</p>
    </div>
</body>
</html>`
