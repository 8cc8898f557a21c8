package server

import (
	"html/template"
	"net/http"

	"github.com/raysh454/shutter/internal/app"
	"github.com/raysh454/shutter/internal/capture"
	"github.com/raysh454/shutter/internal/logging"
)

var indexTmpl = template.Must(template.New("index").Parse(indexHTML))

type indexPage struct {
	Status StatusResponse

	URL    string
	Width  int
	Height int

	Result *app.CaptureSummary
	// Preview is the result's data URI, marked safe for the img src.
	Preview template.URL

	Notice     string
	NoticeOK   bool
	Diagnostic string
}

func (s *Server) renderIndex(w http.ResponseWriter, page indexPage) {
	page.Status = s.status()
	if page.Result != nil && page.Result.Image != "" {
		page.Preview = template.URL(page.Result.Image)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, page); err != nil {
		s.logger.Warn("rendering index", logging.Err(err))
	}
}

// handleIndex serves the capture form. ?id= shows a retained result,
// otherwise the latest successful one is previewed.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := indexPage{
		URL:    "https://example.com",
		Width:  capture.DefaultWidth,
		Height: capture.DefaultHeight,
	}
	if id := r.URL.Query().Get("id"); id != "" {
		if res, err := s.orchestrator.Result(id); err == nil {
			page.URL, page.Width, page.Height = res.Request.URL, res.Request.Width, res.Request.Height
			page.Result = app.Summarize(res)
			page.Notice, page.NoticeOK = res.Message(), res.OK()
			page.Diagnostic = res.Diagnostic()
		} else {
			page.Notice = "That capture is no longer available."
		}
	} else if res := s.orchestrator.LatestResult(); res != nil {
		page.URL, page.Width, page.Height = res.Request.URL, res.Request.Width, res.Request.Height
		page.Result = app.Summarize(res)
	}
	s.renderIndex(w, page)
}

// handleCaptureForm runs a capture from the form and renders the outcome.
// A failed capture leaves the form values in place and shows no image.
func (s *Server) handleCaptureForm(w http.ResponseWriter, r *http.Request) {
	page := indexPage{
		URL:    r.FormValue("url"),
		Width:  capture.DefaultWidth,
		Height: capture.DefaultHeight,
	}

	req, err := requestFromValues(r.FormValue("url"), r.FormValue("width"), r.FormValue("height"))
	if err != nil {
		page.Notice = capture.UserMessage(err)
		page.Diagnostic = err.Error()
		s.renderIndex(w, page)
		return
	}
	page.Width, page.Height = req.Width, req.Height

	res := s.orchestrator.Capture(r.Context(), req)
	page.Result = app.Summarize(res)
	page.Notice, page.NoticeOK = res.Message(), res.OK()
	page.Diagnostic = res.Diagnostic()
	if !res.OK() {
		s.logger.Warn("capture failed", logging.Field{Key: "capture_id", Value: res.ID}, logging.Err(res.Err))
	}
	s.renderIndex(w, page)
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>shutter</title>
    <style>
        body { font-family: system-ui, -apple-system, sans-serif; max-width: 1100px; margin: 0 auto; padding: 20px; background: #f5f5f5; }
        h1 { color: #333; border-bottom: 2px solid #007bff; padding-bottom: 10px; }
        .card { background: white; border-radius: 8px; padding: 20px; margin: 15px 0; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .status { padding: 10px; border-radius: 4px; }
        .status.ok { background: #d4edda; color: #155724; }
        .status.down { background: #f8d7da; color: #721c24; }
        .notice { padding: 10px; border-radius: 4px; margin-top: 10px; }
        .notice.success { background: #d4edda; color: #155724; }
        .notice.error { background: #f8d7da; color: #721c24; }
        label { display: inline-block; margin-right: 15px; }
        input[type=url] { width: 420px; }
        input[type=number] { width: 90px; }
        button { padding: 8px 16px; border: none; border-radius: 4px; cursor: pointer; background: #007bff; color: white; }
        button:disabled { background: #9bbce0; cursor: not-allowed; }
        #progress { display: none; color: #666; margin-left: 10px; }
        .preview img { max-width: 100%; border: 1px solid #ddd; }
        details pre { white-space: pre-wrap; background: #f8f9fa; padding: 10px; }
    </style>
</head>
<body>
    <h1>shutter</h1>

    <div id="status" class="status {{if .Status.Available}}ok{{else}}down{{end}}">{{.Status.Message}}</div>

    <div class="card">
        <form method="post" action="/capture" onsubmit="document.getElementById('capture-btn').disabled = true; document.getElementById('progress').style.display = 'inline';">
            <label>URL <input type="url" name="url" value="{{.URL}}" required></label>
            <label>Width <input type="number" name="width" value="{{.Width}}" min="{{.Status.Limits.MinWidth}}" max="{{.Status.Limits.MaxWidth}}"></label>
            <label>Height <input type="number" name="height" value="{{.Height}}" min="{{.Status.Limits.MinHeight}}" max="{{.Status.Limits.MaxHeight}}"></label>
            <button id="capture-btn" type="submit">Capture</button>
            <span id="progress">Capturing...</span>
        </form>
        {{if .Notice}}<div id="notice" class="notice {{if .NoticeOK}}success{{else}}error{{end}}">{{.Notice}}</div>{{end}}
    </div>

    {{with .Result}}{{if .Image}}
    <div class="card preview">
        <img id="preview" src="{{$.Preview}}" alt="Screenshot of {{.Request.URL}}">
        <p>{{if .Title}}<strong>{{.Title}}</strong> &middot; {{end}}{{.ImageWidth}}&times;{{.ImageHeight}} &middot; {{.DurationMs}} ms{{if .LoadTimedOut}} &middot; load event not observed{{end}}</p>
        <form method="post" action="/api/download">
            <input type="hidden" name="image" value="{{.Image}}">
            <input type="hidden" name="url" value="{{.Request.URL}}">
            <button type="submit">Download {{.Filename}}</button>
        </form>
    </div>
    {{end}}{{end}}

    {{if .Diagnostic}}
    <details class="card" id="debug">
        <summary>Details</summary>
        <pre>{{.Diagnostic}}</pre>
    </details>
    {{end}}
</body>
</html>`
