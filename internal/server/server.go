package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/raysh454/shutter/internal/app"
	"github.com/raysh454/shutter/internal/capture"
	"github.com/raysh454/shutter/internal/logging"
	_ "github.com/raysh454/shutter/internal/server/docs/swagger"
)

// maxLoggedBody caps request bodies copied into the access log; download
// requests carry whole images.
const maxLoggedBody = 512

// maxRequestBody bounds any request body the server reads.
const maxRequestBody = 8 << 20

// Server is the HTTP + WebSocket surface: the web UI, the JSON API and
// capture progress streams.
type Server struct {
	cfg          Config
	orchestrator *app.Orchestrator
	application  *app.Application
	router       chi.Router
	upgrader     websocket.Upgrader
	origins      *originPolicy
	logger       logging.Logger
}

// NewServer creates a Server. Unless cfg.Orchestrator is set it builds and
// owns an Application from cfg.AppConfig.
func NewServer(cfg Config) (*Server, error) {
	if cfg.AppConfig == nil {
		cfg.AppConfig = app.DefaultConfig()
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = cfg.AppConfig.ListenAddr
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStdoutLogger("server")
	}

	origins, err := newOriginPolicy(cfg.AppConfig.AllowedOrigins)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:     cfg,
		origins: origins,
		logger:  logger.With(logging.Field{Key: "component", Value: "server"}),
		upgrader: websocket.Upgrader{
			CheckOrigin: origins.checkUpgrade,
		},
	}

	if cfg.Orchestrator != nil {
		s.orchestrator = cfg.Orchestrator
	} else {
		a, err := app.NewApplication(cfg.AppConfig, logger)
		if err != nil {
			return nil, fmt.Errorf("creating application: %w", err)
		}
		s.application = a
		s.orchestrator = a.Orch
	}

	s.router = chi.NewRouter()
	s.routes()
	return s, nil
}

// Orchestrator returns the underlying orchestrator for advanced use (tests, etc.).
func (s *Server) Orchestrator() *app.Orchestrator {
	return s.orchestrator
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/api/captures", s.optionsHandler("GET, POST"))
	r.Options("/api/captures/{id}", s.optionsHandler("GET, DELETE"))
	r.Options("/api/captures/{id}/download", s.optionsHandler("GET"))
	r.Options("/api/download", s.optionsHandler("POST"))
	r.Options("/api/jobs", s.optionsHandler("GET, POST"))
	r.Options("/api/jobs/{jobID}", s.optionsHandler("GET, DELETE"))

	// Web UI
	r.Get("/", s.handleIndex)
	r.Post("/capture", s.handleCaptureForm)

	// JSON API
	r.Get("/api/status", s.handleStatus)
	r.Post("/api/captures", s.handleCapture)
	r.Get("/api/captures", s.handleHistory)
	r.Get("/api/captures/{id}", s.handleGetCapture)
	r.Delete("/api/captures/{id}", s.handleDeleteCapture)
	r.Get("/api/captures/{id}/download", s.handleDownloadCapture)
	r.Post("/api/download", s.handleDownload)

	// Jobs over REST
	r.Post("/api/jobs", s.handleStartJob)
	r.Get("/api/jobs", s.handleListJobs)
	r.Get("/api/jobs/{jobID}", s.handleGetJob)
	r.Delete("/api/jobs/{jobID}", s.handleCancelJob)

	// WebSocket for capture progress
	r.Get("/ws/captures", s.handleCaptureWS)

	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}

// corsMiddleware answers same-origin and configured origins only. A foreign
// origin gets no CORS headers and a 403 for anything but a plain read, so
// other sites can neither start captures nor read screenshots.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Origin")
		origin, ok := s.origins.check(r)
		if !ok {
			if (r.Method != http.MethodGet && r.Method != http.MethodHead) || websocket.IsWebSocketUpgrade(r) {
				s.logger.Warn("rejected cross-origin request",
					logging.Field{Key: "origin", Value: origin},
					logging.Field{Key: "path", Value: r.URL.Path})
				writeError(w, http.StatusForbidden, "cross-origin request not allowed")
				return
			}
			next.ServeHTTP(w, r)
			return
		}
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}

	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, logging.Field{Key: "query", Value: q})
	}

	if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) {
		bodyBytes, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				s.logger.Warn("request body too large", append(fields, logging.Field{Key: "limit", Value: tooLarge.Limit})...)
				writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
				return
			}
			s.logger.Warn("reading request body", append(fields, logging.Err(err))...)
			writeError(w, http.StatusBadRequest, "could not read request body")
			return
		}
		logged := string(bodyBytes)
		if len(logged) > maxLoggedBody {
			logged = logged[:maxLoggedBody] + "..."
		}
		fields = append(fields, logging.Field{Key: "body", Value: logged})
		r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	}

	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// Close shuts down the application when the server owns it.
func (s *Server) Close() {
	if s.application != nil {
		if err := s.application.Shutdown(context.Background()); err != nil {
			s.logger.Warn("application shutdown", logging.Err(err))
		}
	}
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      0, // allow streaming
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeCaptureError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), ErrorResponse{Error: err.Error(), Message: capture.UserMessage(err)})
}

// statusFor maps the capture error taxonomy to HTTP status codes.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, capture.ErrInvalidRequest), errors.Is(err, capture.ErrDecode):
		return http.StatusBadRequest
	case errors.Is(err, capture.ErrTargetDenied):
		return http.StatusForbidden
	case errors.Is(err, capture.ErrBrowserUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, capture.ErrCanceled):
		return http.StatusRequestTimeout
	case errors.Is(err, app.ErrJobNotFound), errors.Is(err, app.ErrResultNotFound):
		return http.StatusNotFound
	case errors.Is(err, app.ErrNoImage):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func writePNG(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// decodeCaptureRequest accepts JSON or form bodies.
func decodeCaptureRequest(r *http.Request) (capture.Request, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body CaptureRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return capture.Request{}, fmt.Errorf("%w: invalid JSON", capture.ErrInvalidRequest)
		}
		return capture.Request{URL: body.URL, Width: body.Width, Height: body.Height}, nil
	}
	if err := r.ParseForm(); err != nil {
		return capture.Request{}, fmt.Errorf("%w: invalid form", capture.ErrInvalidRequest)
	}
	return requestFromValues(r.FormValue("url"), r.FormValue("width"), r.FormValue("height"))
}

func requestFromValues(rawURL, width, height string) (capture.Request, error) {
	w, err := strconv.Atoi(strings.TrimSpace(width))
	if err != nil {
		return capture.Request{}, fmt.Errorf("%w: width must be a number", capture.ErrInvalidRequest)
	}
	h, err := strconv.Atoi(strings.TrimSpace(height))
	if err != nil {
		return capture.Request{}, fmt.Errorf("%w: height must be a number", capture.ErrInvalidRequest)
	}
	return capture.Request{URL: rawURL, Width: w, Height: h}, nil
}

// --- HTTP handlers ---

// handleStatus godoc
// @Summary Browser availability
// @Tags status
// @Produce json
// @Success 200 {object} StatusResponse
// @Router /api/status [get]
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) status() StatusResponse {
	return StatusResponse{
		Availability:          s.orchestrator.Status(),
		ActiveSessions:        s.orchestrator.ActiveSessions(),
		MaxConcurrentCaptures: s.orchestrator.Config().MaxConcurrentCaptures,
		Limits: Limits{
			MinWidth:  capture.MinWidth,
			MaxWidth:  capture.MaxWidth,
			MinHeight: capture.MinHeight,
			MaxHeight: capture.MaxHeight,
		},
	}
}

// handleCapture godoc
// @Summary Capture a screenshot
// @Description Runs one capture synchronously and returns the PNG as a data URI.
// @Tags captures
// @Accept json
// @Produce json
// @Param request body CaptureRequest true "Capture request"
// @Success 200 {object} app.CaptureSummary
// @Failure 400 {object} app.CaptureSummary
// @Failure 502 {object} app.CaptureSummary
// @Failure 503 {object} app.CaptureSummary
// @Router /api/captures [post]
func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCaptureRequest(r)
	if err != nil {
		writeCaptureError(w, err)
		return
	}

	res := s.orchestrator.Capture(r.Context(), req)
	if !res.OK() {
		s.logger.Warn("capture failed", logging.Field{Key: "capture_id", Value: res.ID}, logging.Err(res.Err))
	} else {
		s.logger.Info("captured", logging.Field{Key: "capture_id", Value: res.ID}, logging.Field{Key: "url", Value: res.Request.URL})
	}
	writeJSON(w, statusFor(res.Err), app.Summarize(res))
}

// handleHistory godoc
// @Summary Capture history
// @Tags captures
// @Produce json
// @Param limit query int false "Maximum entries"
// @Success 200 {array} journal.Entry
// @Router /api/captures [get]
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if ls := r.URL.Query().Get("limit"); ls != "" {
		if v, err := strconv.Atoi(ls); err == nil && v > 0 {
			limit = v
		}
	}
	entries, err := s.orchestrator.History(r.Context(), limit)
	if err != nil {
		s.logger.Warn("listing history", logging.Err(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleGetCapture godoc
// @Summary Get a retained capture
// @Tags captures
// @Produce json
// @Param id path string true "Capture ID"
// @Success 200 {object} app.CaptureSummary
// @Failure 404 {object} ErrorResponse
// @Router /api/captures/{id} [get]
func (s *Server) handleGetCapture(w http.ResponseWriter, r *http.Request) {
	res, err := s.orchestrator.Result(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, app.Summarize(res))
}

// handleDeleteCapture godoc
// @Summary Delete a capture
// @Description Removes the retained result, its history entry and its stored image.
// @Tags captures
// @Param id path string true "Capture ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /api/captures/{id} [delete]
func (s *Server) handleDeleteCapture(w http.ResponseWriter, r *http.Request) {
	if err := s.orchestrator.DeleteCapture(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDownloadCapture godoc
// @Summary Download a capture as PNG
// @Description Serves retained results and, when images are persisted, older history entries.
// @Tags captures
// @Produce png
// @Param id path string true "Capture ID"
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/captures/{id}/download [get]
func (s *Server) handleDownloadCapture(w http.ResponseWriter, r *http.Request) {
	data, filename, err := s.orchestrator.Image(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writePNG(w, filename, data)
}

// handleDownload godoc
// @Summary Decode a base64 image for download
// @Description Accepts the base64 payload (or data URI) of a capture and returns it as a PNG attachment named after the URL and current time.
// @Tags captures
// @Accept json
// @Produce png
// @Param request body DownloadRequest true "Image payload"
// @Success 200 {file} binary
// @Failure 400 {object} ErrorResponse
// @Router /api/download [post]
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var body DownloadRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form")
			return
		}
		body.Image, body.URL = r.FormValue("image"), r.FormValue("url")
	}

	data, err := capture.DecodeImage(body.Image)
	if err != nil {
		s.logger.Warn("decoding download payload", logging.Err(err))
		writeCaptureError(w, err)
		return
	}
	writePNG(w, capture.Filename(body.URL, time.Now()), data)
}

// Jobs (REST)

// handleStartJob godoc
// @Summary Start an asynchronous capture
// @Tags jobs
// @Accept json
// @Produce json
// @Param request body CaptureRequest true "Capture request"
// @Success 202 {object} app.Job
// @Failure 400 {object} ErrorResponse
// @Router /api/jobs [post]
func (s *Server) handleStartJob(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCaptureRequest(r)
	if err != nil {
		writeCaptureError(w, err)
		return
	}
	job, err := s.orchestrator.StartCapture(context.Background(), req)
	if err != nil {
		s.logger.Warn("starting capture job", logging.Err(err))
		writeCaptureError(w, err)
		return
	}
	s.logger.Info("started capture job", logging.Field{Key: "job_id", Value: job.ID})
	writeJSON(w, http.StatusAccepted, job)
}

// handleListJobs godoc
// @Summary List capture jobs
// @Tags jobs
// @Produce json
// @Success 200 {array} app.Job
// @Router /api/jobs [get]
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.orchestrator.ListJobs()
	writeJSON(w, http.StatusOK, jobs)
}

// handleGetJob godoc
// @Summary Get a capture job
// @Tags jobs
// @Produce json
// @Param jobID path string true "Job ID"
// @Success 200 {object} app.Job
// @Failure 404 {object} ErrorResponse
// @Router /api/jobs/{jobID} [get]
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		writeError(w, http.StatusNotFound, app.ErrJobNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleCancelJob godoc
// @Summary Cancel a capture job
// @Tags jobs
// @Param jobID path string true "Job ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /api/jobs/{jobID} [delete]
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if !s.orchestrator.CancelJob(jobID) {
		writeError(w, http.StatusNotFound, app.ErrJobNotFound.Error())
		return
	}
	s.logger.Info("canceled job", logging.Field{Key: "job_id", Value: jobID})
	w.WriteHeader(http.StatusNoContent)
}

// WebSockets

// handleCaptureWS streams a capture's job snapshot, its events and finally
// the result. Closing the socket cancels the capture.
func (s *Server) handleCaptureWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	width, height := q.Get("width"), q.Get("height")
	if width == "" {
		width = strconv.Itoa(capture.DefaultWidth)
	}
	if height == "" {
		height = strconv.Itoa(capture.DefaultHeight)
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Err(err))
		return
	}
	defer conn.Close()

	req, err := requestFromValues(q.Get("url"), width, height)
	if err == nil {
		var job *app.Job
		job, err = s.orchestrator.StartCapture(r.Context(), req)
		if err == nil {
			s.streamJob(conn, job)
			return
		}
	}
	s.logger.Warn("starting capture job", logging.Err(err))
	_ = conn.WriteJSON(ErrorResponse{Error: err.Error(), Message: capture.UserMessage(err)})
}

func (s *Server) streamJob(conn *websocket.Conn, job *app.Job) {
	s.logger.Info("started capture job", logging.Field{Key: "job_id", Value: job.ID})
	_ = conn.WriteJSON(job)

	for ev := range job.Events {
		if err := conn.WriteJSON(ev); err != nil {
			// Assume client disconnected; cancel job
			s.orchestrator.CancelJob(job.ID)
			for range job.Events {
			}
			return
		}
	}
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "capture finished"))
}
