// Package http implements the HTTP job API for lrcdrill.
//
// Clients upload a recording and its LRC transcript, the server builds the
// learning track synchronously and answers with a job.Result. The finished
// track and its companion timeline stay downloadable by job ID.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/nadzzz/lrcdrill/docs" // registers the OpenAPI spec
	"github.com/nadzzz/lrcdrill/internal/config"
	"github.com/nadzzz/lrcdrill/internal/job"
	"github.com/nadzzz/lrcdrill/internal/pipeline"
	"github.com/nadzzz/lrcdrill/internal/transport"
	"github.com/nadzzz/lrcdrill/internal/tts"
)

var _ transport.Transport = (*Transport)(nil)

// JobService runs jobs and locates their files.
type JobService interface {
	Handle(ctx context.Context, req *job.Request) (*job.Result, error)
	UploadDir(id string) (string, error)
	Track(id string) (string, error)
	Timeline(id string) (string, error)
	Discard(id string)
}

// Transport implements transport.Transport over HTTP.
type Transport struct {
	cfg    config.ServerConfig
	jobs   JobService
	server *http.Server
}

// New creates a new HTTP transport.
func New(cfg config.ServerConfig, jobs JobService) *Transport {
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 100
	}
	return &Transport{cfg: cfg, jobs: jobs}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Router builds the API routes.
func (t *Transport) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: t.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/languages", t.handleLanguages)
		r.Get("/jobs/{id}/audio", t.handleAudio)
		r.Get("/jobs/{id}/timeline", t.handleTimeline)

		submit := r.With()
		if t.cfg.RateLimit > 0 {
			submit = r.With(httprate.LimitByIP(t.cfg.RateLimit, time.Minute))
		}
		submit.Post("/jobs", t.handleSubmit)
	})

	// Swagger UI for the registered OpenAPI docs.
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return r
}

// Listen starts the HTTP server.
func (t *Transport) Listen(ctx context.Context) error {
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.cfg.HTTPPort),
		Handler:           t.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http transport listening", "port", t.cfg.HTTPPort)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.server.Shutdown(shutdownCtx)
	}()

	if err := t.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// handleSubmit processes a POST /v1/jobs request.
//
// @Summary     Build a learning track
// @Description Uploads a recording and its LRC transcript. Every transcript line is cut from the
// @Description recording, spoken in the target language and bracketed by the original clip.
// @Description The request blocks until the track is built.
// @Tags        jobs
// @Accept      multipart/form-data
// @Produce     json
// @Param       audio   formData  file    true   "Source recording"
// @Param       lrc     formData  file    true   "LRC transcript"
// @Param       lang    formData  string  false  "Target language tag (e.g. ru-RU)"
// @Param       repeat  formData  int     false  "Original clip repetitions on each side"
// @Param       max     formData  int     false  "Process only the first N lines"
// @Success     200  {object}  job.Result    "Finished job"
// @Failure     400  {object}  errorResponse "Invalid form"
// @Failure     413  {object}  errorResponse "Upload too large"
// @Failure     422  {object}  errorResponse "Transcript has no usable lines"
// @Failure     429  {object}  errorResponse "Rate limited"
// @Failure     500  {object}  errorResponse "Processing error"
// @Router      /v1/jobs [post]
func (t *Transport) handleSubmit(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(t.cfg.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d MB", t.cfg.MaxUploadMB))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	req := &job.Request{
		ID:        uuid.NewString(),
		Language:  strings.TrimSpace(r.FormValue("lang")),
		Timestamp: time.Now().UTC(),
	}
	var err error
	if req.Repeat, err = optionalInt(r, "repeat"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.MaxSegments, err = optionalInt(r, "max"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	audioHeader, err := formFile(r, "audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	lrcHeader, err := formFile(r, "lrc")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Nothing touches the work dir until the form is known to be complete.
	dir, err := t.jobs.UploadDir(req.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	req.AudioName = audioHeader.Filename
	req.AudioPath = filepath.Join(dir, "source"+audioExt(audioHeader.Filename))
	req.LRCPath = filepath.Join(dir, "transcript.lrc")
	uploads := []struct {
		fh  *multipart.FileHeader
		dst string
	}{{audioHeader, req.AudioPath}, {lrcHeader, req.LRCPath}}
	for _, u := range uploads {
		if err := saveUpload(u.fh, u.dst); err != nil {
			t.jobs.Discard(req.ID)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	result, err := t.jobs.Handle(r.Context(), req)
	if err != nil {
		slog.Error("job failed", "job_id", req.ID, "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleAudio streams a finished track.
//
// @Summary     Download a learning track
// @Tags        jobs
// @Produce     audio/mpeg
// @Param       id   path  string  true  "Job ID"
// @Success     200  {file}    binary         "MP3 track"
// @Failure     404  {object}  errorResponse  "Unknown job"
// @Router      /v1/jobs/{id}/audio [get]
func (t *Transport) handleAudio(w http.ResponseWriter, r *http.Request) {
	t.serveJobFile(w, r, t.jobs.Track, "audio/mpeg", job.TrackFile)
}

// handleTimeline serves the companion LRC of a finished track.
//
// @Summary     Download the track timeline
// @Tags        jobs
// @Produce     plain
// @Param       id   path  string  true  "Job ID"
// @Success     200  {string}  string         "LRC timeline"
// @Failure     404  {object}  errorResponse  "Unknown job"
// @Router      /v1/jobs/{id}/timeline [get]
func (t *Transport) handleTimeline(w http.ResponseWriter, r *http.Request) {
	t.serveJobFile(w, r, t.jobs.Timeline, "text/plain; charset=utf-8", job.TimelineFile)
}

func (t *Transport) serveJobFile(w http.ResponseWriter, r *http.Request, lookup func(string) (string, error), contentType, name string) {
	path, err := lookup(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}

// handleLanguages lists the language tags with a known display name.
//
// @Summary     List languages
// @Tags        languages
// @Produce     json
// @Success     200  {array}  tts.Language
// @Router      /v1/languages [get]
func (t *Transport) handleLanguages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, tts.Languages())
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

// statusFor maps pipeline error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrEmptyTranscript), errors.Is(err, pipeline.ErrInputNotFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrCapabilityUnavailable), errors.Is(err, pipeline.ErrConfigurationMissing):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		return 499 // client closed request
	default:
		return http.StatusInternalServerError
	}
}

func optionalInt(r *http.Request, field string) (*int, error) {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%s must be a non-negative integer, got %q", field, raw)
	}
	return &n, nil
}

func formFile(r *http.Request, field string) (*multipart.FileHeader, error) {
	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		return nil, fmt.Errorf("missing %q file", field)
	}
	return files[0], nil
}

func saveUpload(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return fmt.Errorf("opening upload: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("storing upload: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("storing upload: %w", err)
	}
	return out.Close()
}

// audioExt keeps a short alphanumeric extension from the client filename so
// ffmpeg can pick the demuxer; anything else becomes .bin.
func audioExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 6 {
		return ".bin"
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ".bin"
		}
	}
	return ext
}
