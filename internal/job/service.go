package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/nadzzz/lrcdrill/internal/audio"
	"github.com/nadzzz/lrcdrill/internal/lyrics"
	"github.com/nadzzz/lrcdrill/internal/pipeline"
	"github.com/nadzzz/lrcdrill/internal/tts"
)

// ErrNotFound is returned for unknown job IDs.
var ErrNotFound = errors.New("job not found")

// Deliverable file names inside a job directory.
const (
	TrackFile    = "learning_audio.mp3"
	TimelineFile = "learning_audio.lrc"
)

// Publisher copies a finished file to shared storage and returns its URL.
type Publisher interface {
	Publish(ctx context.Context, key, path, contentType string) (string, error)
}

// Service runs jobs. Each job gets its own directory under the work dir.
type Service struct {
	audio     audio.Toolkit
	synth     tts.Synthesizer
	defaults  pipeline.Options
	workDir   string
	publisher Publisher
}

// NewService creates a Service. publisher may be nil.
func NewService(tk audio.Toolkit, synth tts.Synthesizer, defaults pipeline.Options, workDir string, publisher Publisher) *Service {
	return &Service{
		audio:     tk,
		synth:     synth,
		defaults:  defaults,
		workDir:   workDir,
		publisher: publisher,
	}
}

// Handle parses the transcript, runs the pipeline and publishes the result.
// Pipeline errors are returned unchanged so callers can classify them. A
// failed job leaves nothing on disk; a finished one keeps only its track and
// timeline.
func (s *Service) Handle(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()
	logger := slog.With("job_id", req.ID)

	tr, err := lyrics.ParseFile(req.LRCPath)
	if err != nil {
		s.Discard(req.ID)
		return nil, fmt.Errorf("%w: %w", pipeline.ErrInputNotFound, err)
	}

	opts := s.defaults
	if req.Language != "" {
		opts.Language = req.Language
	}
	if req.Repeat != nil {
		opts.Repeat = *req.Repeat
	}
	if req.MaxSegments != nil {
		opts.MaxSegments = *req.MaxSegments
	}
	// Jobs always get a timeline; it is cheap and the API serves it.
	opts.Timeline = true

	logger.Info("job started", "lines", len(tr.Lines), "language", opts.Language, "audio", req.AudioName)

	output := filepath.Join(s.dir(req.ID), TrackFile)
	p := pipeline.New(s.audio, s.synth, opts)
	res, err := p.Run(ctx, tr.Lines, req.AudioPath, output)
	if err != nil {
		logger.Error("job failed", "error", err)
		s.Discard(req.ID)
		return nil, err
	}
	// The uploads are not needed once the deliverable exists.
	if err := os.RemoveAll(s.uploadDir(req.ID)); err != nil {
		logger.Warn("removing uploads", "error", err)
	}

	effective := p.Options()
	result := &Result{
		JobID:           req.ID,
		Title:           tr.Title,
		Artist:          tr.Artist,
		Language:        effective.Language,
		Repeat:          effective.Repeat,
		Lines:           res.Lines,
		Fallbacks:       res.Fallbacks,
		DurationSeconds: res.Duration.Seconds(),
		Size:            res.Size,
		SizeHuman:       humanize.Bytes(uint64(res.Size)),
		AudioURL:        "/v1/jobs/" + req.ID + "/audio",
		CreatedAt:       start.UTC(),
	}
	if result.Fallbacks == nil {
		result.Fallbacks = []int{}
	}
	if res.Timeline != "" {
		result.TimelineURL = "/v1/jobs/" + req.ID + "/timeline"
	}

	if s.publisher != nil {
		s.publish(ctx, logger, req.ID, res, result)
	}

	logger.Info("job complete", "duration", time.Since(start), "fallbacks", len(res.Fallbacks))
	return result, nil
}

// publish uploads the track and timeline. Failures are logged; the files
// stay downloadable from the API.
func (s *Service) publish(ctx context.Context, logger *slog.Logger, id string, res *pipeline.Result, result *Result) {
	url, err := s.publisher.Publish(ctx, id+"/"+TrackFile, res.Output, "audio/mpeg")
	if err != nil {
		logger.Warn("publishing track failed", "error", err)
		return
	}
	result.PublishedURL = url
	logger.Info("track published", "url", url)

	if res.Timeline == "" {
		return
	}
	url, err = s.publisher.Publish(ctx, id+"/"+TimelineFile, res.Timeline, "text/plain; charset=utf-8")
	if err != nil {
		logger.Warn("publishing timeline failed", "error", err)
		return
	}
	result.PublishedTimelineURL = url
}

// Track returns the deliverable of a finished job.
func (s *Service) Track(id string) (string, error) {
	return s.file(id, TrackFile)
}

// Timeline returns the companion LRC of a finished job.
func (s *Service) Timeline(id string) (string, error) {
	return s.file(id, TimelineFile)
}

// UploadDir returns (and creates) the directory uploads for a job go to.
func (s *Service) UploadDir(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("invalid job id %q", id)
	}
	dir := s.uploadDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating upload dir: %w", err)
	}
	return dir, nil
}

// Discard removes everything stored for a job. Jobs that fail are discarded
// by Handle; callers discard jobs they abandon before calling Handle.
func (s *Service) Discard(id string) {
	if _, err := uuid.Parse(id); err != nil {
		return
	}
	if err := os.RemoveAll(s.dir(id)); err != nil {
		slog.Warn("removing job directory", "job_id", id, "error", err)
	}
}

func (s *Service) uploadDir(id string) string {
	return filepath.Join(s.dir(id), "upload")
}

func (s *Service) file(id, name string) (string, error) {
	// Only well-formed IDs reach the filesystem.
	if _, err := uuid.Parse(id); err != nil {
		return "", ErrNotFound
	}
	path := filepath.Join(s.dir(id), name)
	if _, err := os.Stat(path); err != nil {
		return "", ErrNotFound
	}
	return path, nil
}

func (s *Service) dir(id string) string {
	return filepath.Join(s.workDir, id)
}
