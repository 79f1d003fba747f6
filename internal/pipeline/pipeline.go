// Package pipeline turns a timed transcript and its recording into a
// language-learning track.
//
// For every line the matching interval is cut from the recording, the line
// text is synthesized in the target language, and a composite is assembled:
// the original clip Repeat times, the synthesized clip, then the original
// clip Repeat times again. Composites are joined in line order into the
// deliverable. A failed synthesis never aborts the run; the line gets one
// second of silence instead. Every other audio failure is fatal.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nadzzz/lrcdrill/internal/audio"
	"github.com/nadzzz/lrcdrill/internal/config"
	"github.com/nadzzz/lrcdrill/internal/lyrics"
	"github.com/nadzzz/lrcdrill/internal/tts"
)

// SilenceDuration is the length of the clip that stands in for a failed
// synthesis.
const SilenceDuration = time.Second

// Options controls a run.
type Options struct {
	Language    string
	Repeat      int // original clip repetitions on each side of the target clip
	MaxSegments int // 0 processes every line
	Workers     int
	TempRoot    string
	KeepTemp    bool
	Timeline    bool // write a companion .lrc next to the deliverable
	MatchVolume bool // bring each spoken clip to the peak level of its original

	// SynthesisTimeout bounds each provider call; 0 means no extra bound.
	SynthesisTimeout time.Duration
}

// OptionsFrom builds run options from the loaded configuration.
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		Language:         cfg.Build.Language,
		Repeat:           cfg.Build.Repeat,
		MaxSegments:      cfg.Build.MaxSegments,
		Workers:          cfg.Build.Workers,
		TempRoot:         cfg.Build.TempRoot,
		KeepTemp:         cfg.Build.KeepTemp,
		Timeline:         cfg.Build.Timeline,
		MatchVolume:      cfg.Build.MatchVolume,
		SynthesisTimeout: cfg.TTS.Timeout,
	}
}

// Result describes a finished run.
type Result struct {
	RunID     string        `json:"run_id"`
	Output    string        `json:"output"`
	Timeline  string        `json:"timeline,omitempty"`
	Lines     int           `json:"lines"`
	Fallbacks []int         `json:"fallbacks,omitempty"` // indices of lines that got silence
	Duration  time.Duration `json:"duration"`            // deliverable length, 0 if it could not be measured
	Size      int64         `json:"size"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Pipeline holds the capabilities shared by every run. It is safe for
// concurrent use; all per-run state lives in the run.
type Pipeline struct {
	audio audio.Toolkit
	synth tts.Synthesizer
	opts  Options
	ext   string
}

// New creates a Pipeline. Workers below 1 are raised to 1 and an empty
// TempRoot falls back to config.DefaultTempRoot.
func New(tk audio.Toolkit, synth tts.Synthesizer, opts Options) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Repeat < 0 {
		opts.Repeat = 0
	}
	if opts.TempRoot == "" {
		opts.TempRoot = config.DefaultTempRoot
	}
	if opts.Language == "" {
		opts.Language = config.DefaultLanguage
	}
	return &Pipeline{
		audio: tk,
		synth: synth,
		opts:  opts,
		ext:   audio.CanonicalFormat.Extension,
	}
}

// Options returns the effective run options.
func (p *Pipeline) Options() Options { return p.opts }

// Check verifies the audio capability without running anything else.
func (p *Pipeline) Check(ctx context.Context) error {
	if err := p.audio.Check(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrCapabilityUnavailable, err)
	}
	return nil
}

type segment struct {
	line        lyrics.TimedLine
	clip        string
	target      string
	composite   string
	synthesized bool
}

// run carries the state of one Run call.
type run struct {
	*Pipeline
	id  string
	ws  *Workspace
	log *slog.Logger

	silenceOnce sync.Once
	silenceErr  error
}

// Run processes lines against the recording at audioPath and writes the
// deliverable to output. Nothing is written to output unless the run
// succeeds.
func (p *Pipeline) Run(ctx context.Context, lines []lyrics.TimedLine, audioPath, output string) (*Result, error) {
	started := time.Now()
	r := &run{Pipeline: p, id: uuid.NewString()}
	r.log = slog.With("run_id", r.id)

	if err := p.Check(ctx); err != nil {
		return nil, err
	}
	if err := checkInput(audioPath); err != nil {
		return nil, err
	}

	lines = lyrics.Truncate(lines, p.opts.MaxSegments)
	if len(lines) == 0 {
		return nil, ErrEmptyTranscript
	}
	if err := lyrics.Validate(lines); err != nil {
		return nil, fmt.Errorf("invalid transcript: %w", err)
	}

	ws, err := NewWorkspace(p.opts.TempRoot, r.id, p.ext)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	r.ws = ws
	defer r.cleanup()

	r.log.Info("run started",
		"lines", len(lines),
		"language", p.opts.Language,
		"repeat", p.opts.Repeat,
		"workers", p.opts.Workers,
		"provider", p.synth.Name())

	if err := p.audio.Transcode(ctx, audioPath, ws.SourcePath()); err != nil {
		return nil, stageErr(-1, StageTranscode, ErrExtractionFailed, err)
	}

	segs, err := r.processLines(ctx, lines)
	if err != nil {
		return nil, err
	}

	res := &Result{RunID: r.id, Output: output, Lines: len(segs)}
	for i, s := range segs {
		if !s.synthesized {
			res.Fallbacks = append(res.Fallbacks, i)
		}
	}

	if err := r.assemble(ctx, segs, output); err != nil {
		return nil, err
	}
	if fi, err := os.Stat(output); err == nil {
		res.Size = fi.Size()
	}
	if d, err := p.audio.Duration(ctx, output); err == nil {
		res.Duration = d
	} else {
		r.log.Debug("could not measure deliverable", "error", err)
	}

	if p.opts.Timeline {
		res.Timeline = r.writeTimeline(ctx, segs, output)
	}

	res.Elapsed = time.Since(started)
	r.log.Info("run complete",
		"output", output,
		"size", humanize.Bytes(uint64(res.Size)),
		"duration", res.Duration,
		"fallbacks", len(res.Fallbacks),
		"elapsed", res.Elapsed.Round(time.Millisecond))
	return res, nil
}

// processLines runs the per-line work on a bounded group. The first fatal
// error cancels the lines still pending; results land in their own index.
func (r *run) processLines(ctx context.Context, lines []lyrics.TimedLine) ([]segment, error) {
	segs := make([]segment, len(lines))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i, line := range lines {
		g.Go(func() error {
			seg, err := r.processLine(gctx, i, line)
			if err != nil {
				return err
			}
			segs[i] = seg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return segs, nil
}

func (r *run) processLine(ctx context.Context, i int, line lyrics.TimedLine) (segment, error) {
	if err := ctx.Err(); err != nil {
		return segment{}, err
	}
	log := r.log.With("line", i)
	log.Debug("processing line", "start", line.Start, "end", line.End, "text", line.Text)

	seg := segment{line: line, clip: r.ws.SegmentPath(i), composite: r.ws.CompositePath(i)}
	if err := r.audio.Extract(ctx, r.ws.SourcePath(), line.Start, line.End, seg.clip); err != nil {
		return segment{}, stageErr(i, StageExtract, ErrExtractionFailed, err)
	}

	target, ok, err := r.target(ctx, log, i, seg.clip, line.Text)
	if err != nil {
		return segment{}, err
	}
	seg.target, seg.synthesized = target, ok

	if err := r.audio.Concat(ctx, compositeParts(seg.clip, seg.target, r.opts.Repeat), seg.composite); err != nil {
		return segment{}, stageErr(i, StageComposite, ErrConcatenationFailed, err)
	}
	return seg, nil
}

// compositeParts lays out original x n, target, original x n.
func compositeParts(clip, target string, n int) []string {
	parts := make([]string, 0, 2*n+1)
	for range n {
		parts = append(parts, clip)
	}
	parts = append(parts, target)
	for range n {
		parts = append(parts, clip)
	}
	return parts
}

// target returns the canonical clip to place between the originals and
// whether it holds speech. Any synthesis problem yields the silence clip.
func (r *run) target(ctx context.Context, log *slog.Logger, i int, clip, text string) (string, bool, error) {
	sctx, cancel := ctx, context.CancelFunc(func() {})
	if r.opts.SynthesisTimeout > 0 {
		sctx, cancel = context.WithTimeout(ctx, r.opts.SynthesisTimeout)
	}
	outcome := tts.Attempt(sctx, r.synth, text, r.opts.Language)
	cancel()
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	reason := outcome.Reason
	if outcome.Synthesized() {
		raw := r.ws.RawSpeechPath(i, outcome.Result.Extension)
		if err := os.WriteFile(raw, outcome.Result.Audio, 0o644); err != nil {
			return "", false, stageErr(i, StageSynthesize, ErrWriteFailed, err)
		}
		speech := r.ws.SpeechPath(i)
		err := r.audio.Transcode(ctx, raw, speech)
		if err == nil {
			log.Debug("line synthesized", "bytes", len(outcome.Result.Audio))
			return r.level(ctx, log, i, clip, speech)
		}
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		reason = fmt.Errorf("transcoding speech: %w", err)
	}

	log.Warn("synthesis unavailable, using silence",
		"stage", StageSynthesize,
		"error", stageErr(i, StageSynthesize, ErrSynthesisUnavailable, reason))

	silence, err := r.silence(ctx)
	if err != nil {
		return "", false, stageErr(i, StageFallback, ErrSilenceFailed, err)
	}
	return silence, false, nil
}

// level matches the speech clip to the peak of the original clip. A failed
// adjustment keeps the speech at its synthesized level.
func (r *run) level(ctx context.Context, log *slog.Logger, i int, clip, speech string) (string, bool, error) {
	if !r.opts.MatchVolume {
		return speech, true, nil
	}
	levelled := r.ws.LevelledSpeechPath(i)
	if err := r.audio.MatchVolume(ctx, clip, speech, levelled); err != nil {
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		log.Warn("volume matching failed, keeping synthesized level", "stage", StageLevel, "error", err)
		return speech, true, nil
	}
	return levelled, true, nil
}

// silence renders the fallback clip once per run.
func (r *run) silence(ctx context.Context) (string, error) {
	r.silenceOnce.Do(func() {
		r.silenceErr = r.audio.Silence(ctx, SilenceDuration, r.ws.SilencePath())
	})
	return r.ws.SilencePath(), r.silenceErr
}

// assemble concatenates the composites in line order into a temporary file
// beside output and renames it into place.
func (r *run) assemble(ctx context.Context, segs []segment, output string) error {
	dir := filepath.Dir(output)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return stageErr(-1, StageAssemble, ErrWriteFailed, err)
	}
	composites := make([]string, len(segs))
	for i, s := range segs {
		composites[i] = s.composite
	}

	// The temporary name carries the canonical extension so the muxer is
	// known whatever the output is called.
	tmp := filepath.Join(dir, "."+r.id+r.ext)
	if err := r.audio.Concat(ctx, composites, tmp); err != nil {
		_ = os.Remove(tmp)
		return stageErr(-1, StageAssemble, ErrConcatenationFailed, err)
	}
	if err := os.Rename(tmp, output); err != nil {
		_ = os.Remove(tmp)
		return stageErr(-1, StageAssemble, ErrWriteFailed, err)
	}
	return nil
}

func (r *run) cleanup() {
	if r.opts.KeepTemp {
		r.log.Info("workspace kept", "path", r.ws.Root)
		return
	}
	if err := r.ws.Remove(); err != nil {
		r.log.Warn("removing workspace", "path", r.ws.Root, "error", err)
	}
}

func checkInput(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: no audio path given", ErrInputNotFound)
	}
	fi, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrInputNotFound, path)
	case err != nil:
		return fmt.Errorf("%w: %w", ErrInputNotFound, err)
	case fi.IsDir():
		return fmt.Errorf("%w: %s is a directory", ErrInputNotFound, path)
	}
	return nil
}
