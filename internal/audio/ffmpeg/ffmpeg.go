// Package ffmpeg implements audio.Toolkit by running the ffmpeg and ffprobe
// executables.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nadzzz/lrcdrill/internal/audio"
)

var _ audio.Toolkit = (*Toolkit)(nil)

// Runner executes an external command and returns its standard output and
// standard error. A non-nil error carries the tail of standard error.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// VolumeTolerance is the peak difference below which MatchVolume leaves the
// clip untouched.
const VolumeTolerance = 0.5 // dB

// Toolkit runs ffmpeg/ffprobe to satisfy audio.Toolkit.
type Toolkit struct {
	ffmpeg  string
	ffprobe string
	format  audio.Format
	runner  Runner
}

// Option configures a Toolkit.
type Option func(*Toolkit)

// WithRunner replaces the process runner (tests use a recording fake).
func WithRunner(r Runner) Option {
	return func(t *Toolkit) { t.runner = r }
}

// WithFormat overrides the canonical encoding.
func WithFormat(f audio.Format) Option {
	return func(t *Toolkit) { t.format = f }
}

// New creates a Toolkit. Empty binary paths fall back to "ffmpeg"/"ffprobe"
// resolved through PATH.
func New(ffmpegPath, ffprobePath string, opts ...Option) *Toolkit {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	t := &Toolkit{
		ffmpeg:  ffmpegPath,
		ffprobe: ffprobePath,
		format:  audio.CanonicalFormat,
		runner:  execRunner{},
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Format returns the canonical encoding used for every output clip.
func (t *Toolkit) Format() audio.Format { return t.format }

// Check runs "-version" on both binaries.
func (t *Toolkit) Check(ctx context.Context) error {
	for _, bin := range []string{t.ffmpeg, t.ffprobe} {
		if _, _, err := t.runner.Run(ctx, bin, "-version"); err != nil {
			return fmt.Errorf("%w: %s: %v", audio.ErrToolUnavailable, bin, err)
		}
	}
	return nil
}

// Extract cuts [start, end) out of src. Seeking happens after the input is
// opened so offsets are sample accurate.
func (t *Toolkit) Extract(ctx context.Context, src string, start, end time.Duration, dst string) error {
	if start < 0 || end <= start {
		return fmt.Errorf("ffmpeg extract: invalid interval [%s, %s)", start, end)
	}
	args := []string{
		"-y", "-i", src,
		"-ss", seconds(start),
		"-t", seconds(end - start),
		"-vn",
	}
	args = append(args, t.encodeArgs()...)
	args = append(args, dst)
	return t.ffmpegRun(ctx, "extract", args)
}

// Concat joins clips with the concat demuxer and stream copy.
func (t *Toolkit) Concat(ctx context.Context, clips []string, dst string) error {
	if len(clips) == 0 {
		return audio.ErrNothingToConcat
	}

	list, err := os.CreateTemp(filepath.Dir(dst), "concat-*.txt")
	if err != nil {
		return fmt.Errorf("ffmpeg concat: creating list: %w", err)
	}
	defer os.Remove(list.Name())

	var sb strings.Builder
	for _, c := range clips {
		abs, err := filepath.Abs(c)
		if err != nil {
			list.Close()
			return fmt.Errorf("ffmpeg concat: %w", err)
		}
		sb.WriteString("file '" + escapeListPath(filepath.ToSlash(abs)) + "'\n")
	}
	if _, err := list.WriteString(sb.String()); err != nil {
		list.Close()
		return fmt.Errorf("ffmpeg concat: writing list: %w", err)
	}
	if err := list.Close(); err != nil {
		return fmt.Errorf("ffmpeg concat: writing list: %w", err)
	}

	args := []string{
		"-y", "-f", "concat", "-safe", "0",
		"-i", list.Name(),
		"-c", "copy",
		dst,
	}
	return t.ffmpegRun(ctx, "concat", args)
}

// Silence renders d of digital silence.
func (t *Toolkit) Silence(ctx context.Context, d time.Duration, dst string) error {
	if d <= 0 {
		return fmt.Errorf("ffmpeg silence: non-positive duration %s", d)
	}
	layout := "stereo"
	if t.format.Channels == 1 {
		layout = "mono"
	}
	args := []string{
		"-y", "-f", "lavfi",
		"-i", fmt.Sprintf("anullsrc=r=%d:cl=%s:d=%s", t.format.SampleRate, layout, seconds(d)),
	}
	args = append(args, t.encodeArgs()...)
	args = append(args, dst)
	return t.ffmpegRun(ctx, "silence", args)
}

// Transcode re-encodes src into the canonical encoding, dropping any video
// stream (cover art).
func (t *Toolkit) Transcode(ctx context.Context, src, dst string) error {
	args := []string{"-y", "-i", src, "-vn"}
	args = append(args, t.encodeArgs()...)
	args = append(args, dst)
	return t.ffmpegRun(ctx, "transcode", args)
}

// Duration reads the container duration with ffprobe.
func (t *Toolkit) Duration(ctx context.Context, path string) (time.Duration, error) {
	out, _, err := t.runner.Run(ctx, t.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: parsing duration %q: %w", path, strings.TrimSpace(string(out)), err)
	}
	return time.Duration(secs * float64(time.Second)).Round(time.Millisecond), nil
}

// MatchVolume writes src to dst with its peak level brought to the peak of
// reference, measured with the volumedetect filter. When the peaks differ by
// less than VolumeTolerance, or either clip is silent, src is copied as is.
func (t *Toolkit) MatchVolume(ctx context.Context, reference, src, dst string) error {
	refPeak, err := t.peak(ctx, reference)
	if err != nil {
		return err
	}
	srcPeak, err := t.peak(ctx, src)
	if err != nil {
		return err
	}

	gain := refPeak - srcPeak
	if math.IsInf(gain, 0) || math.IsNaN(gain) || math.Abs(gain) < VolumeTolerance {
		slog.Debug("ffmpeg volume unchanged", "reference_peak", refPeak, "peak", srcPeak)
		return copyFile(src, dst)
	}

	args := []string{"-y", "-i", src, "-af", fmt.Sprintf("volume=%.2fdB", gain), "-vn"}
	args = append(args, t.encodeArgs()...)
	args = append(args, dst)
	return t.ffmpegRun(ctx, "volume", args)
}

// peak returns the max_volume reported by volumedetect, in dB.
func (t *Toolkit) peak(ctx context.Context, path string) (float64, error) {
	_, stderr, err := t.runner.Run(ctx, t.ffmpeg,
		"-hide_banner", "-nostats",
		"-i", path,
		"-af", "volumedetect",
		"-vn", "-f", "null", "-",
	)
	if err != nil {
		return 0, fmt.Errorf("ffmpeg volumedetect %s: %w", path, err)
	}
	db, ok := parseMaxVolume(string(stderr))
	if !ok {
		return 0, fmt.Errorf("ffmpeg volumedetect %s: no max_volume in output", path)
	}
	return db, nil
}

// parseMaxVolume finds "max_volume: -5.2 dB" in volumedetect output.
func parseMaxVolume(out string) (float64, bool) {
	for _, line := range strings.Split(out, "\n") {
		_, rest, ok := strings.Cut(line, "max_volume:")
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rest), "dB")), 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	return 0, false
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("copying %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return nil
}

func (t *Toolkit) encodeArgs() []string {
	return []string{
		"-acodec", t.format.Codec,
		"-ar", strconv.Itoa(t.format.SampleRate),
		"-ac", strconv.Itoa(t.format.Channels),
		"-b:a", t.format.Bitrate,
	}
}

func (t *Toolkit) ffmpegRun(ctx context.Context, op string, args []string) error {
	slog.Debug("ffmpeg", "op", op, "args", args)
	if _, _, err := t.runner.Run(ctx, t.ffmpeg, args...); err != nil {
		return fmt.Errorf("ffmpeg %s: %w", op, err)
	}
	return nil
}

// seconds formats d with millisecond resolution, as ffmpeg expects.
func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

// escapeListPath quotes a path for a concat list entry.
func escapeListPath(p string) string {
	return strings.ReplaceAll(p, "'", `'\''`)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return out, stderr.Bytes(), fmt.Errorf("%w: %s", err, tail(stderr.String(), 3))
	}
	return out, stderr.Bytes(), nil
}

// tail returns the last n non-empty lines of s.
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
