package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nadzzz/lrcdrill/internal/lyrics"
)

// TimelinePath returns the companion LRC path for a deliverable.
func TimelinePath(output string) string {
	return strings.TrimSuffix(output, filepath.Ext(output)) + ".lrc"
}

// writeTimeline writes the companion LRC and returns its path, or "" when
// the clip durations could not be measured.
func (r *run) writeTimeline(ctx context.Context, segs []segment, output string) string {
	tr, err := r.timeline(ctx, segs)
	if err != nil {
		r.log.Warn("skipping timeline", "error", err)
		return ""
	}
	path := TimelinePath(output)
	if err := os.WriteFile(path, []byte(lyrics.Format(tr)), 0o644); err != nil {
		r.log.Warn("skipping timeline", "path", path, "error", err)
		return ""
	}
	return path
}

// timeline places one cue at every clip inside the deliverable, so players
// show the line while its original or its spoken version plays.
func (r *run) timeline(ctx context.Context, segs []segment) (*lyrics.Transcript, error) {
	durations := make(map[string]time.Duration)
	measure := func(path string) (time.Duration, error) {
		if d, ok := durations[path]; ok {
			return d, nil
		}
		d, err := r.audio.Duration(ctx, path)
		if err != nil {
			return 0, err
		}
		durations[path] = d
		return d, nil
	}

	tr := &lyrics.Transcript{Lines: make([]lyrics.TimedLine, 0, len(segs)*(2*r.opts.Repeat+1))}
	var at time.Duration
	for i, s := range segs {
		for _, part := range compositeParts(s.clip, s.target, r.opts.Repeat) {
			d, err := measure(part)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i, err)
			}
			if d <= 0 {
				continue
			}
			tr.Lines = append(tr.Lines, lyrics.TimedLine{
				Start:       at,
				End:         at + d,
				Text:        s.line.Text,
				Translation: s.line.Translation,
			})
			at += d
		}
	}
	return tr, nil
}
