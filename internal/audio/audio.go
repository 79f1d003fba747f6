// Package audio defines the audio extraction capability used by the pipeline.
//
// Every clip produced through a Toolkit shares one canonical encoding so that
// clips can be concatenated by stream copy, without a second encoding pass.
package audio

import (
	"context"
	"errors"
	"time"
)

// ErrToolUnavailable is returned by Check when the underlying tool cannot run.
var ErrToolUnavailable = errors.New("audio tool unavailable")

// ErrNothingToConcat is returned by Concat for an empty input list.
var ErrNothingToConcat = errors.New("no clips to concatenate")

// Format describes the canonical encoding.
type Format struct {
	Codec      string // encoder name, e.g. "libmp3lame"
	SampleRate int    // Hz
	Channels   int
	Bitrate    string // e.g. "192k"
	Extension  string // file extension including the dot
}

// CanonicalFormat is the encoding shared by every clip of a run.
var CanonicalFormat = Format{
	Codec:      "libmp3lame",
	SampleRate: 44100,
	Channels:   2,
	Bitrate:    "192k",
	Extension:  ".mp3",
}

// Toolkit cuts, joins, generates and converts clips.
// All output clips are written in the toolkit's canonical Format.
type Toolkit interface {
	// Check verifies the tool is usable. It is called once before a run.
	Check(ctx context.Context) error

	// Extract writes the [start, end) interval of src to dst.
	Extract(ctx context.Context, src string, start, end time.Duration, dst string) error

	// Concat joins clips in order into dst without re-encoding.
	Concat(ctx context.Context, clips []string, dst string) error

	// Silence writes a silent clip of duration d to dst.
	Silence(ctx context.Context, d time.Duration, dst string) error

	// Transcode converts any decodable input into the canonical encoding.
	Transcode(ctx context.Context, src, dst string) error

	// Duration returns the duration of a clip.
	Duration(ctx context.Context, path string) (time.Duration, error)

	// MatchVolume writes src to dst with its peak level matched to reference.
	MatchVolume(ctx context.Context, reference, src, dst string) error
}
