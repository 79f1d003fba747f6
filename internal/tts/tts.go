// Package tts defines the interface for text-to-speech synthesis.
//
// Speech providers are unreliable: a failed or empty synthesis is an expected
// outcome. Callers use Attempt, which folds every failure into an Absent
// Outcome instead of an error, and decide themselves how to fill the gap.
package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyAudio is returned by providers that answered without audio data.
var ErrEmptyAudio = errors.New("no audio data in response")

// SynthesizeOpts controls synthesis behavior.
type SynthesizeOpts struct {
	// Language is the locale-style tag (e.g., "ru-RU", "ja-JP").
	Language string

	// Voice overrides the provider's default voice selection.
	Voice string
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	// Name returns the provider identifier (e.g., "gemini", "openai", "piper").
	Name() string

	// Synthesize generates audio for text. The audio is in whatever container
	// the provider produces; Extension tells the caller how to store it.
	Synthesize(ctx context.Context, text string, opts SynthesizeOpts) (*SynthesizeResult, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// SynthesizeResult holds the output of TTS synthesis.
type SynthesizeResult struct {
	// Audio is the encoded audio file.
	Audio []byte

	// ContentType is the MIME type of the audio (e.g., "audio/wav").
	ContentType string

	// Extension is the file extension matching ContentType, including the dot.
	Extension string
}

// Outcome is the result of one synthesis attempt: either audio, or absent
// with the reason.
type Outcome struct {
	Result *SynthesizeResult
	Reason error
}

// Synthesized reports whether the attempt produced audio.
func (o Outcome) Synthesized() bool {
	return o.Result != nil && len(o.Result.Audio) > 0
}

// Attempt runs a single synthesis and never returns an error: provider
// failures and empty responses become an Absent outcome.
func Attempt(ctx context.Context, s Synthesizer, text, language string) Outcome {
	res, err := s.Synthesize(ctx, text, SynthesizeOpts{Language: language})
	switch {
	case err != nil:
		return Outcome{Reason: fmt.Errorf("%s: %w", s.Name(), err)}
	case res == nil || len(res.Audio) == 0:
		return Outcome{Reason: fmt.Errorf("%s: %w", s.Name(), ErrEmptyAudio)}
	}
	if res.Extension == "" {
		res.Extension = ExtensionFor(res.ContentType)
	}
	return Outcome{Result: res}
}

// ExtensionFor maps an audio MIME type to a file extension.
func ExtensionFor(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "wav"), strings.Contains(ct, "l16"), strings.Contains(ct, "pcm"):
		return ".wav"
	case strings.Contains(ct, "mpeg"), strings.Contains(ct, "mp3"):
		return ".mp3"
	case strings.Contains(ct, "ogg"), strings.Contains(ct, "opus"):
		return ".ogg"
	case strings.Contains(ct, "flac"):
		return ".flac"
	case strings.Contains(ct, "aac"):
		return ".aac"
	default:
		return ".bin"
	}
}
