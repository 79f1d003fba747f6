// Package openai implements the TTS Synthesizer with the OpenAI speech API.
package openai

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/nadzzz/lrcdrill/internal/config"
	"github.com/nadzzz/lrcdrill/internal/tts"
)

// maxAudioBytes bounds a single speech response.
const maxAudioBytes = 32 << 20

// Synthesizer calls the /audio/speech endpoint and asks for MP3.
type Synthesizer struct {
	client *goopenai.Client
	model  string
	voice  string
	speed  float64
}

// New creates an OpenAI synthesizer. An empty BaseURL keeps the public API.
func New(cfg config.OpenAIConfig) *Synthesizer {
	cc := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		cc.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	return &Synthesizer{
		client: goopenai.NewClientWithConfig(cc),
		model:  cfg.Model,
		voice:  cfg.Voice,
		speed:  cfg.Speed,
	}
}

// Name returns the provider identifier.
func (s *Synthesizer) Name() string { return "openai" }

// Synthesize reads text aloud. The speech models infer the language from the
// text, so the language tag only shapes the delivery instructions.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty text for synthesis")
	}
	voice := opts.Voice
	if voice == "" {
		voice = s.voice
	}

	req := goopenai.CreateSpeechRequest{
		Model:          goopenai.SpeechModel(s.model),
		Input:          text,
		Voice:          goopenai.SpeechVoice(voice),
		ResponseFormat: goopenai.SpeechResponseFormatMp3,
		Speed:          s.speed,
	}
	if supportsInstructions(s.model) {
		req.Instructions = fmt.Sprintf("Speak in %s, clearly and at a moderate pace for a language learner.",
			tts.LanguageName(opts.Language))
	}

	resp, err := s.client.CreateSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(io.LimitReader(resp, maxAudioBytes))
	if err != nil {
		return nil, fmt.Errorf("reading speech response: %w", err)
	}
	if len(audio) == 0 {
		return nil, tts.ErrEmptyAudio
	}
	slog.Debug("openai speech received", "voice", voice, "bytes", len(audio))

	return &tts.SynthesizeResult{
		Audio:       audio,
		ContentType: "audio/mpeg",
		Extension:   ".mp3",
	}, nil
}

// Close is a no-op.
func (s *Synthesizer) Close() error { return nil }

// supportsInstructions reports whether model accepts delivery instructions;
// the tts-1 family rejects them.
func supportsInstructions(model string) bool {
	return !strings.HasPrefix(model, "tts-1")
}
