// Package gemini implements the TTS Synthesizer using the Gemini
// generateContent API with the AUDIO response modality.
//
// Gemini returns raw 16-bit PCM (mime type "audio/L16;codec=pcm;rate=24000")
// as inline data; the synthesizer wraps it into a WAV file.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"github.com/nadzzz/lrcdrill/internal/config"
	"github.com/nadzzz/lrcdrill/internal/tts"
)

const (
	defaultSampleRate = 24000
	apiVersion        = "v1beta"
)

// Synthesizer calls the Gemini API through the genai client.
type Synthesizer struct {
	client  *genai.Client
	initErr error
	model   string
	voice   string
}

// New creates a new Gemini synthesizer from config. An empty BaseURL keeps
// the public endpoint. Client construction errors (for example a missing
// key) surface on the first Synthesize call.
func New(cfg config.GeminiConfig) *Synthesizer {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			APIVersion: apiVersion,
		},
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/") + "/"
	}
	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		err = fmt.Errorf("init gemini client: %w", err)
	}
	return &Synthesizer{
		client:  client,
		initErr: err,
		model:   cfg.Model,
		voice:   cfg.Voice,
	}
}

// Name returns the provider identifier.
func (s *Synthesizer) Name() string { return "gemini" }

// Synthesize asks Gemini to read text aloud in the requested language.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty text for synthesis")
	}
	if s.initErr != nil {
		return nil, s.initErr
	}
	voice := opts.Voice
	if voice == "" {
		voice = s.voice
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(buildPrompt(text, opts.Language)), &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini request: %w", err)
	}

	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if p == nil || p.InlineData == nil || len(p.InlineData.Data) == 0 {
				continue
			}
			slog.Debug("gemini audio received", "mime_type", p.InlineData.MIMEType, "bytes", len(p.InlineData.Data))
			return toResult(p.InlineData.Data, p.InlineData.MIMEType), nil
		}
	}
	return nil, tts.ErrEmptyAudio
}

// Close is a no-op; the genai client holds no connections of its own.
func (s *Synthesizer) Close() error { return nil }

// toResult wraps raw PCM into WAV; already containerized audio is passed through.
func toResult(data []byte, mimeType string) *tts.SynthesizeResult {
	mt := strings.ToLower(mimeType)
	if strings.Contains(mt, "l16") || strings.Contains(mt, "pcm") {
		return &tts.SynthesizeResult{
			Audio:       tts.PCMToWAV(data, sampleRate(mt), 1, 2),
			ContentType: "audio/wav",
			Extension:   ".wav",
		}
	}
	return &tts.SynthesizeResult{
		Audio:       data,
		ContentType: mimeType,
		Extension:   tts.ExtensionFor(mimeType),
	}
}

// sampleRate extracts "rate=N" from a mime type, defaulting to 24 kHz.
func sampleRate(mimeType string) int {
	for _, param := range strings.Split(mimeType, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
		if ok && k == "rate" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				return n
			}
		}
	}
	return defaultSampleRate
}

func buildPrompt(text, language string) string {
	return fmt.Sprintf("Read the following text aloud in %s, clearly and at a moderate pace suitable for language learning.\n\nText: %s",
		tts.LanguageName(language), text)
}
