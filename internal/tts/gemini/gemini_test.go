package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nadzzz/lrcdrill/internal/config"
	"github.com/nadzzz/lrcdrill/internal/tts"
)

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, req generateRequest)) *Synthesizer {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		handler(w, r, req)
	}))
	t.Cleanup(srv.Close)
	s := New(config.GeminiConfig{
		APIKey:  "test-key",
		Model:   "tts-model",
		Voice:   "Kore",
		BaseURL: srv.URL,
	})
	if s.initErr != nil {
		t.Fatalf("New: %v", s.initErr)
	}
	return s
}

// Request body as sent by the genai client.
type generateRequest struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		ResponseModalities []string `json:"responseModalities"`
		SpeechConfig       struct {
			VoiceConfig struct {
				PrebuiltVoiceConfig struct {
					VoiceName string `json:"voiceName"`
				} `json:"prebuiltVoiceConfig"`
			} `json:"voiceConfig"`
		} `json:"speechConfig"`
	} `json:"generationConfig"`
}

func TestSynthesizeWrapsPCM(t *testing.T) {
	pcm := make([]byte, 480)
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request, req generateRequest) {
		if r.URL.Path != "/v1beta/models/tts-model:generateContent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("api key header = %q", r.Header.Get("x-goog-api-key"))
		}
		prompt := req.Contents[0].Parts[0].Text
		if !strings.Contains(prompt, "Russian") || !strings.Contains(prompt, "Привет") {
			t.Errorf("prompt = %q", prompt)
		}
		if len(req.GenerationConfig.ResponseModalities) != 1 || req.GenerationConfig.ResponseModalities[0] != "AUDIO" {
			t.Errorf("modalities = %v", req.GenerationConfig.ResponseModalities)
		}
		if req.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName != "Kore" {
			t.Error("voice not forwarded")
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"audio/L16;codec=pcm;rate=16000","data":"` +
			base64.StdEncoding.EncodeToString(pcm) + `"}}]}}]}`))
	})

	res, err := s.Synthesize(context.Background(), "Привет", tts.SynthesizeOpts{Language: "ru-RU"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if res.Extension != ".wav" || res.ContentType != "audio/wav" {
		t.Errorf("result = %s %s", res.ContentType, res.Extension)
	}
	if len(res.Audio) != 44+len(pcm) || string(res.Audio[:4]) != "RIFF" {
		t.Errorf("audio is not a WAV wrapping the PCM (len %d)", len(res.Audio))
	}
}

func TestSynthesizeFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		empty  bool
	}{
		{"http error", http.StatusTooManyRequests, `{"error":{"code":429,"message":"quota"}}`, false},
		{"bad request", http.StatusBadRequest, `{"error":{"code":400,"message":"bad","status":"INVALID_ARGUMENT"}}`, false},
		{"no audio", http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"sorry"}]}}]}`, true},
		{"garbage", http.StatusOK, `not json`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, func(w http.ResponseWriter, _ *http.Request, _ generateRequest) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := s.Synthesize(context.Background(), "hi", tts.SynthesizeOpts{Language: "en-US"})
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.empty && !errors.Is(err, tts.ErrEmptyAudio) {
				t.Errorf("err = %v, want ErrEmptyAudio", err)
			}
		})
	}
}

func TestSynthesizeRejectsBlankText(t *testing.T) {
	s := New(config.GeminiConfig{APIKey: "k", BaseURL: "http://127.0.0.1:0"})
	if _, err := s.Synthesize(context.Background(), "  ", tts.SynthesizeOpts{}); err == nil {
		t.Error("expected error for blank text")
	}
}

func TestSampleRate(t *testing.T) {
	for mt, want := range map[string]int{
		"audio/l16;codec=pcm;rate=24000": 24000,
		"audio/l16; rate=16000":          16000,
		"audio/l16":                      defaultSampleRate,
		"audio/l16;rate=abc":             defaultSampleRate,
	} {
		if got := sampleRate(mt); got != want {
			t.Errorf("sampleRate(%q) = %d, want %d", mt, got, want)
		}
	}
}

func TestSynthesizeWithoutKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	s := New(config.GeminiConfig{Model: "tts-model"})
	if _, err := s.Synthesize(context.Background(), "hi", tts.SynthesizeOpts{}); err == nil {
		t.Error("expected error without an api key")
	}
}
