// Package piper implements the TTS Synthesizer against a Piper server
// speaking the Wyoming protocol over TCP (port 10200 by default).
//
// Each event on the wire is framed as:
//
//	<json_length> <payload_length>\n
//	<json_bytes>\n
//	<payload_bytes>   (if payload_length > 0)
//
// A synthesis is one "synthesize" event answered by audio-start,
// audio-chunk* and audio-stop. Chunks carry raw PCM which is wrapped into WAV.
package piper

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/nadzzz/lrcdrill/internal/config"
	"github.com/nadzzz/lrcdrill/internal/tts"
)

// voiceFor maps primary language subtags to Piper voice models.
var voiceFor = map[string]string{
	"en": "en_US-lessac-medium",
	"ru": "ru_RU-ruslan-medium",
	"zh": "zh_CN-huayan-medium",
	"ja": "ja_JP-amitaro-medium",
	"ko": "ko_KR-kss-x_low",
	"es": "es_ES-mls_10246-low",
	"fr": "fr_FR-siwis-medium",
	"de": "de_DE-thorsten-medium",
}

const (
	dialTimeout    = 10 * time.Second
	defaultTimeout = 30 * time.Second
)

// Synthesizer talks to one or more Piper instances.
type Synthesizer struct {
	endpoint  string
	endpoints map[string]string // base language -> host:port
	voices    map[string]string // base language -> voice model
}

// New creates a Piper synthesizer. Configured voices override the built-in
// table; per-language endpoints fall back to Endpoint.
func New(cfg config.PiperConfig) *Synthesizer {
	s := &Synthesizer{
		endpoint:  hostPort(cfg.Endpoint),
		endpoints: make(map[string]string, len(cfg.Endpoints)),
		voices:    make(map[string]string, len(voiceFor)+len(cfg.Voices)),
	}
	for lang, v := range voiceFor {
		s.voices[lang] = v
	}
	for lang, v := range cfg.Voices {
		s.voices[tts.BaseLanguage(lang)] = v
	}
	for lang, ep := range cfg.Endpoints {
		s.endpoints[tts.BaseLanguage(lang)] = hostPort(ep)
	}
	return s
}

// Name returns the provider identifier.
func (s *Synthesizer) Name() string { return "piper" }

// Synthesize streams text to Piper and returns the reply as WAV.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty text for synthesis")
	}
	lang := tts.BaseLanguage(opts.Language)

	voice := opts.Voice
	if voice == "" {
		voice = s.voices[lang]
	}
	if voice == "" {
		return nil, fmt.Errorf("no piper voice for language %q", opts.Language)
	}
	endpoint := s.endpoints[lang]
	if endpoint == "" {
		endpoint = s.endpoint
	}
	if endpoint == "" {
		return nil, fmt.Errorf("no piper endpoint for language %q", opts.Language)
	}

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", endpoint)
	if err != nil {
		return nil, fmt.Errorf("connecting to piper at %s: %w", endpoint, err)
	}
	defer conn.Close()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultTimeout)
	}
	_ = conn.SetDeadline(deadline)

	slog.Debug("piper synthesize", "voice", voice, "endpoint", endpoint, "text_length", len(text))

	req := event{
		Type: "synthesize",
		Data: map[string]any{"text": text, "voice": map[string]any{"name": voice}},
	}
	if err := writeEvent(conn, req, nil); err != nil {
		return nil, fmt.Errorf("sending synthesize event: %w", err)
	}

	pcm, format, err := readAudio(bufio.NewReader(conn))
	if err != nil {
		return nil, err
	}
	if len(pcm) == 0 {
		return nil, tts.ErrEmptyAudio
	}
	return &tts.SynthesizeResult{
		Audio:       tts.PCMToWAV(pcm, format.rate, format.channels, format.width),
		ContentType: "audio/wav",
		Extension:   ".wav",
	}, nil
}

// Close is a no-op; connections are per request.
func (s *Synthesizer) Close() error { return nil }

type pcmFormat struct {
	rate, channels, width int
}

// readAudio consumes events until audio-stop and returns the joined PCM.
func readAudio(r *bufio.Reader) ([]byte, pcmFormat, error) {
	format := pcmFormat{rate: 22050, channels: 1, width: 2}
	var pcm bytes.Buffer
	for {
		evt, payload, err := readEvent(r)
		if err != nil {
			return nil, format, fmt.Errorf("reading piper event: %w", err)
		}
		switch evt.Type {
		case "audio-start":
			format.rate = intField(evt.Data, "rate", format.rate)
			format.channels = intField(evt.Data, "channels", format.channels)
			format.width = intField(evt.Data, "width", format.width)
		case "audio-chunk":
			pcm.Write(payload)
		case "audio-stop":
			return pcm.Bytes(), format, nil
		case "error":
			msg, _ := evt.Data["text"].(string)
			if msg == "" {
				msg = "unknown error"
			}
			return nil, format, fmt.Errorf("piper error: %s", msg)
		default:
			slog.Debug("piper: ignoring event", "type", evt.Type)
		}
	}
}

type event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

func writeEvent(w io.Writer, evt event, payload []byte) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d %d\n", len(body), len(payload))
	buf.Write(body)
	buf.WriteByte('\n')
	buf.Write(payload)
	_, err = w.Write(buf.Bytes())
	return err
}

func readEvent(r *bufio.Reader) (*event, []byte, error) {
	header, err := r.ReadString('\n')
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}
	jsonLen, payloadLen, err := parseHeader(header)
	if err != nil {
		return nil, nil, err
	}

	body := make([]byte, jsonLen+1)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, nil, fmt.Errorf("reading event body: %w", err)
	}
	var evt event
	if err := json.Unmarshal(body[:jsonLen], &evt); err != nil {
		return nil, nil, fmt.Errorf("unmarshalling event: %w", err)
	}

	var payload []byte
	if payloadLen > 0 {
		payload = make([]byte, payloadLen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, nil, fmt.Errorf("reading payload: %w", err)
		}
	}
	return &evt, payload, nil
}

func parseHeader(line string) (jsonLen, payloadLen int, err error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("invalid wyoming header %q", strings.TrimSpace(line))
	}
	if jsonLen, err = strconv.Atoi(fields[0]); err != nil || jsonLen < 0 {
		return 0, 0, fmt.Errorf("invalid json length %q", fields[0])
	}
	if payloadLen, err = strconv.Atoi(fields[1]); err != nil || payloadLen < 0 {
		return 0, 0, fmt.Errorf("invalid payload length %q", fields[1])
	}
	return jsonLen, payloadLen, nil
}

func intField(data map[string]any, key string, def int) int {
	if v, ok := data[key].(float64); ok && v > 0 {
		return int(v)
	}
	return def
}

func hostPort(ep string) string {
	ep = strings.TrimPrefix(ep, "tcp://")
	return strings.TrimPrefix(ep, "http://")
}
