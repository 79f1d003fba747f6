package piper

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net"
	"testing"

	"github.com/nadzzz/lrcdrill/internal/config"
	"github.com/nadzzz/lrcdrill/internal/tts"
)

// fakeServer accepts one connection, records the synthesize request and
// replies with the given events.
func fakeServer(t *testing.T, reply func(conn net.Conn)) (string, <-chan event) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	got := make(chan event, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		evt, _, err := readEvent(bufio.NewReader(conn))
		if err != nil {
			return
		}
		got <- *evt
		reply(conn)
	}()
	return ln.Addr().String(), got
}

func TestSynthesize(t *testing.T) {
	addr, got := fakeServer(t, func(conn net.Conn) {
		_ = writeEvent(conn, event{Type: "audio-start", Data: map[string]any{"rate": 16000, "width": 2, "channels": 1}}, nil)
		_ = writeEvent(conn, event{Type: "audio-chunk"}, []byte{1, 2, 3, 4})
		_ = writeEvent(conn, event{Type: "info"}, nil)
		_ = writeEvent(conn, event{Type: "audio-chunk"}, []byte{5, 6})
		_ = writeEvent(conn, event{Type: "audio-stop"}, nil)
	})

	s := New(config.PiperConfig{Endpoint: "tcp://" + addr})
	res, err := s.Synthesize(context.Background(), "Привет", tts.SynthesizeOpts{Language: "ru-RU"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	req := <-got
	if req.Type != "synthesize" || req.Data["text"] != "Привет" {
		t.Errorf("request = %+v", req)
	}
	if v, _ := req.Data["voice"].(map[string]any); v["name"] != "ru_RU-ruslan-medium" {
		t.Errorf("voice = %v", req.Data["voice"])
	}

	if res.Extension != ".wav" {
		t.Errorf("extension = %s", res.Extension)
	}
	if !bytes.Equal(res.Audio[44:], []byte{1, 2, 3, 4, 5, 6}) {
		t.Errorf("pcm = %v", res.Audio[44:])
	}
}

func TestSynthesizeServerError(t *testing.T) {
	addr, _ := fakeServer(t, func(conn net.Conn) {
		_ = writeEvent(conn, event{Type: "error", Data: map[string]any{"text": "voice not found"}}, nil)
	})
	s := New(config.PiperConfig{Endpoint: addr})
	_, err := s.Synthesize(context.Background(), "hello", tts.SynthesizeOpts{Language: "en-US"})
	if err == nil || err.Error() != "piper error: voice not found" {
		t.Errorf("err = %v", err)
	}
}

func TestSynthesizeEmptyAudio(t *testing.T) {
	addr, _ := fakeServer(t, func(conn net.Conn) {
		_ = writeEvent(conn, event{Type: "audio-stop"}, nil)
	})
	s := New(config.PiperConfig{Endpoint: addr})
	_, err := s.Synthesize(context.Background(), "hello", tts.SynthesizeOpts{Language: "en-US"})
	if !errors.Is(err, tts.ErrEmptyAudio) {
		t.Errorf("err = %v, want ErrEmptyAudio", err)
	}
}

func TestVoiceAndEndpointSelection(t *testing.T) {
	s := New(config.PiperConfig{
		Endpoint:  "default:10200",
		Endpoints: map[string]string{"ja-JP": "tcp://ja:10200"},
		Voices:    map[string]string{"ru": "ru_RU-denis-medium"},
	})
	if s.voices["ru"] != "ru_RU-denis-medium" {
		t.Errorf("override not applied: %s", s.voices["ru"])
	}
	if s.endpoints["ja"] != "ja:10200" {
		t.Errorf("endpoints = %v", s.endpoints)
	}

	_, err := s.Synthesize(context.Background(), "x", tts.SynthesizeOpts{Language: "xx-XX"})
	if err == nil {
		t.Error("expected error for a language without a voice")
	}
}

func TestParseHeader(t *testing.T) {
	j, p, err := parseHeader("12 34\n")
	if err != nil || j != 12 || p != 34 {
		t.Errorf("parseHeader = %d %d %v", j, p, err)
	}
	for _, bad := range []string{"12\n", "a 1\n", "1 -2\n", "\n"} {
		if _, _, err := parseHeader(bad); err == nil {
			t.Errorf("parseHeader(%q) should fail", bad)
		}
	}
}
