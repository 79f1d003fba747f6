package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nadzzz/lrcdrill/internal/config"
	"github.com/nadzzz/lrcdrill/internal/lyrics"
	"github.com/nadzzz/lrcdrill/internal/pipeline"
)

const transcript = `[ti:Kalinka]
[ar:Folk]
[00:00.00]Калинка
[00:00.00]Little snowball tree
[00:04.50]Малинка моя
`

// execute runs the root command with fresh flag state and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	configFile = ""
	parseJSON, parseMax = false, 0

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func writeTranscript(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "song.lrc")
	if err := os.WriteFile(path, []byte(transcript), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewSynthesizer(t *testing.T) {
	for _, name := range config.Providers {
		synth, err := newSynthesizer(config.TTSConfig{Provider: name})
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if synth.Name() != name {
			t.Errorf("provider %s built %s", name, synth.Name())
		}
		_ = synth.Close()
	}
	if _, err := newSynthesizer(config.TTSConfig{Provider: "espeak"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestParseTable(t *testing.T) {
	out, err := execute(t, "parse", writeTranscript(t))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for _, want := range []string{"Folk - Kalinka", "00:00.00", "00:04.50", "Малинка моя", "Little snowball tree", "2 line(s)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestParseJSONMax(t *testing.T) {
	out, err := execute(t, "parse", "--json", "--max", "1", writeTranscript(t))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var tr lyrics.Transcript
	if err := json.Unmarshal([]byte(out), &tr); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if tr.Title != "Kalinka" || len(tr.Lines) != 1 || tr.Lines[0].Translation != "Little snowball tree" {
		t.Errorf("transcript = %+v", tr)
	}
}

func TestParseMissingFile(t *testing.T) {
	_, err := execute(t, "parse", filepath.Join(t.TempDir(), "absent.lrc"))
	if !errors.Is(err, pipeline.ErrInputNotFound) {
		t.Errorf("err = %v, want ErrInputNotFound", err)
	}
}

func TestLanguages(t *testing.T) {
	out, err := execute(t, "languages")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "TAG") || !strings.Contains(out, "ru-RU") || !strings.Contains(out, "Russian") {
		t.Errorf("output:\n%s", out)
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if out != "lrcdrill dev\n" {
		t.Errorf("output = %q", out)
	}
}

func TestBuildPreflight(t *testing.T) {
	lrc := writeTranscript(t)
	dir := t.TempDir()
	t.Setenv("OPENAI_API_KEY", "")

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"missing inputs", []string{"build"}, nil},
		{"missing transcript", []string{"build", "--audio", "song.mp3", "--lrc", filepath.Join(dir, "absent.lrc")}, pipeline.ErrInputNotFound},
		{"missing key", []string{"build", "--audio", "song.mp3", "--lrc", lrc,
			"--provider", "openai", "--env-file", filepath.Join(dir, "absent.env")}, pipeline.ErrConfigurationMissing},
		{"upload without storage", []string{"build", "--audio", "song.mp3", "--lrc", lrc, "--upload"}, pipeline.ErrConfigurationMissing},
		{"bad repeat", []string{"build", "--audio", "song.mp3", "--lrc", lrc, "--repeat", "-1"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}
