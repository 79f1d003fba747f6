package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nadzzz/lrcdrill/internal/audio/ffmpeg"
	"github.com/nadzzz/lrcdrill/internal/config"
	"github.com/nadzzz/lrcdrill/internal/pipeline"
	"github.com/nadzzz/lrcdrill/internal/tts"
	"github.com/nadzzz/lrcdrill/internal/tts/gemini"
	"github.com/nadzzz/lrcdrill/internal/tts/openai"
	"github.com/nadzzz/lrcdrill/internal/tts/piper"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "lrcdrill",
	Short: "Turn a song and its LRC transcript into a language-learning track",
	Long: `lrcdrill cuts every timed line out of a recording, has a speech provider read
the line in the target language, and joins original, spoken and original again
into one track for listening practice.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "path to config file (default: ./lrcdrill.yaml, ./configs, /etc/lrcdrill)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text, json")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(languagesCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the configuration with cmd's flags bound on top and
// installs the logger.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	config.SetupLogging(cfg.Logging)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// addProviderFlags registers the flags shared by commands that synthesize.
func addProviderFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("provider", "gemini", "speech provider: gemini, openai, piper")
	f.String("voice", "", "provider voice (default depends on the provider)")
	f.String("env-file", config.DefaultEnvFile, "dotenv file consulted for the API key")
	f.String("ffmpeg", "ffmpeg", "ffmpeg executable")
	f.String("ffprobe", "ffprobe", "ffprobe executable")
}

// capabilities resolves credentials and builds the audio toolkit and the
// speech provider.
func capabilities(cfg *config.Config) (*ffmpeg.Toolkit, tts.Synthesizer, error) {
	if err := cfg.ResolveCredentials(); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", pipeline.ErrConfigurationMissing, err)
	}
	synth, err := newSynthesizer(cfg.TTS)
	if err != nil {
		return nil, nil, err
	}
	return ffmpeg.New(cfg.Audio.FFmpegPath, cfg.Audio.FFprobePath), synth, nil
}

func newSynthesizer(cfg config.TTSConfig) (tts.Synthesizer, error) {
	switch cfg.Provider {
	case "gemini":
		slog.Info("using Gemini speech", "model", cfg.Gemini.Model, "voice", cfg.Gemini.Voice)
		return gemini.New(cfg.Gemini), nil
	case "openai":
		slog.Info("using OpenAI speech", "model", cfg.OpenAI.Model, "voice", cfg.OpenAI.Voice)
		return openai.New(cfg.OpenAI), nil
	case "piper":
		slog.Info("using Piper speech", "endpoint", cfg.Piper.Endpoint)
		return piper.New(cfg.Piper), nil
	default:
		return nil, fmt.Errorf("unknown tts provider %q", cfg.Provider)
	}
}
