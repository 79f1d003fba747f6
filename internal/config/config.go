// Package config handles loading and validating the lrcdrill configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ErrAPIKeyMissing is returned when the selected speech provider needs a key
// and none could be found.
var ErrAPIKeyMissing = errors.New("api key missing")

// Default paths and values.
const (
	DefaultOutput   = "output/learning_audio.mp3"
	DefaultTempRoot = "output/temp"
	DefaultLanguage = "ru-RU"
	DefaultEnvFile  = ".env"
)

// Providers lists the recognized speech providers.
var Providers = []string{"gemini", "openai", "piper"}

// Config is the root configuration.
type Config struct {
	Build   BuildConfig   `mapstructure:"build"`
	Audio   AudioConfig   `mapstructure:"audio"`
	TTS     TTSConfig     `mapstructure:"tts"`
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// BuildConfig holds the inputs of one pipeline run.
type BuildConfig struct {
	Audio       string `mapstructure:"audio"`
	LRC         string `mapstructure:"lrc"`
	Output      string `mapstructure:"output"`
	Language    string `mapstructure:"language"`
	Repeat      int    `mapstructure:"repeat"`       // times the original brackets the target clip
	MaxSegments int    `mapstructure:"max_segments"` // 0 = all lines
	Workers     int    `mapstructure:"workers"`
	TempRoot    string `mapstructure:"temp_root"`
	KeepTemp    bool   `mapstructure:"keep_temp"`
	Timeline    bool   `mapstructure:"timeline"`     // write <output>.lrc
	MatchVolume bool   `mapstructure:"match_volume"` // level speech to the original clip
	Upload      bool   `mapstructure:"upload"`
}

// AudioConfig locates the audio tool binaries.
type AudioConfig struct {
	FFmpegPath  string `mapstructure:"ffmpeg_path"`
	FFprobePath string `mapstructure:"ffprobe_path"`
}

// TTSConfig selects and configures the speech provider.
type TTSConfig struct {
	Provider string        `mapstructure:"provider"` // "gemini", "openai" or "piper"
	Timeout  time.Duration `mapstructure:"timeout"`  // per synthesis call
	EnvFile  string        `mapstructure:"env_file"` // fallback source for API keys
	Gemini   GeminiConfig  `mapstructure:"gemini"`
	OpenAI   OpenAIConfig  `mapstructure:"openai"`
	Piper    PiperConfig   `mapstructure:"piper"`
}

// GeminiConfig holds Gemini API settings.
type GeminiConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	Voice   string `mapstructure:"voice"`
	BaseURL string `mapstructure:"base_url"`
}

// OpenAIConfig holds OpenAI speech settings.
type OpenAIConfig struct {
	APIKey  string  `mapstructure:"api_key"`
	Model   string  `mapstructure:"model"`
	Voice   string  `mapstructure:"voice"`
	Speed   float64 `mapstructure:"speed"`
	BaseURL string  `mapstructure:"base_url"`
}

// PiperConfig holds Piper TTS settings (Wyoming protocol).
//
// For a single Piper instance that serves all languages, set Endpoint.
// For per-language instances, set Endpoints which maps ISO-639-1 codes to
// individual Wyoming TCP endpoints; Endpoint is then the fallback.
type PiperConfig struct {
	Endpoint  string            `mapstructure:"endpoint"`
	Endpoints map[string]string `mapstructure:"endpoints"`
	Voices    map[string]string `mapstructure:"voices"`
}

// ServerConfig configures the job API.
type ServerConfig struct {
	HTTPPort       int      `mapstructure:"http_port"`
	GRPCPort       int      `mapstructure:"grpc_port"`
	HealthPort     int      `mapstructure:"health_port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	RateLimit      int      `mapstructure:"rate_limit"` // job requests per IP per minute
	MaxUploadMB    int      `mapstructure:"max_upload_mb"`
	WorkDir        string   `mapstructure:"work_dir"` // where job deliverables are kept
}

// StorageConfig configures publishing of deliverables to S3-compatible storage.
type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Prefix    string `mapstructure:"prefix"`
	Secure    bool   `mapstructure:"secure"`
}

// Enabled reports whether enough is configured to publish.
func (s StorageConfig) Enabled() bool {
	return s.Endpoint != "" && s.Bucket != ""
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"audio":        "build.audio",
	"lrc":          "build.lrc",
	"output":       "build.output",
	"lang":         "build.language",
	"repeat":       "build.repeat",
	"max":          "build.max_segments",
	"workers":      "build.workers",
	"temp-root":    "build.temp_root",
	"keep-temp":    "build.keep_temp",
	"timeline":     "build.timeline",
	"match-volume": "build.match_volume",
	"upload":       "build.upload",
	"provider":     "tts.provider",
	"voice":        "tts.voice",
	"env-file":     "tts.env_file",
	"ffmpeg":       "audio.ffmpeg_path",
	"ffprobe":      "audio.ffprobe_path",
	"http-port":    "server.http_port",
	"grpc-port":    "server.grpc_port",
	"log-level":    "logging.level",
	"log-format":   "logging.format",
}

// Load reads the configuration from defaults, an optional config file,
// LRCDRILL_* environment variables and the given flags, in increasing order
// of precedence. If configFile is empty the standard search order applies:
// ./lrcdrill.yaml, ./configs/lrcdrill.yaml, /etc/lrcdrill/lrcdrill.yaml.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("lrcdrill")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/lrcdrill")
	}

	// Environment variables: LRCDRILL_BUILD_LANGUAGE, LRCDRILL_TTS_PROVIDER, etc.
	v.SetEnvPrefix("LRCDRILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Debug("no config file found, using defaults and environment variables")
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// A provider-agnostic --voice flag lands on tts.voice; route it.
	if voice := v.GetString("tts.voice"); voice != "" {
		cfg.TTS.Gemini.Voice = voice
		cfg.TTS.OpenAI.Voice = voice
	}

	// Resolve env var references in sensitive fields (e.g., "${GEMINI_API_KEY}").
	cfg.TTS.Gemini.APIKey = resolveEnvRef(cfg.TTS.Gemini.APIKey)
	cfg.TTS.OpenAI.APIKey = resolveEnvRef(cfg.TTS.OpenAI.APIKey)
	cfg.Storage.AccessKey = resolveEnvRef(cfg.Storage.AccessKey)
	cfg.Storage.SecretKey = resolveEnvRef(cfg.Storage.SecretKey)

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("build.audio", "")
	v.SetDefault("build.lrc", "")
	v.SetDefault("build.output", DefaultOutput)
	v.SetDefault("build.language", DefaultLanguage)
	v.SetDefault("build.repeat", 1)
	v.SetDefault("build.max_segments", 0)
	v.SetDefault("build.workers", 1)
	v.SetDefault("build.temp_root", DefaultTempRoot)
	v.SetDefault("build.keep_temp", false)
	v.SetDefault("build.timeline", true)
	v.SetDefault("build.match_volume", true)
	v.SetDefault("build.upload", false)
	v.SetDefault("audio.ffmpeg_path", "ffmpeg")
	v.SetDefault("audio.ffprobe_path", "ffprobe")
	v.SetDefault("tts.provider", "gemini")
	v.SetDefault("tts.timeout", 60*time.Second)
	v.SetDefault("tts.env_file", DefaultEnvFile)
	v.SetDefault("tts.voice", "")
	v.SetDefault("tts.gemini.api_key", "")
	v.SetDefault("tts.gemini.model", "gemini-2.5-flash-preview-tts")
	v.SetDefault("tts.gemini.voice", "Kore")
	v.SetDefault("tts.gemini.base_url", "")
	v.SetDefault("tts.openai.api_key", "")
	v.SetDefault("tts.openai.model", "gpt-4o-mini-tts")
	v.SetDefault("tts.openai.voice", "alloy")
	v.SetDefault("tts.openai.speed", 1.0)
	v.SetDefault("tts.openai.base_url", "")
	v.SetDefault("tts.piper.endpoint", "localhost:10200")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.grpc_port", 50051)
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit", 10)
	v.SetDefault("server.max_upload_mb", 100)
	v.SetDefault("server.work_dir", "output/jobs")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.prefix", "lrcdrill/")
	v.SetDefault("storage.secure", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks the run parameters that do not depend on the filesystem.
func (c *Config) Validate() error {
	if c.Build.Repeat < 0 {
		return fmt.Errorf("repeat must be >= 0, got %d", c.Build.Repeat)
	}
	if c.Build.MaxSegments < 0 {
		return fmt.Errorf("max segments must be >= 0, got %d", c.Build.MaxSegments)
	}
	if c.Build.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Build.Workers)
	}
	if c.Build.Language == "" {
		return fmt.Errorf("language must not be empty")
	}
	for _, p := range Providers {
		if c.TTS.Provider == p {
			return nil
		}
	}
	return fmt.Errorf("unknown tts provider %q (want one of %s)", c.TTS.Provider, strings.Join(Providers, ", "))
}

// ResolveCredentials fills the API key of the selected provider from the
// provider's environment variable, then from a KEY=value line in the env
// file. It fails with ErrAPIKeyMissing if the provider needs a key and none
// is found. Piper needs no key.
func (c *Config) ResolveCredentials() error {
	var (
		field *string
		env   string
	)
	switch c.TTS.Provider {
	case "gemini":
		field, env = &c.TTS.Gemini.APIKey, "GEMINI_API_KEY"
	case "openai":
		field, env = &c.TTS.OpenAI.APIKey, "OPENAI_API_KEY"
	default:
		return nil
	}
	if *field != "" {
		return nil
	}
	if val := os.Getenv(env); val != "" {
		*field = val
		return nil
	}
	if c.TTS.EnvFile != "" {
		if vals, err := godotenv.Read(c.TTS.EnvFile); err == nil && vals[env] != "" {
			*field = vals[env]
			slog.Debug("api key loaded from env file", "file", c.TTS.EnvFile, "key", env)
			return nil
		}
	}
	return fmt.Errorf("%w: set %s or add it to %s", ErrAPIKeyMissing, env, c.TTS.EnvFile)
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// SetupLogging configures the global slog logger based on config. Records go
// to stderr so command output on stdout stays machine readable.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
