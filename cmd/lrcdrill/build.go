package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nadzzz/lrcdrill/internal/config"
	"github.com/nadzzz/lrcdrill/internal/lyrics"
	"github.com/nadzzz/lrcdrill/internal/pipeline"
	"github.com/nadzzz/lrcdrill/internal/storage"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a learning track",
	Long: `Build cuts each LRC line out of the recording and writes, per line, the
original clip --repeat times, the line spoken in --lang, and the original clip
--repeat times again. Lines whose speech cannot be synthesized get one second
of silence instead.`,
	Example: `  lrcdrill build --audio song.mp3 --lrc song.lrc
  lrcdrill build --audio song.flac --lrc song.lrc --lang ja-JP --repeat 2 --max 10 -o drill.mp3`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	f := buildCmd.Flags()
	f.StringP("audio", "a", "", "source recording (required)")
	f.StringP("lrc", "t", "", "LRC transcript (required)")
	f.StringP("output", "o", config.DefaultOutput, "output track")
	f.StringP("lang", "l", config.DefaultLanguage, "target language tag")
	f.IntP("repeat", "r", 1, "original clip repetitions on each side of the spoken line")
	f.IntP("max", "m", 0, "process only the first N lines (0 = all)")
	f.IntP("workers", "w", 1, "lines processed in parallel")
	f.String("temp-root", config.DefaultTempRoot, "parent directory of the per-run workspace")
	f.Bool("keep-temp", false, "keep the per-run workspace")
	f.Bool("timeline", true, "write a companion .lrc next to the track")
	f.Bool("match-volume", true, "bring each spoken line to the peak level of its original clip")
	f.Bool("upload", false, "publish the track to the configured object storage")
	addProviderFlags(buildCmd)
}

func runBuild(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	b := cfg.Build
	if b.Audio == "" || b.LRC == "" {
		return errors.New("--audio and --lrc are required")
	}
	if b.Upload && !cfg.Storage.Enabled() {
		return fmt.Errorf("%w: --upload needs storage.endpoint and storage.bucket", pipeline.ErrConfigurationMissing)
	}

	tr, err := lyrics.ParseFile(b.LRC)
	if err != nil {
		return fmt.Errorf("%w: %w", pipeline.ErrInputNotFound, err)
	}
	slog.Info("transcript parsed", "file", b.LRC, "lines", len(tr.Lines), "title", tr.Title)

	tk, synth, err := capabilities(cfg)
	if err != nil {
		return err
	}
	defer synth.Close()

	ctx := cmd.Context()
	res, err := pipeline.New(tk, synth, pipeline.OptionsFrom(cfg)).Run(ctx, tr.Lines, b.Audio, b.Output)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %s (%d lines, %s, %s)\n",
		res.Output, res.Lines, res.Duration.Round(time.Millisecond), humanize.Bytes(uint64(res.Size)))
	if res.Timeline != "" {
		fmt.Fprintf(out, "Timeline %s\n", res.Timeline)
	}
	if n := len(res.Fallbacks); n > 0 {
		fmt.Fprintf(out, "%d line(s) used silence instead of speech: %v\n", n, res.Fallbacks)
	}

	if b.Upload {
		return upload(ctx, cmd, cfg.Storage, res)
	}
	return nil
}

func upload(ctx context.Context, cmd *cobra.Command, cfg config.StorageConfig, res *pipeline.Result) error {
	pub, err := storage.New(cfg)
	if err != nil {
		return err
	}
	if err := pub.Check(ctx); err != nil {
		return err
	}
	files := []string{res.Output}
	if res.Timeline != "" {
		files = append(files, res.Timeline)
	}
	for _, f := range files {
		contentType := "audio/mpeg"
		if f == res.Timeline {
			contentType = "text/plain; charset=utf-8"
		}
		url, err := pub.Publish(ctx, res.RunID+"/"+filepath.Base(f), f, contentType)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Published %s\n", url)
	}
	return nil
}
