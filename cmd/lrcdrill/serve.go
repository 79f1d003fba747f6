package main

import (
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"github.com/nadzzz/lrcdrill/internal/config"
	"github.com/nadzzz/lrcdrill/internal/health"
	"github.com/nadzzz/lrcdrill/internal/job"
	"github.com/nadzzz/lrcdrill/internal/pipeline"
	"github.com/nadzzz/lrcdrill/internal/storage"
	"github.com/nadzzz/lrcdrill/internal/transport"
	grpctransport "github.com/nadzzz/lrcdrill/internal/transport/grpc"
	httptransport "github.com/nadzzz/lrcdrill/internal/transport/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the job API",
	Long: `Serve accepts build jobs over HTTP (POST /v1/jobs), exposes gRPC health and
reflection, and answers liveness and readiness checks on the health port.
Finished tracks are kept under server.work_dir and, when object storage is
configured, published to the bucket.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.Int("http-port", 8080, "job API port")
	f.Int("grpc-port", 50051, "gRPC health port")
	f.StringP("lang", "l", config.DefaultLanguage, "default target language tag")
	f.IntP("repeat", "r", 1, "default original clip repetitions")
	f.IntP("workers", "w", 1, "lines processed in parallel per job")
	addProviderFlags(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	slog.Info("lrcdrill starting", "version", version)

	tk, synth, err := capabilities(cfg)
	if err != nil {
		return err
	}
	defer synth.Close()

	ctx := cmd.Context()
	healthServer := health.New(cfg.Server.HealthPort)
	healthServer.AddCheck("ffmpeg", tk.Check)

	var publisher job.Publisher
	if cfg.Storage.Enabled() {
		pub, err := storage.New(cfg.Storage)
		if err != nil {
			return err
		}
		healthServer.AddCheck("storage", pub.Check)
		publisher = pub
		slog.Info("publishing to object storage", "endpoint", cfg.Storage.Endpoint, "bucket", cfg.Storage.Bucket)
	}

	jobs := job.NewService(tk, synth, pipeline.OptionsFrom(cfg), cfg.Server.WorkDir, publisher)

	grpcT := grpctransport.New(cfg.Server.GRPCPort)
	healthServer.Watch(grpcT.SetServing)
	transports := []transport.Transport{
		httptransport.New(cfg.Server, jobs),
		grpcT,
	}

	go func() {
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	var wg sync.WaitGroup
	for _, t := range transports {
		wg.Add(1)
		go func(t transport.Transport) {
			defer wg.Done()
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(ctx); err != nil {
				slog.Error("transport failed", "name", t.Name(), "error", err)
			}
		}(t)
	}

	// Jobs cannot run without the audio tools; stay not-ready until they answer.
	if err := tk.Check(ctx); err != nil {
		slog.Error("audio tools unavailable, staying not ready", "error", err)
	} else {
		healthServer.SetReady(true)
		slog.Info("lrcdrill ready",
			"http_port", cfg.Server.HTTPPort,
			"grpc_port", cfg.Server.GRPCPort,
			"health_port", cfg.Server.HealthPort,
			"provider", synth.Name())
	}

	<-ctx.Done()
	slog.Info("shutdown signal received, draining...")
	healthServer.SetReady(false)

	for _, t := range transports {
		if err := t.Close(); err != nil {
			slog.Error("transport close error", "name", t.Name(), "error", err)
		}
	}

	wg.Wait()
	slog.Info("lrcdrill stopped")
	return nil
}
