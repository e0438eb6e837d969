package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"vidvault/archive"
	"vidvault/catalog"
	"vidvault/comments"
	"vidvault/config"
	"vidvault/internal/logging"
	"vidvault/internal/metrics"
	"vidvault/server"
	"vidvault/store"
	"vidvault/youtube"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "sync":
		cmdSync(args)
	case "serve":
		cmdServe(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `vidvault - bounded per-channel video archiver

Usage:
  vidvault sync [flags]    Run one ingestion pass over all configured channels
  vidvault serve [flags]   Serve the archive over HTTP
  vidvault help            Show this help message

Flags:
  -config <path>           Optional YAML config file

Configuration is layered: defaults, then the config file, then VIDVAULT_*
environment variables. Channels come from the channels file (channels.json
by default).
`)
}

func loadConfig(fs *flag.FlagSet, args []string) *config.Config {
	configPath := fs.String("config", "", "Path to YAML config file")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	logging.Init(cfg.LogLevel, "vidvault")
	metrics.Register()
	return cfg
}

func cmdSync(args []string) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	cfg := loadConfig(fs, args)
	log := logging.Logger

	channels, err := config.LoadChannels(cfg.ChannelsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("load channels")
	}

	source := youtube.NewYtdlp(cfg.Quality, cfg.ExtractorRPS)
	source.Path = cfg.YtdlpPath
	source.Timeout = cfg.YtdlpTimeout

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := source.CheckInstalled(ctx); err != nil {
		log.Fatal().Err(err).Msg("yt-dlp not available")
	}

	// The Data API paginates comment threads properly; without a key the
	// extractor fetches them in a single shot.
	var commentSource youtube.CommentSource = source
	if cfg.APIKey != "" {
		api, err := youtube.NewAPIComments(ctx, cfg.APIKey)
		if err != nil {
			log.Fatal().Err(err).Msg("init comment source")
		}
		commentSource = api
		log.Info().Msg("using Data API comment source")
	}

	engine := comments.NewEngine(commentSource, comments.Config{
		Enabled:     cfg.Comments.Enabled,
		MaxComments: cfg.Comments.MaxComments,
		MaxReplies:  cfg.Comments.MaxReplies,
		RetryBudget: cfg.Comments.Attempts,
		RetryGap:    cfg.Comments.RetryGap,
	}, log)

	layout := store.Layout{Root: cfg.ContentDir}
	pipeline := archive.NewPipeline(source, engine, layout, cfg.OverFetch, log)
	pipeline.Run(ctx, channels)
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfg := loadConfig(fs, args)
	log := logging.Logger

	layout := store.Layout{Root: cfg.ContentDir}
	scanner := catalog.NewScanner(layout)

	srv := server.New(cfg.Server.Address(), scanner, layout, cfg.StaticDir, log)
	srv.SetTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		log.Fatal().Err(err).Msg("server error")
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
