// Package main provides the blogmd publishing pipeline entrypoint.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/euforicio/blogmd/internal/buildinfo"
	"github.com/euforicio/blogmd/internal/config"
	"github.com/euforicio/blogmd/internal/pipeline"
)

func main() {
	args := os.Args[1:]

	// "clean" or "-c" as the first argument selects clean mode; everything
	// after it is regular flags.
	mode := pipeline.ModeNormal
	if len(args) > 0 && (args[0] == "clean" || args[0] == "-c") {
		mode = pipeline.ModeClean
		args = args[1:]
	}

	cfg := config.Default()
	config.ApplyEnvOverrides(&cfg)

	flags := pflag.NewFlagSet("blogmd", pflag.ExitOnError)
	config.RegisterFlags(flags, &cfg)
	versionFlag := flags.Bool("version", false, "Print version information and exit")
	if err := flags.Parse(args); err != nil {
		slog.Error("parse flags", slog.Any("err", err))
		os.Exit(1)
	}
	if *versionFlag {
		println(buildinfo.Summary())
		os.Exit(0)
	}
	if err := config.Finalize(&cfg); err != nil {
		slog.Error("invalid configuration", slog.Any("err", err))
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if cfg.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	logger = logger.With("app", "blogmd")
	slog.SetDefault(logger)
	logger.Log(context.Background(), slog.LevelInfo-1, "starting blogmd", slog.String("version", buildinfo.Summary()))

	ctx := context.Background()
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runner, err := pipeline.New(cfg, logger)
	if err != nil {
		cancel()
		logger.Error("pipeline init failed", slog.Any("err", err))
		//nolint:gocritic // exitAfterDefer: cancel() explicitly called before os.Exit
		os.Exit(1)
	}

	if _, err := runner.Execute(ctx, mode); err != nil {
		cancel()
		logger.Error("pipeline run failed", slog.Any("err", err))
		os.Exit(1)
	}
}
