package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-forwarder/internal/app"
	apperrors "github.com/lueurxax/telegram-forwarder/internal/core/errors"
	"github.com/lueurxax/telegram-forwarder/internal/platform/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	mode := flag.String("mode", "", "Forward mode (all, date_range, last_n, post_id); overrides FORWARD_MODE")
	envFile := flag.String("env-file", "", "Dotenv file to load (default .env)")

	flag.Parse()

	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}

	cfg, err := config.Load(envFiles...)
	if err != nil {
		log.Printf("failed to load config: %v", err)

		return 1
	}

	if *mode != "" {
		cfg.Selection.ForwardMode = *mode
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		log.Printf("failed to open log file: %v", err)

		return 1
	}
	defer closeLog()

	plan, err := cfg.Validate()
	if err != nil {
		logger.Error().Err(err).Msg("invalid configuration")

		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg, plan, &logger)

	// Start health server in background
	go func() {
		if err := application.StartHealthServer(ctx); err != nil {
			application.Logger().Error().Err(err).Msg("health check server error")
		}
	}()

	_, err = application.Run(ctx)

	return exitCode(application.Logger(), err)
}

func exitCode(logger *zerolog.Logger, err error) int {
	var rateErr *apperrors.RateLimitError

	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		logger.Info().Msg("forwarding stopped")

		return 0
	case errors.As(err, &rateErr):
		logger.Error().Dur("wait", rateErr.Wait).Msg("rate limited by Telegram, run aborted")
		fmt.Fprintf(os.Stderr, "Telegram requires waiting %s before sending again. Re-run later.\n", rateErr.Wait)

		return 1
	case errors.Is(err, apperrors.ErrResolution):
		logger.Error().Err(err).Msg("cannot resolve chat")

		return 1
	default:
		logger.Error().Err(err).Msg("forwarding failed")

		return 1
	}
}

func newLogger(cfg *config.Config) (zerolog.Logger, func(), error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var console io.Writer = os.Stderr
	if cfg.AppEnv == "local" {
		console = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	closeLog := func() {}
	out := console

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return zerolog.Logger{}, closeLog, err
		}

		closeLog = func() { _ = f.Close() } //nolint:errcheck // closing on exit
		out = zerolog.MultiLevelWriter(console, f)
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger(), closeLog, nil
}
