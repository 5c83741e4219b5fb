// Package main is the entry point for the food-log responder. It runs as
// an AWS Lambda handler for SES receipt events, or as a local one-shot
// process when given an event file.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/mealpost/foodlog-responder/internal/config"
	"github.com/mealpost/foodlog-responder/internal/handler"
	"github.com/mealpost/foodlog-responder/internal/nutrition"
	"github.com/mealpost/foodlog-responder/internal/sender"
	"github.com/mealpost/foodlog-responder/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file (optional)")
	eventPath := flag.String("event", "", "path to a JSON receipt event for a local one-shot run (optional)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Logging.Level)

	ctx := context.Background()

	store, err := storage.New(ctx, storage.StoreConfig{
		Region:          cfg.Storage.Region,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		Bucket:          cfg.Storage.Bucket,
		Folder:          cfg.Storage.Folder,
	})
	if err != nil {
		slog.Error("failed to create storage client", "error", err)
		os.Exit(1)
	}

	api := nutrition.New(nutrition.Config{
		BaseURL: cfg.Nutrition.BaseURL,
		AppID:   cfg.Nutrition.AppID,
		AppKey:  cfg.Nutrition.AppKey,
		APICode: cfg.Nutrition.APICode,
	})

	snd := selectSender(ctx, cfg)

	h := handler.New(cfg, store, api, snd)

	slog.Info("starting foodlog-responder",
		"bucket", cfg.Storage.Bucket,
		"folder", cfg.Storage.Folder,
		"nutrition_mode", cfg.Nutrition.Mode,
		"sender", snd.Name(),
	)

	if *eventPath != "" {
		runOnce(ctx, h, *eventPath)
		return
	}

	lambda.Start(h.Handle)
}

// runOnce reads a receipt event from disk and processes it once. This is
// the local development path; there is no server surface.
func runOnce(ctx context.Context, h *handler.Handler, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Error("failed to read event file", "path", path, "error", err)
		os.Exit(1)
	}

	var e events.SimpleEmailEvent
	if err := json.Unmarshal(data, &e); err != nil {
		slog.Error("failed to parse event file", "path", path, "error", err)
		os.Exit(1)
	}

	if err := h.Handle(ctx, e); err != nil {
		slog.Error("event processing failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration from the specified path (YAML + env
// override). Without an explicit path it picks the production or
// development file depending on whether we run inside Lambda, falling
// back to environment-only configuration when neither file exists.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}

	defaultPath := "config/development.yaml"
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		defaultPath = "config/production.yaml"
	}
	if _, err := os.Stat(defaultPath); err == nil {
		return config.LoadFromFile(defaultPath)
	}

	return config.Load()
}

// setupLogger configures the global slog logger with JSON output and the
// specified log level.
func setupLogger(level string) {
	var logLevel slog.Level

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// selectSender chooses the outbound mail backend based on configuration:
// SES when explicitly selected or configured, stdout otherwise.
func selectSender(ctx context.Context, cfg *config.Config) sender.Sender {
	switch cfg.Sender {
	case "ses":
		s, err := sender.NewSES(ctx, sender.SESConfig{
			Region:          cfg.SES.Region,
			AccessKeyID:     cfg.SES.AccessKeyID,
			SecretAccessKey: cfg.SES.SecretAccessKey,
		})
		if err != nil {
			slog.Error("failed to create SES sender", "error", err)
			os.Exit(1)
		}
		return s

	case "stdout":
		return sender.NewStdout()

	case "":
		if cfg.SESConfigured() {
			s, err := sender.NewSES(ctx, sender.SESConfig{
				Region:          cfg.SES.Region,
				AccessKeyID:     cfg.SES.AccessKeyID,
				SecretAccessKey: cfg.SES.SecretAccessKey,
			})
			if err != nil {
				slog.Error("failed to create SES sender", "error", err)
				os.Exit(1)
			}
			return s
		}
		slog.Info("no sender configured, printing replies to stdout")
		return sender.NewStdout()

	default:
		slog.Error("unknown sender", "sender", cfg.Sender)
		os.Exit(1)
		return nil
	}
}
