// Package main provides the leadscout binary entry point.
// LeadScout is an autonomous job agent that turns multi-step research
// requests into executable plans, submits them to a harness, and keeps
// the user informed while adapting the plan when steps fail.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/leadscout/leadscout/channel"
	"github.com/leadscout/leadscout/config"
	"github.com/leadscout/leadscout/harness"
	"github.com/leadscout/leadscout/job"
	"github.com/leadscout/leadscout/llm"
	"github.com/leadscout/leadscout/metric"
	"github.com/leadscout/leadscout/orchestrator"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "leadscout"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "leadscout",
		Short: "Autonomous lead research agent",
		Long: `LeadScout is an autonomous job agent for multi-step lead research.

It detects complex requests in chat, generates a step-by-step plan with
a completion model, submits the plan to an execution harness, streams
progress notifications back to the user, and adapts the plan when a
step fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, logLevel)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	// Version command
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func run(configPath, logLevel string) error {
	// Print banner
	printBanner()

	// Configure logging
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Load configuration
	cfg := config.DefaultConfig()
	if configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg.Merge(loaded)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Setup signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Shared HTTP client for harness and Telegram traffic
	httpClient := &http.Client{Timeout: cfg.Harness.Timeout}

	// Completion client for planning and recovery
	completion := llm.NewClient(cfg.Model.Endpoint, cfg.Model.Name, cfg.Model.APIKey,
		llm.WithHTTPClient(&http.Client{Timeout: cfg.Model.Timeout}),
		llm.WithLogger(logger))

	harnessClient := harness.NewClient(cfg.Harness.URL,
		harness.WithHTTPClient(httpClient),
		harness.WithLogger(logger))

	// Optional NATS connection for lessons and fan-out notifications
	var nc *nats.Conn
	if cfg.NATS.URL != "" {
		var err error
		nc, err = nats.Connect(cfg.NATS.URL,
			nats.Name(appName),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second))
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		defer nc.Close()
		logger.Info("Connected to NATS", "url", cfg.NATS.URL)
	}

	if cfg.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required (set TELEGRAM_BOT_TOKEN)")
	}

	tg := channel.NewTelegramChannel(cfg.Telegram.BotToken,
		channel.WithTelegramLogger(logger))

	// Notifications go to Telegram, mirrored to NATS when configured
	var ch channel.Channel = tg
	if nc != nil {
		ch = channel.Tee(tg, channel.NewNATSChannel(nc))
	}

	planner := job.NewPlanner(completion, logger)
	recovery := job.NewRecoveryPlanner(completion, logger)

	var orchOpts []orchestrator.Option
	orchOpts = append(orchOpts,
		orchestrator.WithLogger(logger),
		orchestrator.WithPollIntervals(cfg.Poll.Interval, cfg.Poll.ErrorBackoff))
	if nc != nil {
		orchOpts = append(orchOpts, orchestrator.WithReflector(
			orchestrator.NewReflector(completion, nc, logger)))
	}

	orch := orchestrator.New(planner, recovery, harnessClient, ch, orchOpts...)
	defer orch.Monitor().StopAll()

	// Metrics endpoint
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metric.Handler())
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			logger.Info("Metrics endpoint listening", "addr", cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// Watch the config file; validated updates are logged so operators
	// can confirm an edit was picked up. Running jobs keep the intervals
	// they started with.
	if configPath != "" {
		watcher, err := config.NewWatcher(configPath, logger)
		if err != nil {
			return fmt.Errorf("create config watcher: %w", err)
		}
		if err := watcher.Start(ctx); err != nil {
			return fmt.Errorf("start config watcher: %w", err)
		}
		defer func() { _ = watcher.Stop() }()

		go func() {
			for updated := range watcher.Updates() {
				logger.Info("Configuration reloaded",
					"poll_interval", updated.Poll.Interval,
					"harness_url", updated.Harness.URL)
			}
		}()
	}

	slog.Info("LeadScout ready",
		"version", Version,
		"harness_url", cfg.Harness.URL,
		"model", cfg.Model.Name)

	// Receive Telegram messages and route them through the orchestrator
	messages := make(chan channel.IncomingMessage, 64)
	listenErr := make(chan error, 1)
	go func() {
		listenErr <- tg.Listen(ctx, messages)
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Received shutdown signal")
			slog.Info("LeadScout shutdown complete")
			return nil

		case err := <-listenErr:
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("telegram listener: %w", err)

		case msg := <-messages:
			handled, err := orch.HandleMessage(ctx, msg.UserID, msg.ChannelID, msg.Content, 0)
			if err != nil {
				logger.Error("Message handling failed",
					"user_id", msg.UserID,
					"error", err)
				continue
			}
			if !handled {
				if err := ch.Send(ctx, channel.OutgoingMessage{
					ChannelID: msg.ChannelID,
					Content:   "I handle multi-step research tasks. Try something like: \"Find 20 plumbers in Austin and get me their contact info\".",
				}); err != nil {
					logger.Warn("Reply send failed", "error", err)
				}
			}
		}
	}
}

func printBanner() {
	fmt.Println("╔═══════════════════════════════════════════════╗")
	fmt.Println("║            LeadScout v" + Version + "                    ║")
	fmt.Println("║       Autonomous Lead Research Agent          ║")
	fmt.Println("╚═══════════════════════════════════════════════╝")
}
