package cli

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/callcore/internal/control"
	"github.com/vietddude/callcore/internal/core/config"
)

var (
	cfgPath string
	isDebug bool
)

var rootCmd = &cobra.Command{
	Use:   "callcore",
	Short: "Resilient remote-call execution service",
	Long: `callcore runs remote calls with error classification, retry with backoff,
bounded-concurrency batches and supersession-safe call lifecycles.`,
	Run: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the health/metrics server and periodic provider probes",
	Run:   runServe,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(serveCmd)
}

// loadConfig loads the config file and initializes logging. A missing file
// at the default path falls back to built-in defaults.
func loadConfig(cmd *cobra.Command) *config.AppConfig {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	setupLogging(cfg.Logging)
	return cfg
}

func setupLogging(cfg config.LoggingConfig) {
	level := slog.LevelInfo
	if isDebug {
		level = slog.LevelDebug
	} else if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return
	}

	stylelog.InitDefault(&tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	})
}

// newApp builds the application or exits.
func newApp(ctx context.Context, cfg *config.AppConfig) *control.App {
	app, err := control.New(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize app", "error", err)
		os.Exit(1)
	}
	return app
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app := newApp(ctx, cfg)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := app.Start(ctx); err != nil {
		slog.Error("Failed to start app", "error", err)
		os.Exit(1)
	}

	slog.Info("callcore started", "config", cfgPath)

	sig := <-sigChan
	slog.Info("Received signal, shutting down...", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}
}
