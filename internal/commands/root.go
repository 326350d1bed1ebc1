// Package commands implements the unihost command line interface.
package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/avolkov/unihost/internal/app"
	"github.com/avolkov/unihost/internal/config"
)

// Version is set from main at build time
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "unihost",
	Short: "Reconcile PowerMax host definitions against Unisphere",
	Long: `unihost reconciles declared host (initiator group) definitions against
the live state of a PowerMax/VMAX array reported by Unisphere: it creates
missing hosts, adjusts initiator membership and port flags, renames and
deletes hosts, and reports whether anything changed. The array is the single
source of truth; every run re-fetches state before deciding.`,
}

// Execute runs the root command
func Execute() error {
	rootCmd.Version = Version
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "path to configuration file")

	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(historyCmd)
}

// withApp loads configuration, sets up logging, connects to Unisphere and
// runs fn. Resources are released on every exit path.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	return runWithApp(true, fn)
}

// withOfflineApp is withApp without the Unisphere session, for verbs that
// only touch local state.
func withOfflineApp(fn func(ctx context.Context, a *app.App) error) error {
	return runWithApp(false, fn)
}

func runWithApp(connect bool, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level, cfg.Log.UseJSON, cfg.Log.Colors)

	application, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.Warn().Err(err).Msg("Error releasing resources")
		}
	}()

	ctx := signalContext()
	if connect {
		if err := application.Connect(ctx); err != nil {
			return err
		}
	}

	return fn(ctx, application)
}

// signalContext creates a context that is cancelled when SIGINT or SIGTERM
// is received.
func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	return ctx
}

func setupLogging(level string, useJSON bool, colors bool) {
	// ISO 8601 format with timezone
	zerolog.TimeFieldFormat = time.RFC3339

	if useJSON {
		// JSON output for automation
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		// Text output (with optional colors)
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !colors,
		})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
