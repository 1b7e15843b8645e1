package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/petal-labs/tradingflow/cli"
	"github.com/petal-labs/tradingflow/config"
	tfotel "github.com/petal-labs/tradingflow/otel"
)

// Set via ldflags at build time.
var version = "dev"

// shutdown flushes the trace exporter installed by setupTelemetry.
var shutdown tfotel.ShutdownFunc = func(context.Context) error { return nil }

func main() {
	err := rootCmd.ExecuteContext(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if serr := shutdown(ctx); serr != nil {
		slog.Warn("flushing traces", "error", serr)
	}
	cancel()

	if err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tradingflow",
	Short: "Trading workflow compiler CLI",
	Long:  "tradingflow: validate, compile and generate multi-agent trading workflow configurations.",
	// SilenceUsage prevents printing usage on every error
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text | json")
	rootCmd.PersistentFlags().String("otlp-endpoint", "", "Export compile traces to this OTLP/HTTP endpoint")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf("tradingflow version %s\n", version))

	rootCmd.AddCommand(cli.NewValidateCmd())
	rootCmd.AddCommand(cli.NewCompileCmd())
	rootCmd.AddCommand(cli.NewDefaultCmd())
	rootCmd.AddCommand(cli.NewNodeTypesCmd())
}

// setup installs the default logger and, when an endpoint is configured,
// the trace exporter.
func setup(cmd *cobra.Command, _ []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	quiet, _ := cmd.Flags().GetBool("quiet")
	logFormat, _ := cmd.Flags().GetString("log-format")
	endpoint, _ := cmd.Flags().GetString("otlp-endpoint")

	logger, err := newLogger(cmd.ErrOrStderr(), logFormat, verbose, quiet)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if endpoint == "" {
		s, err := config.Resolve(nil)
		if err != nil {
			return err
		}
		endpoint = s.OTLPEndpoint
	}
	handler, stop, err := tfotel.Setup(cmd.Context(), endpoint)
	if err != nil {
		return err
	}
	shutdown = stop
	if handler != nil {
		cmd.SetContext(cli.WithEventHandler(cmd.Context(), handler))
		logger.Debug("exporting traces", "endpoint", endpoint)
	}
	return nil
}

func newLogger(w io.Writer, format string, verbose, quiet bool) (*slog.Logger, error) {
	level := slog.LevelWarn
	switch {
	case quiet:
		level = slog.LevelError
	case verbose:
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	switch format {
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
