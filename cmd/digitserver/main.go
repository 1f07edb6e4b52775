// Command digitserver runs the recognition HTTP API.
//
// Usage: digitserver serve [--listen :8080]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/soaravant/DigitRecognizer/internal/config"
	"github.com/soaravant/DigitRecognizer/internal/infer"
	"github.com/soaravant/DigitRecognizer/internal/registry"
	"github.com/soaravant/DigitRecognizer/internal/server"
	"github.com/soaravant/DigitRecognizer/internal/version"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130) // Standard shell convention for SIGINT
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          "digitserver",
		Short:        "digitserver exposes handwritten digit recognition over HTTP",
		Version:      version.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := log.InfoLevel
			if verbose {
				level = log.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("digitserver %s\n", version.String()))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var (
		listen    string
		modelsDir string
		manifest  string
		cfgPath   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the recognition API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.Listen = listen
			}
			if modelsDir != "" {
				cfg.Inference.ModelsDir = modelsDir
			}
			if manifest != "" {
				cfg.Inference.Manifest = manifest
			}

			reg := registry.Builtin()
			if cfg.Inference.Manifest != "" {
				if reg, err = registry.LoadManifest(cfg.Inference.Manifest); err != nil {
					return err
				}
			}

			engine := infer.NewEngine(reg, nil, infer.Options{
				ModelsDir: cfg.Inference.ModelsDir,
				Logger:    logger,
			})
			defer engine.Close()

			if err := engine.Init(cmd.Context(), cfg.Inference.DefaultModel); err != nil {
				return err
			}
			logger.Info("engine initialized",
				"state", engine.State(),
				"model", engine.ActiveModel(),
				"catalog", reg.Len(),
			)

			return server.New(engine, cfg, logger).ListenAndServe(cmd.Context(), cfg.Server.Listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address, empty=configured value")
	cmd.Flags().StringVar(&modelsDir, "models-dir", "", "model artifact directory")
	cmd.Flags().StringVar(&manifest, "manifest", "", "model manifest path, empty=builtin catalog")
	cmd.Flags().StringVar(&cfgPath, "config", "", "config file path, empty=default location")
	return cmd
}

// newLogger creates a logger with timestamp formatting at the given level.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger attached by PersistentPreRun, or
// the default logger when the context carries none.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
