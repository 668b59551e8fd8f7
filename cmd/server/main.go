// Command server runs the rttp demo HTTP/1.1 server.
//
// Configuration is read from a YAML file (see pkg/config) and RTTP_*
// environment variables:
//
//	RTTP_CONFIG     - Path to the config file
//	RTTP_ADDR       - Listen address (default: ":8080")
//	RTTP_PORT       - Listen port, keeping the configured host
//	RTTP_LOG_LEVEL  - ERROR, WARN, INFO, DEBUG or TRACE
//	RTTP_DEBUG      - Debug categories: server, protocol, router, pipeline, config, all
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rhuss/rttp/pkg/config"
	"github.com/rhuss/rttp/pkg/debug"
	"github.com/rhuss/rttp/pkg/server"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rttp",
		Short:         "A small HTTP/1.1 server with a middleware pipeline and router",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newVersionCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var (
		configPath string
		addr       string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if addr != "" {
				cfg.Server.Addr = addr
				if err := cfg.Validate(); err != nil {
					return fmt.Errorf("invalid --addr: %w", err)
				}
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to the YAML config file")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rttp %s\n", version)
		},
	}
}

// serve wires the configured pipeline into a server and runs it until ctx
// is cancelled.
func serve(ctx context.Context, cfg *config.Config) error {
	debug.Init(cfg.Log.Debug, cfg.Log.Level, cfg.Log.Format)
	logger := slog.Default()

	if cats := debug.Categories(); len(cats) > 0 {
		slog.Info("debug categories enabled", "categories", cats)
	}

	shutdownTracing, err := setupTracing(ctx, cfg.Observability.Tracing)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Warn("tracer shutdown failed", "error", err)
		}
	}()

	var srv *server.Server
	handler := buildHandler(cfg, logger, func() bool { return srv.ShuttingDown() })
	srv = server.New(handler,
		server.WithConfig(server.Config{
			Addr:              cfg.Server.Addr,
			MaxRequestSize:    cfg.Server.MaxRequestSize,
			InitialBufferSize: cfg.Server.InitialBufferSize,
			ReadTimeout:       cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
			IdleTimeout:       cfg.Server.IdleTimeout,
			ShutdownTimeout:   cfg.Server.ShutdownTimeout,
			Logger:            logger,
		}),
	)

	err = srv.ListenAndServe(ctx)
	if errors.Is(err, server.ErrServerClosed) {
		return nil
	}
	return err
}
