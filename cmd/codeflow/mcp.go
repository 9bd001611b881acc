package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rendis/codeflow/internal/logging"
	codeflowmcp "github.com/rendis/codeflow/pkg/mcp"
)

func newMCPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve codeflow tools over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runMCP(ctx, cfg)
		},
	}
}

// runMCP serves until stdin closes. Logs go to stderr; stdout carries the
// protocol.
func runMCP(ctx context.Context, cfg Config) error {
	logger, _ := newLogger(os.Stderr, cfg.LogLevel)
	ctx = logging.WithTransport(ctx, "mcp")

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	s := codeflowmcp.NewCodeflowServer(codeflowmcp.CodeflowServerDeps{
		Generator: a.generator,
		Store:     a.store,
		Logger:    logger,
		Version:   version,
	})

	notifyCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := codeflowmcp.NewBuildNotifier(s, a.hub).Run(notifyCtx); err != nil {
			logger.Warn("build notifications stopped", slog.String("error", err.Error()))
		}
	}()

	logger.Info("codeflow MCP server ready", slog.Bool("history", a.store != nil), slog.String("version", version))
	return s.Serve(ctx)
}
