package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/rendis/codeflow/internal/flowchart"
	"github.com/rendis/codeflow/internal/logging"
	"github.com/rendis/codeflow/internal/retention"
	"github.com/rendis/codeflow/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API (POST /parse and friends)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for key, flag := range map[string]string{
				"listen_addr": "listen",
				"db_path":     "db",
				"store":       "store",
			} {
				if err := opts.v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return err
				}
			}
			cfg, err := opts.config()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts, cfg)
		},
	}
	cmd.Flags().String("listen", ":3002", "listen address")
	cmd.Flags().String("db", "", "history database path")
	cmd.Flags().Bool("store", true, "keep a diagram history")
	return cmd
}

func runServe(ctx context.Context, opts *rootOptions, cfg Config) error {
	logger, lv := newLogger(os.Stderr, cfg.LogLevel)
	ctx = logging.WithTransport(ctx, "http")

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.store != nil {
		ret, err := retention.New(a.store, retention.Config{
			MaxAge:   cfg.Retention.MaxAge,
			Schedule: cfg.Retention.Schedule,
		}, logger)
		if err != nil {
			return err
		}
		if err := ret.Start(ctx); err != nil {
			return err
		}
		defer ret.Stop()
	}

	r := newReloader(a, cfg, lv)

	opts.v.OnConfigChange(func(e fsnotify.Event) {
		newCfg, err := opts.config()
		if err != nil {
			logger.Warn("config reload rejected", slog.String("file", e.Name), slog.String("error", err.Error()))
			return
		}
		r.apply(newCfg)
	})
	if opts.v.ConfigFileUsed() != "" {
		if _, statErr := os.Stat(opts.v.ConfigFileUsed()); statErr == nil {
			opts.v.WatchConfig()
		}
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r.live,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("codeflow listening",
			slog.String("addr", cfg.ListenAddr),
			slog.Bool("history", a.store != nil),
			slog.String("version", version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// reloader applies config file changes to a running server. Log level takes
// effect immediately; classifier changes rebuild the generator and swap the
// live route; everything else is reported as needing a restart.
type reloader struct {
	mu      sync.Mutex
	app     *app
	cfg     Config
	level   *slog.LevelVar
	live    *liveHandler
}

func newReloader(a *app, cfg Config, lv *slog.LevelVar) *reloader {
	r := &reloader{app: a, cfg: cfg, level: lv}
	r.live = newLiveHandler(a.generator, r.handler(a.generator))
	return r
}

func (r *reloader) handler(gen *flowchart.Generator) http.Handler {
	return server.New(server.Deps{
		Generator:    gen,
		Validator:    r.app.validator,
		Store:        r.app.store,
		Hub:          r.app.hub,
		Logger:       r.app.logger,
		Version:      version,
		MaxBodyBytes: int64(r.cfg.MaxCodeBytes)*2 + 1024,
	}).Handler()
}

func (r *reloader) apply(newCfg Config) configDiff {
	r.mu.Lock()
	defer r.mu.Unlock()

	d := diffConfigs(r.cfg, newCfg)
	logger := r.app.logger

	if d.LogLevelChanged {
		r.level.Set(logging.ParseLevel(newCfg.LogLevel))
		r.cfg.LogLevel = newCfg.LogLevel
		logger.Info("log level changed", slog.String("level", newCfg.LogLevel))
	}

	if d.ClassifierChanged {
		gen, err := r.app.newGenerator(newCfg.Classifier)
		if err != nil {
			logger.Warn("classifier reload rejected, keeping previous rules", slog.String("error", err.Error()))
		} else {
			r.app.generator = gen
			r.cfg.Classifier = newCfg.Classifier
			r.live.install(gen, r.handler(gen))
			logger.Info("classifier reloaded",
				slog.String("engine", newCfg.Classifier.Engine),
				slog.Int("rules", len(newCfg.Classifier.Rules)),
			)
		}
	}

	if len(d.RestartNeeded) > 0 {
		logger.Warn("config changes need a restart", slog.Any("fields", d.RestartNeeded))
	}
	return d
}
