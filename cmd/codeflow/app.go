package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rendis/codeflow/internal/classify"
	"github.com/rendis/codeflow/internal/flowchart"
	"github.com/rendis/codeflow/internal/store"
	"github.com/rendis/codeflow/internal/streaming"
	"github.com/rendis/codeflow/internal/validation"
)

// app is the wired set of components shared by serve and mcp.
type app struct {
	cfg       Config
	logger    *slog.Logger
	store     store.Store // nil when history is disabled
	hub       *streaming.MemoryHub
	validator *validation.JSONSchemaValidator
	generator *flowchart.Generator
}

// newApp opens the store (when enabled), compiles the classifier, and builds
// the generator.
func newApp(ctx context.Context, cfg Config, logger *slog.Logger) (*app, error) {
	v, err := validation.NewJSONSchemaValidator()
	if err != nil {
		return nil, fmt.Errorf("init validator: %w", err)
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		hub:       streaming.NewMemoryHub(),
		validator: v,
	}

	if cfg.Store {
		s, err := store.NewLibSQLStore("file:" + cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("migrate store: %w", err)
		}
		a.store = s
	}

	gen, err := a.newGenerator(cfg.Classifier)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.generator = gen
	return a, nil
}

// newGenerator builds a generator with a classifier compiled from cc.
func (a *app) newGenerator(cc ClassifierConfig) (*flowchart.Generator, error) {
	c, err := classify.NewFromConfig(cc.Engine, cc.Rules)
	if err != nil {
		return nil, fmt.Errorf("init classifier: %w", err)
	}
	return flowchart.New(flowchart.Deps{
		Classifier:     c,
		Store:          a.store,
		Hub:            a.hub,
		Logger:         a.logger,
		MaxSourceBytes: a.cfg.MaxCodeBytes,
	}), nil
}

// Close releases the store.
func (a *app) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}
