package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"pwabuilder/internal/gateway/config"
	"pwabuilder/internal/gateway/handler"
	"pwabuilder/internal/gateway/handler/rpc"
	"pwabuilder/internal/gateway/run"
	"pwabuilder/internal/gateway/server"
	"pwabuilder/internal/gateway/service/generation"
)

type App struct {
	server *server.Server
	closer io.Closer
}

// New wires config, stores, the generation service and the HTTP surface.
func New(ctx context.Context, args []string) (*App, error) {
	cfg, err := config.Load(args)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewWithConfig(ctx, cfg)
}

func NewWithConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	store, closer, err := initOutputStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	format, err := cfg.ImportFormatter()
	if err != nil {
		_ = closer.Close()
		return nil, err
	}

	generationSvc := generation.New(store,
		generation.WithImportFormatter(format),
		generation.WithStrictDefault(cfg.Strict),
		generation.WithTraceLogger(run.NewTraceLogger(cfg.TraceDir)),
	)

	generationHandler := rpc.NewGenerationHandler(generationSvc)
	traceHandler := handler.NewTraceHandler(generationSvc)

	mux := server.NewMux(generationHandler, traceHandler, cfg.CORSOrigins)
	return &App{
		server: server.New(cfg.Port, mux),
		closer: closer,
	}, nil
}

func (a *App) Start() error {
	return a.server.Start()
}

// Run serves until ctx ends, then shuts the server down and releases the
// output store.
func (a *App) Run(ctx context.Context) error {
	return errors.Join(a.server.Serve(ctx), a.closer.Close())
}

func (a *App) Shutdown(ctx context.Context) error {
	return errors.Join(a.server.Shutdown(ctx), a.closer.Close())
}
