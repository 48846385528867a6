package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"anm/internal/config"
	"anm/internal/handler"
	"anm/internal/hub"
	"anm/internal/loader"
	"anm/internal/repository/sqlite"
	"anm/internal/service"
	"anm/internal/watcher"
)

func main() {
	configPath := flag.String("config", "", "config file path (default: search $ANM_CONFIG, ./anm.yaml, XDG and /etc)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	modelFile := flag.String("model", "", "model file (.json or .yaml) to load at startup (overrides config)")
	watch := flag.Bool("watch", false, "reload the model file when it changes")
	flag.Parse()

	cfg, source, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "path", source, "error", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *modelFile != "" {
		cfg.Model.File = *modelFile
	}
	if *watch {
		cfg.Model.Watch = true
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	if source == "" {
		source = "defaults"
	}
	logger.Info("starting threat model editor", "config", source, "settings", cfg.Summary())

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

func run(cfg *config.Config, logger *slog.Logger) error {
	repo, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer repo.Close()
	logger.Info("database opened", "path", cfg.Database.Path)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eventBus := service.NewEventBus()

	sseHub := hub.New(logger.With("component", "hub"))
	go sseHub.Run(ctx)
	go sseHub.Forward(ctx, eventBus)

	graphSvc := service.NewGraphService(repo, eventBus, logger.With("component", "service"), service.Options{
		Strict: cfg.Export.Strict,
		Format: cfg.Export.Format,
	})
	if cfg.Model.File != "" {
		if err := startModelFile(ctx, cfg.Model, graphSvc, logger); err != nil {
			return err
		}
	}

	graphHandler := handler.NewGraphHandler(graphSvc, logger.With("component", "handler"))

	mux := http.NewServeMux()
	graphHandler.RegisterRoutes(mux)
	mux.Handle("GET /events", sseHub)

	server := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: handler.Chain(mux,
			handler.Recover(logger),
			handler.CORS(cfg.Server.CORSOrigins),
			handler.Logger(logger),
		),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration(),
		WriteTimeout: cfg.Server.WriteTimeout.Duration(),
		IdleTimeout:  cfg.Server.IdleTimeout.Duration(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}

// startModelFile loads the configured model file and, when asked, reloads it
// on every change
func startModelFile(ctx context.Context, mc config.ModelConfig, svc *service.GraphService, logger *slog.Logger) error {
	loaded, err := loader.LoadModelFile(ctx, svc, mc.File)
	if err != nil {
		return err
	}
	logger.Info("model file loaded", "path", mc.File, "nodes", len(loaded.Graph.Nodes))

	if !mc.Watch {
		return nil
	}
	w := watcher.New(mc.File, func() {
		if _, err := loader.LoadModelFile(ctx, svc, mc.File); err != nil {
			logger.Warn("failed to reload model file", "path", mc.File, "error", err)
		}
	}, logger.With("component", "watcher"))
	go func() {
		if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("model file watcher stopped", "path", mc.File, "error", err)
		}
	}()
	return nil
}
