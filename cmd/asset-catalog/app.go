package main

import (
	"context"
	"fmt"
	"time"

	"asset-catalog/internal/database"
	"asset-catalog/internal/filesystem"
	"asset-catalog/internal/logging"
	"asset-catalog/internal/media"
	"asset-catalog/internal/memory"
	"asset-catalog/internal/metrics"
	"asset-catalog/internal/middleware"
	"asset-catalog/internal/pipeline"
	"asset-catalog/internal/remotetree"
	"asset-catalog/internal/startup"
)

const collectInterval = 15 * time.Second

// app holds everything a command needs. The caller must defer app.Close().
type app struct {
	cfg       *startup.Config
	db        *database.Database
	tree      remotetree.Tree
	pipeline  *pipeline.Pipeline
	server    *metrics.Server
	collector *metrics.Collector
	vips      bool
}

// newApp loads the configuration, opens the catalog and builds the remote
// tree and pipeline. A catalog that cannot be opened is fatal.
func newApp(ctx context.Context) (*app, error) {
	startup.LogMemoryConfig(memory.ConfigureFromEnv())

	cfg, err := startup.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	metrics.InitializeMetrics()
	build := startup.GetBuildInfo()
	metrics.SetAppInfo(build.Version, build.Commit, build.GoVersion)
	filesystem.SetObserver(metrics.NewFilesystemObserver())

	dbStart := time.Now()
	db, err := database.New(ctx, cfg.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	startup.LogDatabaseInit(time.Since(dbStart))

	a := &app{cfg: cfg, db: db}
	a.registerVolumes(ctx)

	if cfg.Remote.Enabled() {
		a.tree, err = remotetree.New(ctx, cfg.Remote.TreeConfig())
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("remote backend: %w", err)
		}
	}

	a.pipeline, err = pipeline.New(cfg, db, a.tree)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// registerVolumes labels filesystem metrics by volume.
func (a *app) registerVolumes(ctx context.Context) {
	volumes := map[string]string{
		"catalog": a.cfg.Paths.DatabaseDir,
		"scratch": a.cfg.Paths.ScratchDir,
	}
	sources, err := a.db.ListSources(ctx)
	if err != nil {
		logging.Warn("Could not list sources for volume labels: %v", err)
	}
	for _, src := range sources {
		if src.Kind == database.SourceLocal {
			volumes["source"] = src.Location
			break
		}
	}
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(volumes))
}

// startWork prepares the long-running parts of scan and backfill: libvips
// and, when configured, the metrics server.
func (a *app) startWork() error {
	if err := media.InitVips(); err != nil {
		logging.Warn("libvips unavailable, decoding with imaging only: %v", err)
	} else {
		a.vips = true
	}

	if a.cfg.Metrics.Listen == "" {
		return nil
	}
	srv, err := metrics.Serve(a.cfg.Metrics.Listen,
		middleware.Metrics(),
		middleware.Logger(middleware.DefaultLoggingConfig()),
	)
	if err != nil {
		return err
	}
	a.server = srv
	startup.LogMetricsServer(srv.Addr())

	a.collector = metrics.NewCollector(a.db, collectInterval)
	a.collector.Start()
	return nil
}

// requireTree returns the remote tree or an error naming the missing config.
func (a *app) requireTree() (remotetree.Tree, error) {
	if a.tree == nil {
		return nil, fmt.Errorf("remote sources need a [remote] backend in the configuration")
	}
	return a.tree, nil
}

func (a *app) Close() {
	if a.collector != nil {
		a.collector.Stop()
	}
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.server.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		}
		cancel()
	}
	if a.pipeline != nil {
		a.pipeline.Close()
	}
	if a.vips {
		media.ShutdownVips()
	}
	if err := a.db.Close(); err != nil {
		logging.Warn("Closing catalog: %v", err)
	}
}
