package pipeline

import (
	"context"
	"fmt"

	"asset-catalog/internal/backfill"
	"asset-catalog/internal/database"
	"asset-catalog/internal/indexer"
	"asset-catalog/internal/lease"
	"asset-catalog/internal/memory"
	"asset-catalog/internal/remotetree"
	"asset-catalog/internal/startup"
)

// leaseName is the catalog row used by the database lease.
const leaseName = "backfill"

// Pipeline is the trigger surface of the catalog: one scan entry point and
// the two backfill variants.
type Pipeline struct {
	db        *database.Database
	indexer   *indexer.Indexer
	scheduler *backfill.Scheduler
	monitor   *memory.Monitor
	leaseKind string
}

// New wires an indexer and a backfill scheduler over db. tree may be nil
// when no remote backend is configured.
func New(cfg *startup.Config, db *database.Database, tree remotetree.Tree) (*Pipeline, error) {
	l, err := newLease(cfg, db)
	if err != nil {
		return nil, err
	}

	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()

	return &Pipeline{
		db:      db,
		indexer: indexer.New(db, tree),
		scheduler: backfill.New(db, tree, l, monitor, backfill.Config{
			Workers:    cfg.Backfill.Workers,
			BatchSize:  cfg.Backfill.BatchSize,
			ScratchDir: cfg.Paths.ScratchDir,
		}),
		monitor:   monitor,
		leaseKind: cfg.Backfill.Lease,
	}, nil
}

func newLease(cfg *startup.Config, db *database.Database) (lease.Lease, error) {
	switch cfg.Backfill.Lease {
	case "", startup.LeaseFile:
		return lease.NewFile(cfg.Paths.ScratchDir), nil
	case startup.LeaseDatabase:
		return lease.NewRow(db, leaseName, lease.DefaultTTL), nil
	}
	return nil, fmt.Errorf("unknown lease kind %q", cfg.Backfill.Lease)
}

// Scan walks every registered source and upserts what it finds.
func (p *Pipeline) Scan(ctx context.Context) (indexer.Result, error) {
	return p.indexer.Scan(ctx)
}

// Backfill runs one sequential sweep.
func (p *Pipeline) Backfill(ctx context.Context) (backfill.Result, error) {
	return p.scheduler.Run(ctx)
}

// BackfillParallel runs one sweep with the configured worker pool.
func (p *Pipeline) BackfillParallel(ctx context.Context) (backfill.Result, error) {
	return p.scheduler.RunParallel(ctx)
}

// Workers returns the width of a parallel sweep.
func (p *Pipeline) Workers() int {
	return p.scheduler.Width()
}

// LeaseKind returns the configured lease implementation.
func (p *Pipeline) LeaseKind() string {
	if p.leaseKind == "" {
		return startup.LeaseFile
	}
	return p.leaseKind
}

// Close stops the memory monitor. The database stays open.
func (p *Pipeline) Close() {
	p.monitor.Stop()
}
