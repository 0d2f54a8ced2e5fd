package backfill

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"asset-catalog/internal/database"
	"asset-catalog/internal/filesystem"
	"asset-catalog/internal/lease"
	"asset-catalog/internal/logging"
	"asset-catalog/internal/memory"
	"asset-catalog/internal/metrics"
	"asset-catalog/internal/remotetree"
	"asset-catalog/internal/workers"
)

const (
	// DefaultBatchSize is the number of pending assets one sweep selects.
	DefaultBatchSize = 100

	// maxWorkers caps automatic pool sizing.
	maxWorkers = 16
)

// Config configures a Scheduler.
type Config struct {
	// Workers is the parallel pool width; 0 sizes it from the CPU count.
	Workers int
	// BatchSize bounds how many assets a sweep selects.
	BatchSize int
	// ScratchDir holds the per-worker scratch directories.
	ScratchDir string
	// SkipSiblingPrepass disables marking assets covered by a same-named image.
	SkipSiblingPrepass bool
}

// Scheduler selects pending assets and hands them to workers.
type Scheduler struct {
	db      *database.Database
	tree    remotetree.Tree
	lease   lease.Lease
	monitor *memory.Monitor
	config  Config
}

// Result summarises one sweep.
type Result struct {
	Selected  int
	Succeeded int
	Skipped   int
	Retried   int
	Failed    int   // outcomes that could not be recorded
	Siblings  int64 // assets marked by the sibling pre-pass
	Workers   int
	Duration  time.Duration
	LeaseHeld bool // another sweep owned the lease; nothing was written
}

// New creates a Scheduler. tree may be nil when every source is local and
// monitor may be nil to disable memory back-pressure.
func New(db *database.Database, tree remotetree.Tree, l lease.Lease, monitor *memory.Monitor, config Config) *Scheduler {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.ScratchDir == "" {
		config.ScratchDir = filepath.Join(os.TempDir(), "asset-catalog")
	}
	return &Scheduler{
		db:      db,
		tree:    tree,
		lease:   l,
		monitor: monitor,
		config:  config,
	}
}

// Width returns the number of workers a parallel sweep starts.
func (s *Scheduler) Width() int {
	return workers.Resolve(s.config.Workers, maxWorkers)
}

// Run performs a sequential sweep: the parallel pipeline with one worker.
func (s *Scheduler) Run(ctx context.Context) (Result, error) {
	return s.sweep(ctx, 1)
}

// RunParallel performs a sweep with Width workers.
func (s *Scheduler) RunParallel(ctx context.Context) (Result, error) {
	return s.sweep(ctx, s.Width())
}

// tally collects outcomes across workers.
type tally struct {
	succeeded atomic.Int64
	skipped   atomic.Int64
	retried   atomic.Int64
	failed    atomic.Int64
}

func (s *Scheduler) sweep(ctx context.Context, width int) (Result, error) {
	release, err := s.lease.Acquire(ctx)
	if errors.Is(err, lease.ErrLeaseHeld) {
		logging.Info("Another backfill sweep is active, exiting without changes")
		metrics.BackfillLeaseContention.Inc()
		return Result{LeaseHeld: true}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("acquiring backfill lease: %w", err)
	}
	defer release()

	metrics.BackfillRunning.Set(1)
	defer metrics.BackfillRunning.Set(0)

	startTime := time.Now()
	var result Result

	if !s.config.SkipSiblingPrepass {
		marked, err := s.db.MarkSiblingImages(ctx)
		if err != nil {
			return result, fmt.Errorf("sibling pre-pass: %w", err)
		}
		if marked > 0 {
			logging.Info("Skipped %d assets already covered by a sibling image", marked)
		}
		result.Siblings = marked
	}

	items, err := s.db.SelectPending(ctx, s.config.BatchSize)
	if err != nil {
		return result, fmt.Errorf("selecting pending assets: %w", err)
	}
	metrics.BackfillBatchSize.Set(float64(len(items)))
	result.Selected = len(items)
	if len(items) == 0 {
		logging.Info("No assets are waiting for a thumbnail")
		result.Duration = time.Since(startTime)
		return result, nil
	}

	if width > len(items) {
		width = len(items)
	}
	logging.Info("Backfilling %d assets with %d workers", len(items), width)

	jobs := make(chan database.PendingAsset)
	var (
		wg sync.WaitGroup
		t  tally
	)
	for i := 0; i < width; i++ {
		w, err := s.newWorker(ctx, i)
		if err != nil {
			logging.Error("Worker %d could not start: %v", i, err)
			continue
		}
		result.Workers++
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer w.close()
			w.run(ctx, jobs, &t)
		}()
	}
	if result.Workers == 0 {
		close(jobs)
		return result, errors.New("no backfill worker could start")
	}

feed:
	for _, item := range items {
		select {
		case jobs <- item:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	result.Succeeded = int(t.succeeded.Load())
	result.Skipped = int(t.skipped.Load())
	result.Retried = int(t.retried.Load())
	result.Failed = int(t.failed.Load())
	result.Duration = time.Since(startTime)

	logging.Info("Backfill complete: %d succeeded, %d skipped, %d to retry, %d failed to record in %v",
		result.Succeeded, result.Skipped, result.Retried, result.Failed, result.Duration)

	if stats, err := s.db.GetStats(); err == nil {
		metrics.Publish(stats)
	}
	return result, ctx.Err()
}

// newWorker opens a dedicated catalog handle and scratch directory.
func (s *Scheduler) newWorker(ctx context.Context, id int) (*worker, error) {
	scratch := filepath.Join(s.config.ScratchDir, fmt.Sprintf("worker-%d", id))
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}

	db, err := database.Open(ctx, s.db.Path())
	if err != nil {
		_ = os.RemoveAll(scratch)
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	return &worker{
		id:      id,
		db:      db,
		tree:    s.tree,
		scratch: scratch,
		monitor: s.monitor,
		retry:   filesystem.DefaultRetryConfig(),
	}, nil
}
