package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"asset-catalog/internal/database/migrations"
	"asset-catalog/internal/logging"
	"asset-catalog/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// FileName is the catalog file created inside the database directory.
const FileName = "catalog.db"

// Database is a handle on the catalog.
type Database struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// Batch is a transaction opened by BeginBatch.
type Batch struct {
	*sql.Tx
	start time.Time
}

// New opens the shared catalog handle and migrates the schema.
// dbPath is the full path to the database FILE and its parent directory must
// already exist and be writable (startup.LoadConfig validates this).
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Database path: %s", dbPath)

	if err := diagnoseDatabasePermissions(dbPath); err != nil {
		logging.Warn("Database permission diagnostics: %v", err)
	}

	d, err := open(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	// Readers run concurrently under WAL; writers serialize on busy_timeout.
	d.db.SetMaxOpenConns(8)
	d.db.SetMaxIdleConns(4)
	d.db.SetConnMaxLifetime(time.Hour)

	start := time.Now()
	err = migrations.MigrateUp(d.db)
	recordQuery("initialize_schema", start, err)
	if err != nil {
		d.closeAfter("migration")
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return d, nil
}

// Open returns a dedicated single-connection handle on an already migrated
// catalog. Each backfill worker owns one.
func Open(ctx context.Context, dbPath string) (*Database, error) {
	d, err := open(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	d.db.SetMaxOpenConns(1)
	d.db.SetMaxIdleConns(1)

	if err := migrations.CheckStatus(d.db); err != nil {
		d.closeAfter("schema check")
		return nil, fmt.Errorf("catalog schema not ready: %w", err)
	}
	return d, nil
}

func open(ctx context.Context, dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Database{db: db, dbPath: dbPath}, nil
}

// dsn enables WAL and foreign keys on every pooled connection. busy_timeout
// prevents "database is locked" errors between the walker and the workers.
func dsn(dbPath string) string {
	return fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate", dbPath)
}

func (d *Database) closeAfter(stage string) {
	if err := d.db.Close(); err != nil {
		logging.Error("failed to close database after %s failure: %v", stage, err)
	}
}

// Path returns the catalog file path.
func (d *Database) Path() string {
	return d.dbPath
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// BeginBatch starts a transaction. The caller must hand it to EndBatch.
func (d *Database) BeginBatch(ctx context.Context) (*Batch, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()
	tx, err := d.db.BeginTx(ctx, nil)
	recordQuery("begin_transaction", start, err)
	if err != nil {
		return nil, err
	}
	return &Batch{Tx: tx, start: start}, nil
}

// EndBatch commits b, or rolls it back when err is non-nil.
func (d *Database) EndBatch(b *Batch, err error) error {
	duration := time.Since(b.start).Seconds()

	if err != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(duration)
		rbErr := b.Rollback()
		recordQuery("rollback", b.start, rbErr)
		if rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}

	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(duration)
	commitErr := b.Commit()
	recordQuery("commit", b.start, commitErr)
	return commitErr
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// UpdateDBMetrics publishes the on-disk size of the catalog files.
func (d *Database) UpdateDBMetrics() {
	for file, suffix := range map[string]string{"main": "", "wal": "-wal", "shm": "-shm"} {
		size := 0.0
		if info, err := os.Stat(d.dbPath + suffix); err == nil {
			size = float64(info.Size())
		}
		metrics.DBSizeBytes.WithLabelValues(file).Set(size)
	}
}

// diagnoseDatabasePermissions checks that the database directory is
// writable and repairs read-only WAL/SHM files left behind by another user.
func diagnoseDatabasePermissions(dbPath string) error {
	dir := filepath.Dir(dbPath)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat database directory: %w", err)
	}
	logging.Debug("Database directory: %s (mode: %v)", dir, dirInfo.Mode())

	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("database directory not writable: %w", err)
	}
	_ = os.Remove(testFile)

	if info, err := os.Stat(dbPath); err == nil && info.Mode().Perm()&0o200 == 0 {
		logging.Warn("Database file is read-only! Mode: %v", info.Mode())
	}

	for _, side := range []string{dbPath + "-wal", dbPath + "-shm"} {
		info, err := os.Stat(side)
		if err != nil || info.Mode().Perm()&0o200 != 0 {
			continue
		}
		logging.Warn("%s is read-only! Mode: %v - this will cause write failures", filepath.Base(side), info.Mode())
		if chmodErr := os.Chmod(side, 0o600); chmodErr != nil {
			logging.Error("Failed to fix %s permissions: %v", filepath.Base(side), chmodErr)
		} else {
			logging.Info("Fixed %s permissions", filepath.Base(side))
		}
	}
	return nil
}
