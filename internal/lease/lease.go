package lease

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"asset-catalog/internal/logging"
)

// ErrLeaseHeld is returned by Acquire when another sweep owns the lease.
var ErrLeaseHeld = errors.New("lease held by another sweep")

// Lease grants exclusive ownership of the backfill. Acquire never blocks.
type Lease interface {
	Acquire(ctx context.Context) (func(), error)
}

// FileName is the lock file created inside the scratch directory.
const FileName = "worker.lock"

// File is a lease on an advisory flock of <dir>/worker.lock. The kernel
// drops it when the process dies.
type File struct {
	path string
}

// NewFile returns a file lease rooted at dir.
func NewFile(dir string) *File {
	return &File{path: filepath.Join(dir, FileName)}
}

// Path returns the lock file path.
func (l *File) Path() string {
	return l.path
}

func (l *File) Acquire(_ context.Context) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return nil, fmt.Errorf("create lease directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lease file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrLeaseHeld
		}
		return nil, fmt.Errorf("lock %s: %w", l.path, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
				logging.Warn("Failed to unlock %s: %v", l.path, err)
			}
			_ = f.Close()
		})
	}, nil
}

// Store persists lease rows. *database.Database implements it.
type Store interface {
	AcquireLease(ctx context.Context, name, holder string, ttl time.Duration) (bool, error)
	ReleaseLease(ctx context.Context, name, holder string) error
}

// DefaultTTL bounds how long a crashed holder blocks other sweeps.
const DefaultTTL = 6 * time.Hour

// Row is a lease held as a catalog row owned by a random holder id. It
// expires after TTL so a crashed sweep cannot block forever.
type Row struct {
	store  Store
	name   string
	holder string
	ttl    time.Duration
}

// NewRow returns a row lease named name.
func NewRow(store Store, name string, ttl time.Duration) *Row {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Row{store: store, name: name, holder: uuid.NewString(), ttl: ttl}
}

// Holder returns the id this lease writes into the row.
func (l *Row) Holder() string {
	return l.holder
}

func (l *Row) Acquire(ctx context.Context) (func(), error) {
	ok, err := l.store.AcquireLease(ctx, l.name, l.holder, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("acquire lease %s: %w", l.name, err)
	}
	if !ok {
		return nil, ErrLeaseHeld
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The sweep context may already be cancelled.
			if err := l.store.ReleaseLease(context.Background(), l.name, l.holder); err != nil {
				logging.Warn("Failed to release lease %s: %v", l.name, err)
			}
		})
	}, nil
}
