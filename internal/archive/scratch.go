package archive

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"asset-catalog/internal/logging"
)

// WithScratch creates a uniquely named directory under base, runs fn with
// it, and removes the directory afterwards. Removal also happens when fn
// panics; the panic is then re-raised.
func WithScratch(base string, fn func(dir string) error) error {
	dir := filepath.Join(base, "extract-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create scratch directory: %w", err)
	}

	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logging.Warn("Failed to remove scratch directory %s: %v", dir, err)
		}
	}()

	return fn(dir)
}
