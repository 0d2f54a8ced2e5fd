package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"asset-catalog/internal/database"
	"asset-catalog/internal/lease"
	"asset-catalog/internal/startup"
)

const cubeSTL = `solid c
facet normal 0 0 1
 outer loop
  vertex 0 0 1
  vertex 1 0 1
  vertex 0 1 1
 endloop
endfacet
facet normal 0 -1 0
 outer loop
  vertex 0 0 0
  vertex 1 0 0
  vertex 0 0 1
 endloop
endfacet
facet normal -1 0 0
 outer loop
  vertex 0 0 0
  vertex 0 0 1
  vertex 0 1 0
 endloop
endfacet
endsolid c
`

func setup(t *testing.T, leaseKind string) (*Pipeline, *database.Database, *startup.Config) {
	t.Helper()
	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), database.FileName))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := startup.DefaultConfig()
	cfg.Paths.ScratchDir = t.TempDir()
	cfg.Backfill.Workers = 2
	cfg.Backfill.Lease = leaseKind

	p, err := New(cfg, db, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(p.Close)
	return p, db, cfg
}

func meshZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("model/cube.stl")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(cubeSTL)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestScanThenBackfill(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		name := "sequential"
		if parallel {
			name = "parallel"
		}
		t.Run(name, func(t *testing.T) {
			p, db, _ := setup(t, startup.LeaseFile)
			ctx := context.Background()

			root := t.TempDir()
			if err := os.WriteFile(filepath.Join(root, "pack.zip"), meshZip(t), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := db.AddSource(ctx, "local", database.SourceLocal, root); err != nil {
				t.Fatal(err)
			}

			scan, err := p.Scan(ctx)
			if err != nil {
				t.Fatalf("Scan: %v", err)
			}
			if scan.Assets != 1 {
				t.Fatalf("Assets = %d, want 1", scan.Assets)
			}

			run := p.Backfill
			if parallel {
				run = p.BackfillParallel
			}
			result, err := run(ctx)
			if err != nil {
				t.Fatalf("backfill: %v", err)
			}
			if result.Selected != 1 || result.Succeeded != 1 {
				t.Errorf("result = %+v", result)
			}

			a, err := db.GetAsset(ctx, filepath.Join(root, "pack.zip"))
			if err != nil {
				t.Fatal(err)
			}
			if a.ThumbnailStatus != database.StatusSucceeded || len(a.ThumbnailBlob) == 0 {
				t.Errorf("state = %s", a.State())
			}

			// Nothing is left to do.
			again, err := run(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if again.Selected != 0 {
				t.Errorf("second sweep selected %d", again.Selected)
			}
		})
	}
}

func TestDatabaseLeaseContention(t *testing.T) {
	p, db, _ := setup(t, startup.LeaseDatabase)
	ctx := context.Background()

	other := lease.NewRow(db, leaseName, lease.DefaultTTL)
	release, err := other.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	result, err := p.BackfillParallel(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !result.LeaseHeld {
		t.Error("sweep should report the held lease")
	}

	release()
	result, err = p.Backfill(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if result.LeaseHeld {
		t.Error("lease should be free after release")
	}
}

func TestNewRejectsUnknownLease(t *testing.T) {
	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), database.FileName))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	cfg := startup.DefaultConfig()
	cfg.Backfill.Lease = "zookeeper"
	if _, err := New(cfg, db, nil); err == nil {
		t.Error("expected an error for an unknown lease kind")
	}
}

func TestAccessors(t *testing.T) {
	t.Setenv("BACKFILL_WORKERS", "")
	p, _, _ := setup(t, "")
	if got := p.LeaseKind(); got != startup.LeaseFile {
		t.Errorf("LeaseKind = %q", got)
	}
	if got := p.Workers(); got != 2 {
		t.Errorf("Workers = %d, want 2", got)
	}
}
