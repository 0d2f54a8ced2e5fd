package indexer

import (
	"context"
	"errors"
	"testing"

	"asset-catalog/internal/database"
	"asset-catalog/internal/remotetree"
)

func viewLink(t *testing.T, tree remotetree.Tree, key string) string {
	t.Helper()
	item, err := tree.Stat(context.Background(), key)
	if err != nil {
		t.Fatalf("Stat(%s): %v", key, err)
	}
	return item.ViewLink
}

func TestScanRemoteLayouts(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	tree := remotetree.NewMemory("assets")
	tree.Put("figures/dragon/dragon.zip", zipData(t, map[string][]byte{"a.png": pngData(t, 10, 10)}))
	tree.Put("figures/dragon/cover.png", pngData(t, 500, 250))
	tree.Put("figures/split/set.part2.rar", []byte("Rar!\x1a\x07\x00part2"))
	tree.Put("figures/split/set.part1.rar", []byte("Rar!\x1a\x07\x00part1"))
	tree.Put("figures/split/set.part3.rar", []byte("Rar!\x1a\x07\x00part3"))
	tree.Put("figures/mixed/loose.stl", []byte(asciiSTL))
	tree.Put("figures/mixed/bundle.7z", []byte("7z\xbc\xaf\x27\x1c"))
	tree.Put("figures/mixed/inner/a.obj", []byte("v 0 0 0\n"))
	tree.Put("figures/mixed/inner/b.stl", []byte(asciiSTL))
	tree.Put("figures/images/only.png", pngData(t, 5, 5))
	tree.Put("figures/broken/x.zip", []byte("PK"))
	tree.FailList("figures/broken/", errors.New("listing timed out"))

	src, err := db.AddSource(ctx, "figures", database.SourceRemoteTree, "figures/")
	if err != nil {
		t.Fatal(err)
	}

	result, err := New(db, tree).Scan(ctx)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.Errors != 1 {
		t.Errorf("Errors = %d, want 1 for the broken folder", result.Errors)
	}
	if result.Sources != 1 {
		t.Errorf("Sources = %d", result.Sources)
	}

	t.Run("files-only folder is one asset", func(t *testing.T) {
		a := mustAsset(t, db, viewLink(t, tree, "figures/dragon/dragon.zip"))
		if a.Filename != "dragon" || a.FolderPath != "dragon" {
			t.Errorf("asset = %q in %q", a.Filename, a.FolderPath)
		}
		if a.FileSize == 0 {
			t.Error("FileSize should be the archive size")
		}
		if a.ThumbnailStatus != database.StatusSucceeded || len(a.ThumbnailBlob) == 0 {
			t.Errorf("the cover image should provide the thumbnail, state %s", a.State())
		}
	})

	t.Run("multipart set is represented by its first volume", func(t *testing.T) {
		a := mustAsset(t, db, viewLink(t, tree, "figures/split/set.part1.rar"))
		if a.Filename != "split" {
			t.Errorf("Filename = %q", a.Filename)
		}
		if a.ThumbnailBlob != nil {
			t.Error("archives have no platform thumbnail")
		}
		if _, err := db.GetAsset(ctx, viewLink(t, tree, "figures/split/set.part2.rar")); err == nil {
			t.Error("later volumes must not be cataloged")
		}
	})

	t.Run("mixed folder registers each file", func(t *testing.T) {
		for _, key := range []string{"figures/mixed/loose.stl", "figures/mixed/bundle.7z"} {
			a := mustAsset(t, db, viewLink(t, tree, key))
			if a.FolderPath != "mixed" {
				t.Errorf("%s FolderPath = %q", key, a.FolderPath)
			}
		}
		// The first model in listing order stands for the folder.
		inner := mustAsset(t, db, viewLink(t, tree, "figures/mixed/inner/a.obj"))
		if inner.Filename != "inner" || inner.FolderPath != "mixed/inner" {
			t.Errorf("inner = %q in %q", inner.Filename, inner.FolderPath)
		}
		if _, err := db.GetAsset(ctx, viewLink(t, tree, "figures/mixed/inner/b.stl")); err == nil {
			t.Error("only the representative model should be cataloged")
		}
	})

	t.Run("image-only folders are ignored", func(t *testing.T) {
		if _, err := db.GetAsset(ctx, viewLink(t, tree, "figures/images/only.png")); err == nil {
			t.Error("image-only folder should not be cataloged")
		}
	})

	count, err := db.CountAssets(ctx, src.ID)
	if err != nil {
		t.Fatal(err)
	}
	if count != 5 {
		t.Errorf("CountAssets = %d, want 5", count)
	}
}

func TestScanRemoteRootFolder(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	tree := remotetree.NewMemory("assets")
	tree.Put("solo/thing.stl", []byte(asciiSTL))
	tree.Put("solo/thing-2.obj", []byte("v 0 0 0\n"))
	tree.SetThumbnail("solo/thing-2.obj", pngData(t, 300, 300))
	if _, err := db.AddSource(ctx, "solo", database.SourceRemoteTree, "solo/"); err != nil {
		t.Fatal(err)
	}

	if _, err := New(db, tree).Scan(ctx); err != nil {
		t.Fatal(err)
	}

	// Listing order is by key, so thing-2.obj comes first.
	a := mustAsset(t, db, viewLink(t, tree, "solo/thing-2.obj"))
	if a.Filename != remoteRootName || a.FolderPath != "" {
		t.Errorf("asset = %q in %q", a.Filename, a.FolderPath)
	}
	if len(a.ThumbnailBlob) == 0 {
		t.Error("the model's platform thumbnail should be used")
	}
}

func TestScanRenamesRemoteSourceFromRoot(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	tree := remotetree.NewMemory("assets")
	tree.Put("Copy of Figures/a.stl", []byte(asciiSTL))
	src, err := db.AddSource(ctx, "Import-Q29weSBvZi", database.SourceRemoteTree, "Copy of Figures/")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := New(db, tree).Scan(ctx); err != nil {
		t.Fatal(err)
	}
	got, err := db.GetSource(ctx, src.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Figures" {
		t.Errorf("Name = %q, want Figures", got.Name)
	}
}

func TestRepresentative(t *testing.T) {
	item := func(name string) remotetree.Item { return remotetree.Item{Name: name, ID: name} }
	pick := func(names ...string) string {
		items := make([]remotetree.Item, len(names))
		for i, n := range names {
			items[i] = item(n)
		}
		kids := classify(items, func(i remotetree.Item) string { return i.Name }, remotetree.Item.IsFolder)
		chosen, ok := representative(kids)
		if !ok {
			return ""
		}
		return chosen.Name
	}

	tests := []struct {
		name  string
		files []string
		want  string
	}{
		{"lowest new-style volume", []string{"x.part3.rar", "x.part2.rar", "x.part10.rar"}, "x.part2.rar"},
		{"old-style volumes", []string{"x.r01", "x.r00"}, "x.r00"},
		{"plain archive wins over volumes", []string{"x.part1.rar", "y.zip"}, "y.zip"},
		{"plain archive wins over models", []string{"a.stl", "b.zip"}, "b.zip"},
		{"first model", []string{"a.stl", "b.obj", "c.png"}, "a.stl"},
		{"volumes next to a model", []string{"x.part1.rar", "m.obj"}, "m.obj"},
		{"nothing usable", []string{"c.png"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pick(tt.files...); got != tt.want {
				t.Errorf("representative = %q, want %q", got, tt.want)
			}
		})
	}
}
