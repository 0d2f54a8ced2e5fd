package remotetree

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func pngData(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 80, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newSampleTree(t *testing.T) *Memory {
	t.Helper()
	m := NewMemory("assets")
	m.Put("dragon/dragon.stl", []byte("solid dragon\nendsolid dragon\n"))
	m.Put("dragon/render.png", pngData(t, 800, 400))
	m.Put("dragon/parts/head.obj", []byte("v 0 0 0\n"))
	m.Put("readme.txt", []byte("hello"))
	return m
}

func TestMemoryList(t *testing.T) {
	m := newSampleTree(t)
	ctx := context.Background()

	root, err := m.List(ctx, "")
	if err != nil {
		t.Fatalf("List root: %v", err)
	}
	if len(root) != 2 {
		t.Fatalf("root items = %d, want 2: %+v", len(root), root)
	}
	if !root[0].IsFolder() || root[0].ID != "dragon/" || root[0].Name != "dragon" {
		t.Errorf("root[0] = %+v, want folder dragon/", root[0])
	}
	if root[1].IsFolder() || root[1].Name != "readme.txt" {
		t.Errorf("root[1] = %+v, want file readme.txt", root[1])
	}

	items, err := m.List(ctx, "dragon/")
	if err != nil {
		t.Fatalf("List dragon: %v", err)
	}
	var names []string
	for _, it := range items {
		names = append(names, it.Name)
	}
	want := []string{"dragon.stl", "parts", "render.png"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	for _, it := range items {
		switch it.Name {
		case "render.png":
			if it.ThumbnailLink == "" {
				t.Error("image should carry a thumbnail link")
			}
			if it.MimeType != "image/png" {
				t.Errorf("MimeType = %q, want image/png", it.MimeType)
			}
		case "dragon.stl":
			if it.ThumbnailLink != "" {
				t.Error("model should not carry a thumbnail link")
			}
		}
	}
}

func TestMemoryListFailure(t *testing.T) {
	m := newSampleTree(t)
	boom := errors.New("quota exceeded")
	m.FailList("dragon/", boom)

	if _, err := m.List(context.Background(), "dragon/"); !errors.Is(err, boom) {
		t.Errorf("List error = %v, want %v", err, boom)
	}
	if _, err := m.List(context.Background(), ""); err != nil {
		t.Errorf("other folders should still list: %v", err)
	}
}

func TestMemoryDownload(t *testing.T) {
	m := newSampleTree(t)
	ctx := context.Background()

	var buf bytes.Buffer
	if err := m.Download(ctx, "readme.txt", &buf); err != nil {
		t.Fatalf("Download: %v", err)
	}
	if buf.String() != "hello" {
		t.Errorf("content = %q", buf.String())
	}

	tests := []struct {
		id   string
		want error
	}{
		{"dragon", ErrNotDownloadable},
		{"dragon/", ErrNotDownloadable},
		{"missing.zip", ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if err := m.Download(ctx, tt.id, &bytes.Buffer{}); !errors.Is(err, tt.want) {
				t.Errorf("Download(%q) = %v, want %v", tt.id, err, tt.want)
			}
		})
	}
}

func TestMemoryStat(t *testing.T) {
	m := newSampleTree(t)
	ctx := context.Background()

	item, err := m.Stat(ctx, "dragon/dragon.stl")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if item.Name != "dragon.stl" || item.Size == 0 {
		t.Errorf("item = %+v", item)
	}
	if _, err := m.Stat(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Stat missing = %v, want ErrNotFound", err)
	}
}

func TestMemoryThumbnail(t *testing.T) {
	m := newSampleTree(t)
	ctx := context.Background()

	thumb, err := m.Thumbnail(ctx, m.codec.link("dragon/render.png"), 250)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(thumb))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if cfg.Width != 250 || cfg.Height != 125 {
		t.Errorf("thumbnail = %dx%d, want 250x125", cfg.Width, cfg.Height)
	}

	if _, err := m.Thumbnail(ctx, m.codec.link("dragon/dragon.stl"), 250); !errors.Is(err, ErrNoThumbnail) {
		t.Errorf("model thumbnail = %v, want ErrNoThumbnail", err)
	}

	m.Put("big.part1.rar", []byte("Rar!"))
	m.SetThumbnail("big.part1.rar", pngData(t, 100, 100))
	item, err := m.Stat(ctx, "big.part1.rar")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if item.ThumbnailLink == "" {
		t.Fatal("registered thumbnail should set a link")
	}
	if _, err := m.Thumbnail(ctx, item.ThumbnailLink, 400); err != nil {
		t.Errorf("registered thumbnail: %v", err)
	}
}

func TestMemoryLoadDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "robot", "stl"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "robot", "stl", "arm.stl"), []byte("solid arm"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "top.zip"), []byte("PK"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewMemory("")
	if err := m.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir: %v", err)
	}

	var buf bytes.Buffer
	if err := m.Download(context.Background(), "robot/stl/arm.stl", &buf); err != nil {
		t.Fatalf("Download loaded file: %v", err)
	}
	if buf.String() != "solid arm" {
		t.Errorf("content = %q", buf.String())
	}
	if _, err := m.Stat(context.Background(), "top.zip"); err != nil {
		t.Errorf("Stat top.zip: %v", err)
	}
}

func TestLinkRoundTrip(t *testing.T) {
	m := NewMemory("assets")
	tests := []string{"a.zip", "folder/with space/file #1.stl", "dir/"}
	for _, key := range tests {
		t.Run(key, func(t *testing.T) {
			link := m.codec.link(key)
			got, ok := m.IDFromLink(link)
			if !ok || got != key {
				t.Errorf("IDFromLink(%q) = %q, %v; want %q", link, got, ok, key)
			}
		})
	}

	for _, bad := range []string{"", "https://elsewhere/x", "memory://assets/"} {
		if _, ok := m.IDFromLink(bad); ok {
			t.Errorf("IDFromLink(%q) should fail", bad)
		}
	}
}

func TestNormalizeRootID(t *testing.T) {
	m := NewMemory("assets")
	tests := []struct {
		location string
		want     string
	}{
		{"", ""},
		{"models", "models/"},
		{"/models/", "models/"},
		{"s3://assets/models/cars", "models/cars/"},
		{"memory://assets/models/cars", "models/cars/"},
		{"  models  ", "models/"},
	}
	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			if got := NormalizeRootID(m, tt.location); got != tt.want {
				t.Errorf("NormalizeRootID(%q) = %q, want %q", tt.location, got, tt.want)
			}
		})
	}
}

func TestRootName(t *testing.T) {
	m := NewMemory("assets")
	ctx := context.Background()
	for id, want := range map[string]string{"": "assets", "/": "assets", "Copy of Dragon/": "Copy of Dragon", "a/b/": "b"} {
		got, err := m.RootName(ctx, id)
		if err != nil || got != want {
			t.Errorf("RootName(%q) = %q, %v; want %q", id, got, err, want)
		}
	}
}

func TestNewBackends(t *testing.T) {
	ctx := context.Background()

	if _, err := New(ctx, Config{Type: "ftp"}); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("New(ftp) = %v, want ErrUnknownBackend", err)
	}
	if _, err := New(ctx, Config{Type: "minio"}); err == nil {
		t.Error("minio without endpoint should fail")
	}
	if _, err := New(ctx, Config{Type: "s3"}); err == nil {
		t.Error("s3 without bucket should fail")
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.stl"), []byte("solid a"), 0o644); err != nil {
		t.Fatal(err)
	}
	tree, err := New(ctx, Config{Type: "memory", Bucket: "seed", SeedDir: dir})
	if err != nil {
		t.Fatalf("New(memory): %v", err)
	}
	items, err := tree.List(ctx, "")
	if err != nil || len(items) != 1 || items[0].Name != "a.stl" {
		t.Errorf("seeded list = %+v, %v", items, err)
	}
}
