package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/nwaples/rardecode/v2"

	"asset-catalog/internal/logging"
	"asset-catalog/internal/metrics"
	"asset-catalog/internal/sniff"
)

// MaxReadSize caps the size of a single entry returned by Read.
const MaxReadSize = 64 << 20

var (
	// ErrUnsupported is returned for kinds that are not archives.
	ErrUnsupported = errors.New("unsupported archive kind")
	// ErrEntryNotFound is returned by Read when no entry has the given name.
	ErrEntryNotFound = errors.New("archive entry not found")
	// ErrEntryTooLarge is returned by Read for entries above MaxReadSize.
	ErrEntryTooLarge = errors.New("archive entry too large")

	errStop = errors.New("stop")
)

// Entry is a regular file inside an archive.
type Entry struct {
	Name string // slash-separated path inside the archive
	Size int64  // uncompressed size
}

// IsJunk reports whether an entry path contains a hidden component or a
// macOS resource fork directory.
func IsJunk(name string) bool {
	for _, part := range strings.Split(cleanName(name), "/") {
		if part == "__MACOSX" || strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

func cleanName(name string) string {
	return strings.TrimPrefix(strings.ReplaceAll(name, "\\", "/"), "./")
}

type opener func() (io.ReadCloser, error)

// visitFunc is called for every non-junk regular file. Returning errStop
// ends iteration without error.
type visitFunc func(e Entry, open opener) error

// List enumerates the archive at path without extracting it.
func List(path string, kind sniff.Kind) ([]Entry, error) {
	if err := checkPart(path); err != nil {
		return nil, err
	}
	f, size, err := openSized(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return ListReader(f, size, kind)
}

// ListReader enumerates an archive held by r.
func ListReader(r io.ReaderAt, size int64, kind sniff.Kind) ([]Entry, error) {
	var entries []Entry
	err := walk(r, size, kind, func(e Entry, _ opener) error {
		entries = append(entries, e)
		return nil
	})
	record(kind, "list", err)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Read returns the contents of the entry called name.
func Read(path string, kind sniff.Kind, name string) ([]byte, error) {
	if err := checkPart(path); err != nil {
		return nil, err
	}
	f, size, err := openSized(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var data []byte
	found := false
	err = walk(f, size, kind, func(e Entry, open opener) error {
		if e.Name != cleanName(name) {
			return nil
		}
		found = true
		if e.Size > MaxReadSize {
			return fmt.Errorf("%s: %w", e.Name, ErrEntryTooLarge)
		}
		rc, err := open()
		if err != nil {
			return fmt.Errorf("open entry %s: %w", e.Name, err)
		}
		defer func() { _ = rc.Close() }()

		data, err = io.ReadAll(io.LimitReader(rc, MaxReadSize+1))
		if err != nil {
			return fmt.Errorf("read entry %s: %w", e.Name, err)
		}
		if int64(len(data)) > MaxReadSize {
			return fmt.Errorf("%s: %w", e.Name, ErrEntryTooLarge)
		}
		return errStop
	})
	if err == nil && !found {
		err = fmt.Errorf("%s: %w", name, ErrEntryNotFound)
	}
	record(kind, "read", err)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// ExtractAll writes every non-junk entry of the archive at path under dest.
// Entries that would land outside dest are skipped.
func ExtractAll(path string, kind sniff.Kind, dest string) error {
	if err := checkPart(path); err != nil {
		return err
	}
	f, size, err := openSized(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	root, err := filepath.Abs(dest)
	if err != nil {
		return fmt.Errorf("resolve destination: %w", err)
	}

	err = walk(f, size, kind, func(e Entry, open opener) error {
		target, ok := safeJoin(root, e.Name)
		if !ok {
			logging.Warn("Skipping archive entry outside destination: %s", e.Name)
			return nil
		}
		return extractEntry(target, open)
	})
	record(kind, "extract", err)
	return err
}

func safeJoin(root, name string) (string, bool) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", false
	}
	target := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return target, true
}

func extractEntry(target string, open opener) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", target, err)
	}

	rc, err := open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", target, err)
	}
	defer func() { _ = rc.Close() }()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return fmt.Errorf("write %s: %w", target, err)
	}
	return out.Close()
}

func openSized(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open archive: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("stat archive: %w", err)
	}
	return f, info.Size(), nil
}

func walk(r io.ReaderAt, size int64, kind sniff.Kind, fn visitFunc) error {
	var err error
	switch kind {
	case sniff.Zip:
		err = walkZip(r, size, fn)
	case sniff.SevenZip:
		err = walkSevenZip(r, size, fn)
	case sniff.Rar:
		err = walkRar(r, size, fn)
	default:
		return fmt.Errorf("%s: %w", kind, ErrUnsupported)
	}
	if errors.Is(err, errStop) {
		return nil
	}
	return err
}

func walkZip(r io.ReaderAt, size int64, fn visitFunc) error {
	zr, err := zip.NewReader(r, size)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return fmt.Errorf("read zip: %w", err)
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || IsJunk(f.Name) {
			continue
		}
		if err := fn(Entry{Name: cleanName(f.Name), Size: int64(f.UncompressedSize64)}, f.Open); err != nil {
			return err
		}
	}
	return nil
}

func walkSevenZip(r io.ReaderAt, size int64, fn visitFunc) error {
	zr, err := sevenzip.NewReader(r, size)
	if err != nil {
		return fmt.Errorf("read 7z: %w", err)
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || IsJunk(f.Name) {
			continue
		}
		if err := fn(Entry{Name: cleanName(f.Name), Size: int64(f.UncompressedSize)}, f.Open); err != nil {
			return err
		}
	}
	return nil
}

func walkRar(r io.ReaderAt, size int64, fn visitFunc) error {
	err := walkRarVolume(r, size, fn)
	// A stream has no file name to derive the next volume from.
	if errors.Is(err, rardecode.ErrFileNameRequired) {
		return fmt.Errorf("%w: %w", ErrSpansVolumes, err)
	}
	return err
}

func walkRarVolume(r io.ReaderAt, size int64, fn visitFunc) error {
	rr, err := rardecode.NewReader(io.NewSectionReader(r, 0, size))
	if err != nil {
		return fmt.Errorf("read rar: %w", err)
	}
	for {
		hdr, err := rr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read rar header: %w", err)
		}
		if hdr.IsDir || IsJunk(hdr.Name) {
			continue
		}
		// Rar is a stream: the entry body is only readable until Next.
		open := func() (io.ReadCloser, error) { return io.NopCloser(rr), nil }
		if err := fn(Entry{Name: cleanName(hdr.Name), Size: hdr.UnPackedSize}, open); err != nil {
			return err
		}
	}
}

func record(kind sniff.Kind, op string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.ArchiveOperationsTotal.WithLabelValues(kind.String(), op, status).Inc()
}
