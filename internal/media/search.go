package media

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"asset-catalog/internal/archive"
	"asset-catalog/internal/logging"
	"asset-catalog/internal/sniff"
)

// BestImageInArchive scores every image entry of the archive at path and
// returns the best one as a normalized thumbnail. When the winner cannot be
// decoded the next-best entry is tried.
func BestImageInArchive(path string, kind sniff.Kind) ([]byte, error) {
	entries, err := archive.List(path, kind)
	if err != nil {
		return nil, err
	}

	var cands []Candidate
	for _, e := range entries {
		if IsImageName(e.Name) {
			cands = append(cands, Candidate{Name: e.Name, Size: e.Size})
		}
	}

	return firstNormalized(Rank(cands), func(c Candidate) ([]byte, error) {
		return archive.Read(path, kind, c.Name)
	})
}

// BestImageInDir walks an extracted tree and picks a thumbnail with the
// folder rule: the first image named like a render or screenshot, otherwise
// the best scoring image.
func BestImageInDir(dir string) ([]byte, error) {
	cands, err := imagesInTree(dir)
	if err != nil {
		return nil, err
	}

	pick, ok := PickFolder(cands)
	if !ok {
		return nil, ErrNoImage
	}
	ordered := []Candidate{pick}
	for _, c := range Rank(cands) {
		if c.Name != pick.Name {
			ordered = append(ordered, c)
		}
	}

	return firstNormalized(ordered, func(c Candidate) ([]byte, error) {
		return os.ReadFile(filepath.Join(dir, filepath.FromSlash(c.Name)))
	})
}

// imagesInTree lists image files below dir as slash paths relative to it,
// in lexical walk order, skipping junk entries.
func imagesInTree(dir string) ([]Candidate, error) {
	var cands []Candidate
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if archive.IsJunk(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsImageName(rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		cands = append(cands, Candidate{Name: rel, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	return cands, nil
}

func firstNormalized(ordered []Candidate, read func(Candidate) ([]byte, error)) ([]byte, error) {
	if len(ordered) == 0 {
		return nil, ErrNoImage
	}

	var errs []error
	for _, c := range ordered {
		data, err := read(c)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Name, err))
			continue
		}
		thumb, err := Normalize(data, ThumbnailEdge, ThumbnailQuality)
		if err != nil {
			logging.Debug("Candidate %s could not be normalized: %v", c.Name, err)
			errs = append(errs, fmt.Errorf("%s: %w", c.Name, err))
			continue
		}
		return thumb, nil
	}
	return nil, fmt.Errorf("%w: %w", ErrNoImage, errors.Join(errs...))
}
