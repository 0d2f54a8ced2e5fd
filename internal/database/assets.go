package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"asset-catalog/internal/mediatypes"
)

// ErrAssetNotFound is returned when no asset has the given filepath.
var ErrAssetNotFound = errors.New("asset not found")

// siblingCandidates are the asset extensions a same-named image can stand in
// for.
var siblingCandidates = map[string]bool{
	".zip": true,
	".rar": true,
	".7z":  true,
	".stl": true,
	".obj": true,
}

// UpsertAsset inserts an asset or, when its filepath is already cataloged,
// refreshes the size and fills a missing thumbnail. Other columns of an
// existing row are left alone, so rescans never reset attempts or state.
func (d *Database) UpsertAsset(b *Batch, a *Asset) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("upsert_asset", start, err) }()

	query := `
	INSERT INTO asset (filename, filepath, source_id, file_size, thumbnail_blob, folder_path, thumbnail_status)
	VALUES (?, ?, ?, ?, ?, ?, CASE WHEN ? IS NULL THEN 'pending' ELSE 'succeeded' END)
	ON CONFLICT(filepath) DO UPDATE SET
		file_size = excluded.file_size,
		thumbnail_blob = COALESCE(asset.thumbnail_blob, excluded.thumbnail_blob),
		thumbnail_status = CASE
			WHEN asset.thumbnail_blob IS NULL AND excluded.thumbnail_blob IS NOT NULL THEN 'succeeded'
			ELSE asset.thumbnail_status
		END,
		skip_reason = CASE
			WHEN asset.thumbnail_blob IS NULL AND excluded.thumbnail_blob IS NOT NULL THEN NULL
			ELSE asset.skip_reason
		END
	`

	blob := nullableBlob(a.ThumbnailBlob)
	// The transaction controls the statement lifetime.
	_, err = b.ExecContext(context.Background(), query,
		a.Filename, a.Filepath, a.SourceID, a.FileSize, blob, a.FolderPath, blob,
	)
	return err
}

func nullableBlob(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

// GetAsset returns the asset cataloged under filepath.
func (d *Database) GetAsset(ctx context.Context, filepath string) (*Asset, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `
	SELECT id, filename, filepath, source_id, file_size, thumbnail_blob, thumbnail_attempts,
		thumbnail_status, COALESCE(skip_reason, ''), folder_path, COALESCE(tags, ''), created_at
	FROM asset WHERE filepath = ?
	`

	var (
		a       Asset
		status  string
		reason  string
		created int64
	)
	err := d.db.QueryRowContext(ctx, query, filepath).Scan(
		&a.ID, &a.Filename, &a.Filepath, &a.SourceID, &a.FileSize, &a.ThumbnailBlob,
		&a.ThumbnailAttempts, &status, &reason, &a.FolderPath, &a.Tags, &created,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", filepath, ErrAssetNotFound)
	}
	if err != nil {
		return nil, err
	}
	a.ThumbnailStatus = ThumbnailStatus(status)
	a.SkipReason = SkipReason(reason)
	a.CreatedAt = time.Unix(created, 0)
	return &a, nil
}

// CountAssets returns the number of assets of a source.
func (d *Database) CountAssets(ctx context.Context, sourceID int64) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var n int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM asset WHERE source_id = ?", sourceID).Scan(&n)
	return n, err
}

// SelectPending returns up to limit assets that still need a thumbnail,
// least-tried first and newest first within a tie.
func (d *Database) SelectPending(ctx context.Context, limit int) ([]PendingAsset, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("select_pending", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `
	SELECT a.id, a.filename, a.filepath, a.folder_path, a.thumbnail_attempts, s.kind, s.location
	FROM asset a
	JOIN source s ON s.id = a.source_id
	WHERE a.thumbnail_blob IS NULL
		AND a.thumbnail_status = 'pending'
		AND a.thumbnail_attempts < ?
	ORDER BY a.thumbnail_attempts ASC, a.id DESC
	LIMIT ?
	`

	var rows *sql.Rows
	rows, err = d.db.QueryContext(ctx, query, MaxAttempts, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []PendingAsset
	for rows.Next() {
		var (
			p    PendingAsset
			kind string
		)
		if err = rows.Scan(&p.ID, &p.Filename, &p.Filepath, &p.FolderPath, &p.Attempts, &kind, &p.SourceLocation); err != nil {
			return nil, err
		}
		p.SourceKind = SourceKind(kind)
		items = append(items, p)
	}
	err = rows.Err()
	return items, err
}

// RecordSuccess stores the thumbnail of a pending asset. A blob is only
// ever written once.
func (d *Database) RecordSuccess(ctx context.Context, id int64, blob []byte) error {
	if len(blob) == 0 {
		return errors.New("empty thumbnail")
	}
	return d.transition(ctx, "record_success", `
		UPDATE asset SET thumbnail_blob = ?, thumbnail_status = 'succeeded', skip_reason = NULL
		WHERE id = ? AND thumbnail_blob IS NULL AND thumbnail_status = 'pending'
	`, blob, id)
}

// RecordSkip marks a pending asset as permanently skipped.
func (d *Database) RecordSkip(ctx context.Context, id int64, reason SkipReason) error {
	return d.transition(ctx, "record_skip", `
		UPDATE asset SET thumbnail_status = 'skipped', skip_reason = ?
		WHERE id = ? AND thumbnail_status = 'pending'
	`, string(reason), id)
}

// RecordFailure counts one failed attempt against a pending asset.
func (d *Database) RecordFailure(ctx context.Context, id int64) error {
	return d.transition(ctx, "record_failure", `
		UPDATE asset SET thumbnail_attempts = thumbnail_attempts + 1
		WHERE id = ? AND thumbnail_status = 'pending'
	`, id)
}

// transition applies one item outcome in its own committed transaction.
func (d *Database) transition(ctx context.Context, operation, query string, args ...any) error {
	start := time.Now()
	var err error
	defer func() { recordQuery(operation, start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var tx *sql.Tx
	if tx, err = d.db.BeginTx(ctx, nil); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}
	err = tx.Commit()
	return err
}

// MarkSiblingImages skips pending archive and model assets whose folder
// also catalogs an image with the same base name, case-insensitively.
func (d *Database) MarkSiblingImages(ctx context.Context) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("mark_sibling_images", start, err) }()

	var rows *sql.Rows
	rows, err = d.db.QueryContext(ctx, `
		SELECT id, source_id, folder_path, filename, thumbnail_status = 'pending' AND thumbnail_blob IS NULL
		FROM asset
	`)
	if err != nil {
		return 0, err
	}

	type candidate struct {
		id, source int64
		folder     string
		base       string
	}
	images := map[string]bool{}
	var candidates []candidate
	for rows.Next() {
		var (
			c       candidate
			name    string
			pending bool
		)
		if err = rows.Scan(&c.id, &c.source, &c.folder, &name, &pending); err != nil {
			_ = rows.Close()
			return 0, err
		}
		ext := mediatypes.Ext(name)
		switch {
		case mediatypes.ImageExtensions[ext]:
			images[siblingKey(c.source, c.folder, mediatypes.StripExt(name))] = true
		case pending && siblingCandidates[ext]:
			c.base = mediatypes.StripExt(name)
			candidates = append(candidates, c)
		}
	}
	if err = rows.Err(); err != nil {
		_ = rows.Close()
		return 0, err
	}
	_ = rows.Close()

	var tx *sql.Tx
	if tx, err = d.db.BeginTx(ctx, nil); err != nil {
		return 0, err
	}
	var marked int64
	for _, c := range candidates {
		if !images[siblingKey(c.source, c.folder, c.base)] {
			continue
		}
		if _, err = tx.ExecContext(ctx, `
			UPDATE asset SET thumbnail_status = 'skipped', skip_reason = ?
			WHERE id = ? AND thumbnail_status = 'pending'
		`, string(SkipSiblingImage), c.id); err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		marked++
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return marked, nil
}

func siblingKey(source int64, folder, base string) string {
	return fmt.Sprintf("%d\x00%s\x00%s", source, folder, strings.ToLower(base))
}
