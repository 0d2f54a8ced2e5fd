package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrSourceNotFound is returned when no source has the given id.
	ErrSourceNotFound = errors.New("source not found")
	// ErrSourceExists is returned when a source with the same kind and
	// location is already registered.
	ErrSourceExists = errors.New("source already exists")
)

// AddSource registers a source.
func (d *Database) AddSource(ctx context.Context, name string, kind SourceKind, location string) (*Source, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("invalid source kind %q", kind)
	}
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("source name is required")
	}

	start := time.Now()
	var err error
	defer func() { recordQuery("add_source", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var res sql.Result
	res, err = d.db.ExecContext(ctx,
		"INSERT INTO source (name, kind, location) VALUES (?, ?, ?)",
		name, string(kind), location,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%s %s: %w", kind, location, ErrSourceExists)
		}
		return nil, fmt.Errorf("insert source: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return d.GetSource(ctx, id)
}

// GetSource returns the source with id.
func (d *Database) GetSource(ctx context.Context, id int64) (*Source, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx,
		"SELECT id, name, kind, location, created_at FROM source WHERE id = ?", id)
	src, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("source %d: %w", id, ErrSourceNotFound)
	}
	return src, err
}

// ListSources returns every source in id order.
func (d *Database) ListSources(ctx context.Context) ([]Source, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_sources", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rows *sql.Rows
	rows, err = d.db.QueryContext(ctx,
		"SELECT id, name, kind, location, created_at FROM source ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var sources []Source
	for rows.Next() {
		var src *Source
		if src, err = scanSource(rows); err != nil {
			return nil, err
		}
		sources = append(sources, *src)
	}
	err = rows.Err()
	return sources, err
}

// RenameSource changes the display name of a source.
func (d *Database) RenameSource(ctx context.Context, id int64, name string) error {
	return d.execOne(ctx, "rename_source", id,
		"UPDATE source SET name = ? WHERE id = ?", name, id)
}

// RemoveSource deletes a source and, by cascade, its assets.
func (d *Database) RemoveSource(ctx context.Context, id int64) error {
	return d.execOne(ctx, "remove_source", id, "DELETE FROM source WHERE id = ?", id)
}

// execOne runs a statement that must touch exactly the source with id.
func (d *Database) execOne(ctx context.Context, operation string, id int64, query string, args ...any) error {
	start := time.Now()
	var err error
	defer func() { recordQuery(operation, start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var res sql.Result
	if res, err = d.db.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("source %d: %w", id, ErrSourceNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (*Source, error) {
	var (
		src     Source
		kind    string
		created int64
	)
	if err := row.Scan(&src.ID, &src.Name, &kind, &src.Location, &created); err != nil {
		return nil, err
	}
	src.Kind = SourceKind(kind)
	src.CreatedAt = time.Unix(created, 0)
	return &src, nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}
