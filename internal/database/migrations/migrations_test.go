package migrations

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "catalog.db")+"?_foreign_keys=on")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateUpFreshDatabase(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	for _, table := range []string{"source", "asset", "lease", "schema_migrations"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s was not created: %v", table, err)
		}
	}
}

func TestMigrateUpIdempotent(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("first MigrateUp() failed: %v", err)
	}
	if err := MigrateUp(db); err != nil {
		t.Errorf("second MigrateUp() failed: %v", err)
	}
	if err := CheckStatus(db); err != nil {
		t.Errorf("CheckStatus() after double migration: %v", err)
	}
}

func TestCheckStatus(t *testing.T) {
	db := openTestDB(t)

	if err := CheckStatus(db); err == nil {
		t.Error("CheckStatus() on a fresh database should fail")
	}

	if err := MigrateTo(db, 1); err != nil {
		t.Fatalf("MigrateTo(1): %v", err)
	}
	if err := CheckStatus(db); err == nil {
		t.Error("CheckStatus() on an outdated database should fail")
	}

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp(): %v", err)
	}
	if err := CheckStatus(db); err != nil {
		t.Errorf("CheckStatus() after migration: %v", err)
	}
}

func TestLatestVersion(t *testing.T) {
	got, err := LatestVersion()
	if err != nil {
		t.Fatalf("LatestVersion(): %v", err)
	}
	if got != 3 {
		t.Errorf("LatestVersion() = %d, want 3", got)
	}
}

func TestLegacySentinelConversion(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateTo(db, 1); err != nil {
		t.Fatalf("MigrateTo(1): %v", err)
	}

	if _, err := db.Exec(`INSERT INTO source (id, name, kind, location) VALUES (1, 'lib', 'local', '/lib')`); err != nil {
		t.Fatalf("insert source: %v", err)
	}
	rows := []struct {
		path     string
		attempts int
		blob     []byte
	}{
		{"/lib/done.zip", 10, []byte{0xff, 0xd8}},
		{"/lib/never.rar", 99, nil},
		{"/lib/retry.stl", 2, nil},
		{"/lib/fresh.obj", 0, nil},
		{"/lib/lucky.7z", 1, []byte{0xff, 0xd8}},
	}
	for _, r := range rows {
		_, err := db.Exec(`INSERT INTO asset (filename, filepath, source_id, thumbnail_attempts, thumbnail_blob)
			VALUES (?, ?, 1, ?, ?)`, filepath.Base(r.path), r.path, r.attempts, r.blob)
		if err != nil {
			t.Fatalf("insert %s: %v", r.path, err)
		}
	}

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp(): %v", err)
	}

	want := map[string]struct {
		status   string
		attempts int
	}{
		"/lib/done.zip":  {"succeeded", 0},
		"/lib/never.rar": {"skipped", 3},
		"/lib/retry.stl": {"pending", 2},
		"/lib/fresh.obj": {"pending", 0},
		"/lib/lucky.7z":  {"succeeded", 1},
	}
	for path, w := range want {
		t.Run(path, func(t *testing.T) {
			var status string
			var attempts int
			err := db.QueryRow(`SELECT thumbnail_status, thumbnail_attempts FROM asset WHERE filepath = ?`, path).
				Scan(&status, &attempts)
			if err != nil {
				t.Fatalf("query: %v", err)
			}
			if status != w.status || attempts != w.attempts {
				t.Errorf("got (%s, %d), want (%s, %d)", status, attempts, w.status, w.attempts)
			}
		})
	}
}

func TestMigrateDownRestoresSentinels(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp(): %v", err)
	}
	if _, err := db.Exec(`INSERT INTO source (id, name, kind, location) VALUES (1, 'lib', 'local', '/lib')`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`INSERT INTO asset (filename, filepath, source_id, thumbnail_status) VALUES
		('a.zip', '/lib/a.zip', 1, 'succeeded'), ('b.rar', '/lib/b.rar', 1, 'skipped')`); err != nil {
		t.Fatal(err)
	}

	if err := MigrateTo(db, 1); err != nil {
		t.Fatalf("MigrateTo(1): %v", err)
	}

	got := map[string]int{}
	res, err := db.Query(`SELECT filepath, thumbnail_attempts FROM asset`)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = res.Close() }()
	for res.Next() {
		var p string
		var n int
		if err := res.Scan(&p, &n); err != nil {
			t.Fatal(err)
		}
		got[p] = n
	}
	if got["/lib/a.zip"] != 10 || got["/lib/b.rar"] != 99 {
		t.Errorf("sentinels after down migration = %v", got)
	}
}
