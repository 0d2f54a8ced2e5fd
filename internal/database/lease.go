package database

import (
	"context"
	"time"
)

// AcquireLease takes or renews the named lease for holder until ttl from
// now. It reports false without blocking when another holder owns an
// unexpired lease.
func (d *Database) AcquireLease(ctx context.Context, name, holder string, ttl time.Duration) (bool, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("acquire_lease", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now()
	res, err := d.db.ExecContext(ctx, `
		INSERT INTO lease (name, holder, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			holder = excluded.holder,
			expires_at = excluded.expires_at
		WHERE lease.expires_at <= ? OR lease.holder = excluded.holder
	`, name, holder, now.Add(ttl).Unix(), now.Unix())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ReleaseLease drops the named lease if holder still owns it.
func (d *Database) ReleaseLease(ctx context.Context, name, holder string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("release_lease", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, "DELETE FROM lease WHERE name = ? AND holder = ?", name, holder)
	return err
}
