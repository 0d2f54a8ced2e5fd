// Package database provides the SQLite catalog of sources and assets.
//
// It stores:
//   - Sources: local directories and remote tree roots to index
//   - Assets: archives, models and folder projects with their thumbnail
//     state and blob
//   - Leases: the exclusive backfill lease row
//
// The schema is created by embedded golang-migrate migrations. The catalog
// runs in WAL mode with foreign keys on, so removing a source cascades to
// its assets.
package database
