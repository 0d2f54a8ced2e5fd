// Package lease provides the non-blocking exclusive lease that keeps two
// backfill sweeps from processing the same catalog at once.
package lease
