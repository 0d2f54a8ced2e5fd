// Package pipeline exposes the three entry points of the catalog: Scan,
// Backfill and BackfillParallel. It builds the indexer, the scheduler and
// the configured backfill lease from a startup.Config.
package pipeline
