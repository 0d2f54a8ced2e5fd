// Package backfill produces thumbnails for cataloged assets that have none.
//
// A sweep acquires the exclusive lease, marks assets already covered by a
// same-named image in their folder, selects one batch of pending assets
// (fewest attempts first, newest first) and hands them to a pool of
// workers. A sequential sweep is the same pipeline with one worker.
//
// Every worker owns a dedicated catalog handle and a scratch directory
// below the configured scratch root. For each asset it tries, in order:
//
//   - remote multi-part first volumes: the platform thumbnail only
//   - models: a render of the mesh
//   - archives: the best image inside, else a folder scan of the extracted
//     tree
//   - folders: the keyword image, else the best image, else a render of
//     the first mesh
//
// Later multi-part volumes, folders behind remote links, invalid links and
// empty content are skipped permanently. Any other failure counts as an
// attempt; assets reaching database.MaxAttempts are not selected again.
// Each outcome is committed on its own, and cancellation is observed
// between items.
package backfill
