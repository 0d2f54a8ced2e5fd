// Package indexer discovers assets in the cataloged sources.
//
// A scan visits every registered source one after another. Local sources
// are read through a billy filesystem rooted at the source path; remote
// sources go through a remotetree.Tree. Both walkers use an explicit stack
// of pending folders and classify the direct children of each folder as
// sub-folders, images, archives or models:
//
//   - A folder with sub-folders and no archive or model only pushes its
//     sub-folders.
//   - A files-only remote folder becomes one asset named after the folder
//     ("Root" at the tree root), pointing at its representative file.
//   - Locally every archive is an asset with the best image inside as its
//     thumbnail. Models are grouped into one folder project below the root,
//     or at the root from five models on ("Project_<N>_Files").
//   - In a mixed folder every archive or model is registered on its own.
//
// Each folder is written in its own transaction with an idempotent upsert,
// so rescans refresh sizes and fill missing thumbnails without touching
// the thumbnail state of known assets. Only one scan runs at a time per
// Indexer. Source names are cleaned of copy and import prefixes at the
// start of every scan.
package indexer
