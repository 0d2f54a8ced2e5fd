// Package sniff decides what a downloaded or extracted file really is
// without trusting its name.
//
// Classification runs in three steps: magic bytes on the header, the file
// extension, and finally content detection with gabriel-vasile/mimetype.
//
//	kind, err := sniff.SniffFile(path)
//	if kind.IsArchive() {
//	    // list entries with the archive package
//	}
package sniff
