// Package archive lists, reads and extracts zip, 7z and rar archives.
//
// Entries whose path has a component starting with "." or named __MACOSX
// are never reported. Multi-part RAR sets are recognised by name only: any
// volume after the first fails with ErrNeedsAllParts before the file is
// opened.
package archive
