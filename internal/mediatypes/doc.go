// Package mediatypes provides the extension tables shared by the tree walker,
// the backfill workers and the image scorer.
//
// This package exists as a dependency-free foundation that can be imported by other
// packages without creating import cycles.
//
// # File Types
//
//	mediatypes.FileTypeFolder  // Directories and remote folders
//	mediatypes.FileTypeImage   // .jpg .jpeg .png .webp .bmp .gif
//	mediatypes.FileTypeArchive // .zip .rar .7z .cbz .cbr
//	mediatypes.FileTypeModel   // .stl .obj .fbx .blend .step .3ds .dae
//	mediatypes.FileTypeOther   // Everything else
//
// Extension checks never decide how content is decoded; the sniff package
// classifies content by its leading bytes.
package mediatypes
