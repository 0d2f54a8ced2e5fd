package mediatypes

import (
	"path"
	"strings"
)

// FileType classifies a direct child of a scanned folder.
type FileType string

const (
	// FileTypeFolder represents a directory or remote folder.
	FileTypeFolder FileType = "folder"
	// FileTypeImage represents a preview image.
	FileTypeImage FileType = "image"
	// FileTypeArchive represents an archive deliverable (zip, rar, 7z, comic archives).
	FileTypeArchive FileType = "archive"
	// FileTypeModel represents a 3D model file.
	FileTypeModel FileType = "model"
	// FileTypeOther represents anything the walker ignores.
	FileTypeOther FileType = "other"
)

// ImageExtensions are the preview image formats recognised next to models.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".bmp":  true,
	".gif":  true,
}

// ArchiveExtensions are the archive formats registered as assets.
var ArchiveExtensions = map[string]bool{
	".zip": true,
	".rar": true,
	".7z":  true,
	".cbz": true,
	".cbr": true,
}

// ModelExtensions are the 3D model formats registered as assets.
var ModelExtensions = map[string]bool{
	".stl":   true,
	".obj":   true,
	".fbx":   true,
	".blend": true,
	".step":  true,
	".3ds":   true,
	".dae":   true,
}

// RenderableExtensions are the model formats the rasterizer can load.
var RenderableExtensions = map[string]bool{
	".stl": true,
	".obj": true,
}

// Ext returns the lowercased extension of a slash or OS path, including the dot.
func Ext(name string) string {
	// path.Ext only looks after the final slash; normalise backslashes from
	// archive entries written on Windows.
	return strings.ToLower(path.Ext(strings.ReplaceAll(name, "\\", "/")))
}

// GetFileType returns the FileType for a file name based on its extension.
func GetFileType(name string) FileType {
	ext := Ext(name)
	switch {
	case ImageExtensions[ext]:
		return FileTypeImage
	case ArchiveExtensions[ext]:
		return FileTypeArchive
	case ModelExtensions[ext]:
		return FileTypeModel
	default:
		return FileTypeOther
	}
}

// IsImage reports whether name has a preview image extension.
func IsImage(name string) bool {
	return ImageExtensions[Ext(name)]
}

// IsRenderable reports whether name is a model the rasterizer can load.
func IsRenderable(name string) bool {
	return RenderableExtensions[Ext(name)]
}

// IsAssetFile reports whether name is an archive or model file.
func IsAssetFile(name string) bool {
	t := GetFileType(name)
	return t == FileTypeArchive || t == FileTypeModel
}

// StripExt returns name without its final extension.
func StripExt(name string) string {
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext)
}
