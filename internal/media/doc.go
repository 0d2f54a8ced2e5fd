// Package media turns candidate images into stored thumbnails.
//
// Score and its pickers rank images by name keywords and size. Normalize
// produces the stored form: a JPEG no larger than ThumbnailEdge on its
// longer side, flattened onto white. libvips is used when InitVips has been
// called, with disintegration/imaging as the fallback and the default.
//
// BestImageInArchive and BestImageInDir combine the two for archives and
// extracted folders.
package media
