// Package remotetree abstracts the hosted file tree a remote source is
// indexed from.
//
// A Tree lists folders, downloads files, serves platform thumbnails and
// translates between view links and item ids. Three backends exist:
//
//   - Memory: an in-process tree, optionally seeded from a local directory
//   - Minio: a MinIO or S3 compatible bucket via minio-go
//   - S3: an AWS S3 bucket via aws-sdk-go-v2
//
// Folder ids are key prefixes ending in "/". Only image objects carry a
// platform thumbnail unless a backend registers one explicitly.
package remotetree
