package remotetree

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Minio is a Tree backed by a MinIO (or any S3 compatible) bucket via minio-go.
type Minio struct {
	client *minio.Client
	bucket string
	codec  linkCodec
}

// NewMinio connects to cfg.Endpoint with static credentials.
func NewMinio(cfg Config) (*Minio, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("minio backend requires endpoint and bucket")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Minio{
		client: client,
		bucket: cfg.Bucket,
		codec:  linkCodec{base: strings.TrimSuffix(client.EndpointURL().String(), "/") + "/" + cfg.Bucket},
	}, nil
}

func (m *Minio) List(ctx context.Context, folderID string) ([]Item, error) {
	var items []Item
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    folderID,
		Recursive: false,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s: %w", folderID, obj.Err)
		}
		// Folder marker objects list as the prefix itself.
		if obj.Key == folderID {
			continue
		}
		if strings.HasSuffix(obj.Key, "/") {
			items = append(items, folderItem(m.codec, obj.Key))
			continue
		}
		items = append(items, fileItem(m.codec, obj.Key, obj.ContentType, obj.Size))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (m *Minio) Stat(ctx context.Context, id string) (Item, error) {
	info, err := m.client.StatObject(ctx, m.bucket, id, minio.StatObjectOptions{})
	if err != nil {
		if isMinioNotFound(err) {
			return Item{}, fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return Item{}, fmt.Errorf("stat %s: %w", id, err)
	}
	return fileItem(m.codec, id, info.ContentType, info.Size), nil
}

func (m *Minio) Download(ctx context.Context, id string, w io.Writer) error {
	if strings.HasSuffix(id, "/") {
		return fmt.Errorf("%s: %w", id, ErrNotDownloadable)
	}

	obj, err := m.client.GetObject(ctx, m.bucket, id, minio.GetObjectOptions{})
	if err == nil {
		defer func() { _ = obj.Close() }()
		_, err = io.Copy(w, obj)
	}
	if err == nil {
		return nil
	}

	if isMinioNotFound(err) {
		if m.hasChildren(ctx, id) {
			return fmt.Errorf("%s: %w", id, ErrNotDownloadable)
		}
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return fmt.Errorf("download %s: %w", id, err)
}

func (m *Minio) Thumbnail(ctx context.Context, link string, edge int) ([]byte, error) {
	return objectThumbnail(ctx, m, m.codec, link, edge)
}

func (m *Minio) IDFromLink(link string) (string, bool) {
	return m.codec.id(link)
}

func (m *Minio) RootName(_ context.Context, rootID string) (string, error) {
	return rootName(m.bucket, rootID), nil
}

func (m *Minio) hasChildren(ctx context.Context, id string) bool {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:  asFolderID(id),
		MaxKeys: 1,
	}) {
		return obj.Err == nil
	}
	return false
}

func isMinioNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}
