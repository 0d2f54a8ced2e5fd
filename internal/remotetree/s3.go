package remotetree

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// s3API is the subset of the S3 client the tree uses.
type s3API interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3 is a Tree backed by an S3 bucket via aws-sdk-go-v2.
type S3 struct {
	client s3API
	bucket string
	codec  linkCodec
}

// NewS3 loads AWS configuration, overriding region, credentials and
// endpoint from cfg when set. A custom endpoint switches to path-style
// addressing.
func NewS3(ctx context.Context, cfg Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 backend requires a bucket")
	}

	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if awsCfg.Region == "" {
		awsCfg.Region = "us-east-1"
	}

	var s3Opts []func(*s3.Options)
	base := fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, awsCfg.Region)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		if !strings.Contains(endpoint, "://") {
			scheme := "http://"
			if cfg.UseSSL {
				scheme = "https://"
			}
			endpoint = scheme + endpoint
		}
		endpoint = strings.TrimSuffix(endpoint, "/")
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
		base = endpoint + "/" + cfg.Bucket
	}

	return newS3WithClient(s3.NewFromConfig(awsCfg, s3Opts...), cfg.Bucket, base), nil
}

func newS3WithClient(client s3API, bucket, base string) *S3 {
	return &S3{client: client, bucket: bucket, codec: linkCodec{base: base}}
}

func (s *S3) List(ctx context.Context, folderID string) ([]Item, error) {
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(folderID),
		Delimiter: aws.String("/"),
	})

	var items []Item
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", folderID, err)
		}
		for _, cp := range page.CommonPrefixes {
			items = append(items, folderItem(s.codec, aws.ToString(cp.Prefix)))
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == folderID || strings.HasSuffix(key, "/") {
				continue
			}
			items = append(items, fileItem(s.codec, key, "", aws.ToInt64(obj.Size)))
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (s *S3) Stat(ctx context.Context, id string) (Item, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		if isS3NotFound(err) {
			return Item{}, fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return Item{}, fmt.Errorf("head %s: %w", id, err)
	}
	return fileItem(s.codec, id, aws.ToString(out.ContentType), aws.ToInt64(out.ContentLength)), nil
}

func (s *S3) Download(ctx context.Context, id string, w io.Writer) error {
	if strings.HasSuffix(id, "/") {
		return fmt.Errorf("%s: %w", id, ErrNotDownloadable)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		if isS3NotFound(err) {
			if s.hasChildren(ctx, id) {
				return fmt.Errorf("%s: %w", id, ErrNotDownloadable)
			}
			return fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("download %s: %w", id, err)
	}
	defer func() { _ = out.Body.Close() }()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("download %s: %w", id, err)
	}
	return nil
}

func (s *S3) Thumbnail(ctx context.Context, link string, edge int) ([]byte, error) {
	return objectThumbnail(ctx, s, s.codec, link, edge)
}

func (s *S3) IDFromLink(link string) (string, bool) {
	return s.codec.id(link)
}

func (s *S3) RootName(_ context.Context, rootID string) (string, error) {
	return rootName(s.bucket, rootID), nil
}

func (s *S3) hasChildren(ctx context.Context, id string) bool {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(asFolderID(id)),
		MaxKeys: aws.Int32(1),
	})
	return err == nil && len(out.Contents)+len(out.CommonPrefixes) > 0
}

func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}
