package blob

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/MrSnakeDoc/encore/internal/media"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOOptions configures the object storage backend.
type MinIOOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinIO keeps uploads in an S3 compatible bucket. Public URLs are built from
// the file origin, which is expected to front the bucket.
type MinIO struct {
	client *minio.Client
	bucket string
	origin media.Origin
}

// NewMinIO connects and makes sure the bucket exists.
func NewMinIO(ctx context.Context, opts MinIOOptions, origin media.Origin) (*MinIO, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &MinIO{client: client, bucket: opts.Bucket, origin: origin}, nil
}

func (m *MinIO) URL(key string) string { return m.origin.Join(key) }

func (m *MinIO) Ping(ctx context.Context) error {
	ok, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %s is missing", m.bucket)
	}
	return nil
}

func (m *MinIO) Put(ctx context.Context, key, contentType string, r io.Reader, size int64) (string, error) {
	if size <= 0 {
		size = -1
	}
	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to MinIO: %w", err)
	}
	return m.URL(key), nil
}

func (m *MinIO) List(ctx context.Context, folder string) ([]File, error) {
	folder = strings.Trim(SanitizePath(folder), "/")
	prefix := ""
	if folder != "" {
		prefix = folder + "/"
	}

	var files []File
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", folder, obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		files = append(files, File{
			Name:    path.Base(obj.Key),
			URL:     m.URL(obj.Key),
			Size:    obj.Size,
			ModTime: obj.LastModified.UTC(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	if files == nil {
		files = []File{}
	}
	return files, nil
}

func (m *MinIO) Exists(ctx context.Context, key string) (bool, error) {
	_, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	return true, nil
}

func (m *MinIO) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	// GetObject is lazy; Stat surfaces a missing key.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return obj, nil
}

func (m *MinIO) Delete(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
