package artifacts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"TopicScribe/internal/config"
	"TopicScribe/internal/domain"
	"TopicScribe/internal/ports"
)

const folderMarkerType = "application/x-directory"

// objectAPI is the subset of the MinIO client used by Store.
type objectAPI interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	StatObject(ctx context.Context, bucket, object string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	SetBucketPolicy(ctx context.Context, bucket, policy string) error
}

// Store keeps rendered documents in an S3-compatible bucket. Folders are key prefixes.
type Store struct {
	api       objectAPI
	bucket    string
	publicURL string
	logger    *slog.Logger

	mu           sync.Mutex
	bucketReady  bool
	policyPushed bool
	folders      map[string]string
}

var _ ports.ArtifactStorage = (*Store)(nil)

// NewStore connects to the configured endpoint.
func NewStore(cfg config.StorageConfig, logger *slog.Logger) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return newStore(client, cfg.Bucket, publicBase(cfg), logger), nil
}

func newStore(api objectAPI, bucket, publicURL string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		api:       api,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger.With("component", "artifacts"),
		folders:   make(map[string]string),
	}
}

// EnsureBucket creates the bucket if it doesn't exist.
func (s *Store) EnsureBucket(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureBucketLocked(ctx)
}

func (s *Store) ensureBucketLocked(ctx context.Context) error {
	if s.bucketReady {
		return nil
	}

	exists, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := s.api.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
	}

	s.bucketReady = true
	return nil
}

// ResolveFolder returns folderID when set. Otherwise it looks up a prefix by name and
// creates its marker object when missing. Lookups are cached for the process lifetime.
func (s *Store) ResolveFolder(ctx context.Context, folderID, name string) (string, error) {
	if id := strings.Trim(folderID, "/"); id != "" {
		return id, nil
	}

	prefix := folderKey(name)
	if prefix == "" {
		return "", fmt.Errorf("resolve folder: empty name")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.folders[prefix]; ok {
		return cached, nil
	}
	if err := s.ensureBucketLocked(ctx); err != nil {
		return "", fmt.Errorf("resolve folder %q: %w", name, err)
	}

	marker := prefix + "/"
	if _, err := s.api.StatObject(ctx, s.bucket, marker, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code != "NoSuchKey" {
			return "", fmt.Errorf("stat folder %q: %w", name, err)
		}
		if _, err := s.api.PutObject(ctx, s.bucket, marker, bytes.NewReader(nil), 0, minio.PutObjectOptions{ContentType: folderMarkerType}); err != nil {
			return "", fmt.Errorf("create folder %q: %w", name, err)
		}
		s.logger.InfoContext(ctx, "folder created", "folder", prefix)
	}

	s.folders[prefix] = prefix
	return prefix, nil
}

// Upload stores the artifact under its folder and returns its public link.
func (s *Store) Upload(ctx context.Context, artifact domain.Artifact) (string, error) {
	key := objectKey(artifact.FolderID, artifact.Name)

	s.mu.Lock()
	err := s.ensureBucketLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	_, err = s.api.PutObject(ctx, s.bucket, key, bytes.NewReader(artifact.Content), int64(len(artifact.Content)), minio.PutObjectOptions{
		ContentType: artifact.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	s.sharePublicly(ctx)

	return s.objectURL(key), nil
}

// sharePublicly grants anonymous read access to the bucket. Failures are logged only.
func (s *Store) sharePublicly(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.policyPushed {
		return
	}
	if err := s.api.SetBucketPolicy(ctx, s.bucket, readOnlyPolicy(s.bucket)); err != nil {
		s.logger.WarnContext(ctx, "set public read policy failed", "bucket", s.bucket, "error", err)
		return
	}
	s.policyPushed = true
}

func (s *Store) objectURL(key string) string {
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return s.publicURL + "/" + strings.Join(segments, "/")
}

func publicBase(cfg config.StorageConfig) string {
	if cfg.PublicBaseURL != "" {
		return cfg.PublicBaseURL
	}
	protocol := "http"
	if cfg.UseSSL {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s/%s", protocol, cfg.Endpoint, cfg.Bucket)
}

func folderKey(name string) string {
	return strings.Trim(strings.TrimSpace(name), "/")
}

func objectKey(folder, name string) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return name
	}
	return folder + "/" + name
}

func readOnlyPolicy(bucket string) string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, bucket)
}
