package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.hedera.com/solo-peakwatch/internal/config"
	"golang.hedera.com/solo-peakwatch/internal/core"
	"golang.hedera.com/solo-peakwatch/pkg/logx"
)

type s3Sink struct {
	*handler
	client       s3Client
	bucketConfig config.BucketConfig
	bucketExists map[string]bool
}

// s3Client abstracts the MinIO client to the operations the sink needs,
// which also allows mocking in tests.
type s3Client interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)

	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error

	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64,
		opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// minioClientWrapper adapts the MinIO client to the s3Client interface.
type minioClientWrapper struct {
	client *minio.Client
}

func (m *minioClientWrapper) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return m.client.BucketExists(ctx, bucketName)
}

func (m *minioClientWrapper) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return m.client.MakeBucket(ctx, bucketName, opts)
}

func (m *minioClientWrapper) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader,
	objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return m.client.PutObject(ctx, bucketName, objectName, reader, objectSize, opts)
}

// NewS3 creates a sink that uploads run documents to an S3-compatible
// bucket.
func NewS3(id string, cfg config.BucketConfig) (core.Sink, error) {
	if err := config.ValidateBucketConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid S3 sink configuration: %w", err)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	return newS3(id, &minioClientWrapper{client: client}, cfg), nil
}

func newS3(id string, client s3Client, cfg config.BucketConfig) *s3Sink {
	return &s3Sink{
		handler:      &handler{id: id, sinkType: TypeS3},
		client:       client,
		bucketConfig: cfg,
		bucketExists: map[string]bool{},
	}
}

// ensureBucketExists checks if the bucket exists, creating it when missing.
func (s *s3Sink) ensureBucketExists(ctx context.Context) error {
	if _, exists := s.bucketExists[s.bucketConfig.Bucket]; exists {
		return nil
	}

	exists, err := s.client.BucketExists(ctx, s.bucketConfig.Bucket)
	if err != nil {
		return err
	}

	if !exists {
		logx.As().Debug().
			Str("sink", s.Info()).
			Str("bucket", s.bucketConfig.Bucket).
			Msg("Bucket does not exist, creating it")
		if err := s.client.MakeBucket(ctx, s.bucketConfig.Bucket, minio.MakeBucketOptions{Region: s.bucketConfig.Region}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	s.bucketExists[s.bucketConfig.Bucket] = true
	return nil
}

func (s *s3Sink) Store(ctx context.Context, run *core.RunResult) (string, error) {
	if err := s.ensureBucketExists(ctx); err != nil {
		return "", err
	}

	data, err := encodeRun(run)
	if err != nil {
		return "", err
	}

	object := path.Join(s.bucketConfig.Prefix, objectName(run))
	info, err := s.client.PutObject(ctx, s.bucketConfig.Bucket, object,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json", SendContentMd5: true})
	if err != nil {
		return "", fmt.Errorf("failed to upload run document: %w", err)
	}

	logx.As().Info().
		Str("sink", s.Info()).
		Str("run_id", run.RunID).
		Str("bucket", s.bucketConfig.Bucket).
		Str("object", info.Key).
		Int64("size", info.Size).
		Msg("Stored run result")

	return fmt.Sprintf("s3://%s/%s", s.bucketConfig.Bucket, object), nil
}
