package s3

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/config"
	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/entity"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// ImageStorage keeps news images in a MinIO/S3 bucket. The object key doubles
// as the deletion handle.
type ImageStorage struct {
	client  *minio.Client
	bucket  string
	baseURL string
	logger  *zap.Logger
}

func NewMinIOClient(cfg *config.MinIOConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for endpoint %s: %w", cfg.Endpoint, err)
	}
	return client, nil
}

// EnsureBucket creates the bucket unless it already exists.
func EnsureBucket(ctx context.Context, client *minio.Client, bucket string, logger *zap.Logger) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if exists {
		logger.Info("MinIO bucket already exists", zap.String("bucket", bucket))
		return nil
	}
	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	logger.Info("MinIO bucket created", zap.String("bucket", bucket))
	return nil
}

func NewImageStorage(client *minio.Client, cfg *config.MinIOConfig, logger *zap.Logger) *ImageStorage {
	baseURL := strings.TrimSuffix(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("%s/%s", client.EndpointURL().String(), cfg.Bucket)
	}
	return &ImageStorage{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: baseURL,
		logger:  logger,
	}
}

func (s *ImageStorage) Upload(ctx context.Context, img entity.ImageUpload, namespace string) (entity.ImageReference, error) {
	objectKey := path.Join(namespace, uuid.New().String()+img.Extension())

	info, err := s.client.PutObject(ctx, s.bucket, objectKey, bytes.NewReader(img.Data), int64(len(img.Data)), minio.PutObjectOptions{
		ContentType:  img.ContentType,
		UserMetadata: map[string]string{"original-filename": img.Filename},
	})
	if err != nil {
		s.logger.Error("MinIO PutObject failed",
			zap.String("bucket", s.bucket),
			zap.String("object_key", objectKey),
			zap.Error(err),
		)
		return entity.ImageReference{}, fmt.Errorf("failed to upload object %s to bucket %s: %w", objectKey, s.bucket, err)
	}

	s.logger.Debug("Image uploaded",
		zap.String("object_key", info.Key),
		zap.Int64("size", info.Size),
		zap.String("etag", info.ETag),
	)
	return entity.ImageReference{
		URI:            s.baseURL + "/" + objectKey,
		DeletionHandle: objectKey,
	}, nil
}

func (s *ImageStorage) Delete(ctx context.Context, deletionHandle string) error {
	if deletionHandle == "" {
		return nil
	}
	if err := s.client.RemoveObject(ctx, s.bucket, deletionHandle, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object %s from bucket %s: %w", deletionHandle, s.bucket, err)
	}
	s.logger.Debug("Image deleted", zap.String("object_key", deletionHandle))
	return nil
}
