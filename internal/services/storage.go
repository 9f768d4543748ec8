package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// StorageService keeps product photos in S3-compatible storage.
type StorageService struct {
	client     *minio.Client
	bucketName string
	region     string
}

// NewStorageService creates a new S3 storage service.
func NewStorageService(endpoint, accessKey, secretKey, bucketName, region string, useSSL bool) (*StorageService, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	return &StorageService{
		client:     client,
		bucketName: bucketName,
		region:     region,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (s *StorageService) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{
			Region: s.region,
		})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// SavePhotos uploads the photos of one submission under a shared scan id
// and returns image type -> object key. A failed upload only drops that
// photo; the scan itself proceeds with whatever was stored.
func (s *StorageService) SavePhotos(ctx context.Context, photos map[string][]byte) map[string]string {
	scanID := uuid.NewString()
	keys := make(map[string]string, len(photos))

	for imageType, data := range photos {
		key := fmt.Sprintf("scans/%s/%s.jpg", scanID, imageType)
		_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
			ContentType: "image/jpeg",
		})
		if err != nil {
			log.Warn().Err(err).Str("image", imageType).Msg("failed to store product photo")
			continue
		}
		keys[imageType] = key
	}

	return keys
}

// GetPresignedURL generates a presigned URL for downloading a photo.
func (s *StorageService) GetPresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	url, err := s.client.PresignedGetObject(ctx, s.bucketName, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return url.String(), nil
}

// Delete removes a stored photo.
func (s *StorageService) Delete(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucketName, key, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	return nil
}
