package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// S3Client archives compiled layout documents and cover assets. Redis stays
// the serving store; S3 is the durable copy exports are built from.
type S3Client struct {
	client     *s3.Client
	bucketName string
}

// NewS3Client creates a new S3 client for the given bucket.
func NewS3Client(ctx context.Context, bucketName string) (*S3Client, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &S3Client{client: s3.NewFromConfig(cfg), bucketName: bucketName}, nil
}

// ArchiveLayout uploads a compiled layout document under a versioned key and
// promotes it to the story's base key as the latest copy.
func (s *S3Client) ArchiveLayout(ctx context.Context, prefix, storyID string, version int, data []byte) (string, error) {
	baseKey := fmt.Sprintf("%s/%s/layout.json", prefix, storyID)
	versionedKey := fmt.Sprintf("%s/%s/layout_v%d.json", prefix, storyID, version)

	meta := map[string]string{
		"story_id": storyID,
		"version":  fmt.Sprintf("%d", version),
		"created":  time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.put(ctx, versionedKey, data, "application/json", meta); err != nil {
		return "", fmt.Errorf("archive layout v%d: %w", version, err)
	}
	if err := s.put(ctx, baseKey, data, "application/json", meta); err != nil {
		log.Warn().Err(err).Str("story_id", storyID).Str("key", baseKey).Msg("failed to promote layout to base key")
		return fmt.Sprintf("s3://%s/%s", s.bucketName, versionedKey), nil
	}

	log.Info().
		Str("story_id", storyID).
		Str("key", baseKey).
		Int("size", len(data)).
		Msg("archived compiled layout")
	return fmt.Sprintf("s3://%s/%s", s.bucketName, baseKey), nil
}

// UploadAsset stores a cover or illustration asset.
func (s *S3Client) UploadAsset(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := s.put(ctx, key, data, contentType, nil); err != nil {
		return "", fmt.Errorf("upload asset: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucketName, key), nil
}

// Download fetches an archived object.
func (s *S3Client) Download(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// HeadBucket verifies the bucket is reachable, for health checks.
func (s *S3Client) HeadBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucketName)})
	return err
}

func (s *S3Client) put(ctx context.Context, key string, data []byte, contentType string, meta map[string]string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata:    meta,
	})
	return err
}
