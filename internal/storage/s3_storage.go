package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/ikkim/storefront-backend/pkg/logger"
)

// StoredObject describes an uploaded object and how to fetch it.
type StoredObject struct {
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ObjectStore uploads generated files such as order reports.
type ObjectStore interface {
	Put(ctx context.Context, folder, filename, contentType string, body []byte) (*StoredObject, error)
}

type S3Storage struct {
	client    *s3.Client
	presign   *s3.PresignClient
	bucket    string
	baseURL   string
	urlExpiry time.Duration
}

func NewS3Storage(ctx context.Context, region, bucket, accessKeyID, secretAccessKey, baseURL string, urlExpiry time.Duration) *S3Storage {
	var cfg aws.Config
	if accessKeyID != "" && secretAccessKey != "" {
		cfg = aws.Config{
			Region:      region,
			Credentials: credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		}
	} else {
		loaded, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
		if err != nil {
			logger.Warn("Falling back to region-only AWS config", map[string]interface{}{
				"error": err.Error(),
			})
			loaded = aws.Config{Region: region}
		}
		cfg = loaded
	}

	client := s3.NewFromConfig(cfg)
	return &S3Storage{
		client:    client,
		presign:   s3.NewPresignClient(client),
		bucket:    bucket,
		baseURL:   strings.TrimRight(baseURL, "/"),
		urlExpiry: urlExpiry,
	}
}

// objectKey keeps the original extension under a unique, dated name.
func objectKey(folder, filename string, now time.Time) string {
	return fmt.Sprintf("%s/%s/%s%s", strings.Trim(folder, "/"), now.Format("2006/01/02"), uuid.NewString(), path.Ext(filename))
}

func (s *S3Storage) objectURL(key string) string {
	if s.baseURL != "" {
		return fmt.Sprintf("%s/%s", s.baseURL, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.client.Options().Region, key)
}

// Put uploads body and returns a presigned GET URL valid for urlExpiry.
func (s *S3Storage) Put(ctx context.Context, folder, filename, contentType string, body []byte) (*StoredObject, error) {
	key := objectKey(folder, filename, time.Now().UTC())

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(s.bucket),
		Key:                aws.String(key),
		Body:               bytes.NewReader(body),
		ContentType:        aws.String(contentType),
		ContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", filename)),
	})
	if err != nil {
		logger.Error("Failed to upload object to S3", err, map[string]interface{}{
			"bucket": s.bucket,
			"key":    key,
		})
		return nil, fmt.Errorf("failed to upload object: %w", err)
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.urlExpiry))
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	logger.Info("Object uploaded to S3", map[string]interface{}{
		"key":  key,
		"size": len(body),
	})
	return &StoredObject{
		Key:         key,
		URL:         s.objectURL(key),
		DownloadURL: req.URL,
		ExpiresAt:   time.Now().Add(s.urlExpiry),
	}, nil
}
