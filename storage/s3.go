package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"rankwell/config"
)

// S3Storage maps each bucket name onto an S3 bucket. A custom endpoint switches to
// path-style addressing for S3-compatible stores.
type S3Storage struct {
	client    *s3.Client
	region    string
	endpoint  string
	publicURL string
}

func NewS3Storage(ctx context.Context, cfg config.StorageConfig) (*S3Storage, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Storage{
		client:    client,
		region:    cfg.Region,
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}, nil
}

func (s *S3Storage) Upload(ctx context.Context, bucket, objectPath string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(objectPath),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType(objectPath, data)),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s/%s: %w", bucket, objectPath, err)
	}
	return objectPath, nil
}

func (s *S3Storage) PublicURL(bucket, objectPath string) string {
	switch {
	case s.publicURL != "" && strings.HasPrefix(s.publicURL, "http"):
		return fmt.Sprintf("%s/%s/%s", s.publicURL, bucket, objectPath)
	case s.endpoint != "":
		return fmt.Sprintf("%s/%s/%s", s.endpoint, bucket, objectPath)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, s.region, objectPath)
	}
}
