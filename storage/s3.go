package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// PutObjectAPI is the subset of the S3 client used by [S3].
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 stores documents in an S3-compatible bucket (AWS S3, MinIO, RustFS).
type S3 struct {
	client PutObjectAPI
	bucket string
	prefix string
	logger *zap.Logger
}

var _ Storage = (*S3)(nil)

// S3Option configures an [S3] storage.
type S3Option func(*S3)

// WithLogger sets the logger used for upload events.
func WithLogger(logger *zap.Logger) S3Option {
	return func(s *S3) {
		s.logger = logger
	}
}

// WithClient replaces the S3 client, mostly for tests.
func WithClient(client PutObjectAPI) S3Option {
	return func(s *S3) {
		s.client = client
	}
}

// NewS3 creates an S3 storage from configuration.
func NewS3(ctx context.Context, cfg DiskConfig, opts ...S3Option) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage: s3 bucket is required")
	}

	s := &S3{
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client != nil {
		return s, nil
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("storage: loading aws config: %w", err)
	}

	endpoint, err := endpointURL(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	s.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return s, nil
}

// Put uploads data under the configured prefix.
func (s *S3) Put(ctx context.Context, p string, data []byte) error {
	key := s.key(p)
	if key == "" {
		return errors.New("storage: object key is required")
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String("application/pdf"),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("storage: uploading %s: %w", key, err)
	}
	s.logger.Info("object uploaded",
		zap.String("bucket", s.bucket),
		zap.String("key", key),
		zap.Int("size", len(data)),
	)
	return nil
}

func (s *S3) key(p string) string {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	if p == "" || p == "." {
		return ""
	}
	if s.prefix == "" {
		return p
	}
	return s.prefix + "/" + p
}

func endpointURL(endpoint string, useSSL bool) (string, error) {
	if endpoint == "" {
		return "", nil
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if useSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	if _, err := url.Parse(endpoint); err != nil {
		return "", fmt.Errorf("storage: invalid endpoint: %w", err)
	}
	return endpoint, nil
}
