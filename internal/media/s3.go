package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config configures the S3 (or MinIO) object store.
type S3Config struct {
	Region    string
	Bucket    string
	Endpoint  string // non-empty for MinIO/custom endpoints
	AccessKey string
	SecretKey string
	// PublicBaseURL is the prefix clients fetch objects from. Defaults to
	// endpoint/bucket when empty.
	PublicBaseURL string
}

// LoadS3ConfigFromEnv reads the VIDTUBE_S3_* variables.
func LoadS3ConfigFromEnv() S3Config {
	return S3Config{
		Region:        strings.TrimSpace(os.Getenv("VIDTUBE_S3_REGION")),
		Bucket:        strings.TrimSpace(os.Getenv("VIDTUBE_S3_BUCKET")),
		Endpoint:      strings.TrimSpace(os.Getenv("VIDTUBE_S3_ENDPOINT")),
		AccessKey:     strings.TrimSpace(os.Getenv("VIDTUBE_S3_ACCESS_KEY")),
		SecretKey:     strings.TrimSpace(os.Getenv("VIDTUBE_S3_SECRET_KEY")),
		PublicBaseURL: strings.TrimSpace(os.Getenv("VIDTUBE_S3_PUBLIC_BASE_URL")),
	}
}

// Enabled reports whether enough configuration exists to talk to a bucket.
func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.Region != ""
}

// S3Store implements Store over an S3-compatible bucket.
type S3Store struct {
	cfg    S3Config
	client *s3.Client
}

// NewS3Store builds the client once; credentials are static (MinIO-friendly).
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("media: s3 bucket/region not configured")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{cfg: cfg, client: client}, nil
}

func (s *S3Store) publicURL(key string) string {
	if s.cfg.PublicBaseURL != "" {
		return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/" + key
	}
	if s.cfg.Endpoint != "" {
		return strings.TrimRight(s.cfg.Endpoint, "/") + "/" + s.cfg.Bucket + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key)
}

// Upload stores the content under a fresh date-bucketed key.
func (s *S3Store) Upload(ctx context.Context, filename, contentType string, body io.Reader) (Object, error) {
	key := NewStorageKey(filename)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return Object{}, fmt.Errorf("media: upload %s: %w", key, err)
	}

	return Object{URL: s.publicURL(key), ID: key}, nil
}

// Delete removes the object; deleting an already-gone key is not an error
// in S3, which matches the caller's best-effort cleanup semantics.
func (s *S3Store) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		return fmt.Errorf("media: delete %s: %w", id, err)
	}
	return nil
}
