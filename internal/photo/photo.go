// Package photo stores completion photo proof in S3-compatible storage.
// Objects are namespaced parents/{pid}/children/{cid}/completions/{id}/ so a
// family's media can be listed or purged by prefix.
package photo

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/famstack/famcoin/internal/common"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config holds S3-compatible storage configuration.
type Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	// PublicBaseURL is the URL prefix returned for stored objects, e.g. a
	// CDN host. Defaults to the endpoint + bucket.
	PublicBaseURL string
}

// Store uploads photo blobs. With no credentials configured it is disabled
// and uploads fail with ErrUnavailable.
type Store struct {
	cfg    Config
	client s3Client
}

func NewStore(cfg Config) *Store {
	s := &Store{cfg: cfg}
	if cfg.Bucket != "" && cfg.AccessKey != "" && cfg.SecretKey != "" {
		s.client = newS3Client(cfg)
	}
	return s
}

func newS3Client(cfg Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether uploads are configured.
func (s *Store) Enabled() bool { return s.client != nil }

// UploadPhoto stores the blob under the family namespace and returns its
// durable URL. The object key embeds a UUID so resubmitted photos never
// overwrite each other.
func (s *Store) UploadPhoto(ctx context.Context, parentID, childID, completionID int64, data []byte, contentType string) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("%w: photo storage not configured", common.ErrUnavailable)
	}

	key := fmt.Sprintf("parents/%d/children/%d/completions/%d/%s%s",
		parentID, childID, completionID, uuid.NewString(), extensionFor(contentType))

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put photo object: %w", err)
	}
	return s.urlFor(key), nil
}

func (s *Store) urlFor(key string) string {
	base := s.cfg.PublicBaseURL
	if base == "" {
		base = fmt.Sprintf("%s/%s", strings.TrimRight(s.cfg.Endpoint, "/"), s.cfg.Bucket)
	}
	return fmt.Sprintf("%s/%s", strings.TrimRight(base, "/"), key)
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
