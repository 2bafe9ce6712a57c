// Package storage uploads event attachments to an S3-compatible blob
// store and tracks the lifecycle of each upload.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PathPrefix is the fixed segment uploads land under. Identical filenames
// overwrite the previous blob at the same path; last writer wins.
const PathPrefix = "files/"

// BlobStore uploads a named blob and reports progress as a 0-100
// percentage per chunk, returning the durable URL of the stored object.
type BlobStore interface {
	Upload(ctx context.Context, name string, r io.Reader, size int64, onProgress func(pct float64)) (string, error)
}

// S3Config holds connection settings for the blob bucket. Endpoint and
// PublicBaseURL are for S3-compatible services (e.g. MinIO); leave empty
// for AWS proper.
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	PublicBaseURL   string
}

type s3BlobStore struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

func NewS3BlobStore(cfg S3Config) BlobStore {
	awsCfg := aws.Config{
		Region: cfg.Region,
		Credentials: aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	return &s3BlobStore{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (s *s3BlobStore) Upload(ctx context.Context, name string, r io.Reader, size int64, onProgress func(pct float64)) (string, error) {
	key := PathPrefix + name
	body := &progressReader{r: r, total: size, onProgress: onProgress}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return "", err
	}
	return s.baseURL + "/" + PathPrefix + url.PathEscape(name), nil
}

// progressReader counts bytes through Read and reports a percentage per
// chunk acknowledgment.
type progressReader struct {
	r          io.Reader
	total      int64
	read       int64
	onProgress func(pct float64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		if p.onProgress != nil && p.total > 0 {
			p.onProgress(float64(p.read) / float64(p.total) * 100)
		}
	}
	return n, err
}
