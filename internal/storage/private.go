// Package storage implements the private blob store for property
// images and KYC documents. Files are addressed by opaque handles and
// have no public URLs; callers gate raw bytes to owner-or-staff before
// opening a handle.
package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a handle does not resolve to a stored
// object.
var ErrNotFound = errors.New("blob not found")

// Private stores blobs in an S3 bucket under an opaque key namespace.
type Private struct {
	client *s3.Client
	bucket string
	prefix string
	logger *zap.Logger
}

// NewPrivate builds the store from the environment:
//
//	PRIVATE_MEDIA_BUCKET   – bucket name (required)
//	PRIVATE_MEDIA_PREFIX   – optional key prefix (default "private")
//	PRIVATE_MEDIA_ENDPOINT – optional custom endpoint (minio etc.)
//
// Credentials and region resolve through the default AWS chain.
func NewPrivate(ctx context.Context, logger *zap.Logger) (*Private, error) {
	bucket := os.Getenv("PRIVATE_MEDIA_BUCKET")
	if bucket == "" {
		return nil, errors.New("missing required env var: PRIVATE_MEDIA_BUCKET")
	}
	prefix := os.Getenv("PRIVATE_MEDIA_PREFIX")
	if prefix == "" {
		prefix = "private"
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if ep := os.Getenv("PRIVATE_MEDIA_ENDPOINT"); ep != "" {
			o.BaseEndpoint = aws.String(ep)
			o.UsePathStyle = true
		}
	})
	return &Private{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/"), logger: logger}, nil
}

// Put uploads the blob and returns its freshly generated handle.
func (p *Private) Put(ctx context.Context, r io.Reader, contentType string) (string, error) {
	handle := uuid.NewString()
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(p.key(handle)),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		p.logger.Warn("storage: put failed", zap.Error(err))
		return "", err
	}
	return handle, nil
}

// Open returns a reader over the stored bytes plus the content type
// recorded at upload. The caller must close the reader.
func (p *Private) Open(ctx context.Context, handle string) (io.ReadCloser, string, error) {
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.key(handle)),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NoSuchKey") {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}
	ct := "application/octet-stream"
	if out.ContentType != nil {
		ct = *out.ContentType
	}
	return out.Body, ct, nil
}

// Delete removes a stored blob. Missing objects are not an error: the
// reference row is already gone and a retry must stay idempotent.
func (p *Private) Delete(ctx context.Context, handle string) error {
	_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.key(handle)),
	})
	if err != nil {
		p.logger.Warn("storage: delete failed", zap.String("handle", handle), zap.Error(err))
	}
	return err
}

func (p *Private) key(handle string) string {
	return p.prefix + "/" + handle
}
