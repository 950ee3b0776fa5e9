package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Client is the part of the S3 API biovault calls. [s3.Client] satisfies
// it.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store reads objects from one bucket. Stores hold no state beyond the
// bucket name; the fetcher creates one per s3:// reference on a shared
// client built by [NewS3Client].
type S3Store struct {
	client S3Client
	bucket string
}

// NewS3 returns a Source for bucket.
func NewS3(client S3Client, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket}
}

// Open fetches key with GetObject. The caller must close the body.
func (s *S3Store) Open(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, 0, fmt.Errorf("storage: s3://%s/%s: %w", s.bucket, key, os.ErrNotExist)
		}
		return nil, 0, fmt.Errorf("storage: s3://%s/%s: %w", s.bucket, key, err)
	}
	size := int64(-1)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return out.Body, size, nil
}

// isS3NotFound reports whether err indicates the object does not exist.
func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "NoSuchBucket":
			return true
		}
	}
	return false
}

var _ Source = (*S3Store)(nil)
