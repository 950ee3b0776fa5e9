package storage

import (
	"context"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config configures the client built by [NewS3Client].
type S3Config struct {
	Region    string
	Endpoint  string // empty for AWS
	AccessKey string
	SecretKey string
	PathStyle bool // required by most self-hosted stores
}

// NewS3Client builds an S3 client from static configuration. When no access
// key is set the client signs requests anonymously, which public buckets
// accept.
func NewS3Client(cfg S3Config, hc *http.Client) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		UsePathStyle: cfg.PathStyle,
	}
	if opts.Region == "" {
		opts.Region = "us-east-1"
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	if hc != nil {
		opts.HTTPClient = hc
	}
	if cfg.AccessKey != "" {
		creds := aws.Credentials{
			AccessKeyID:     cfg.AccessKey,
			SecretAccessKey: cfg.SecretKey,
			Source:          "biovault",
		}
		opts.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) { return creds, nil },
		))
	} else {
		opts.Credentials = aws.AnonymousCredentials{}
	}
	return s3.New(opts)
}
