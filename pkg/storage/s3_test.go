package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// apiError implements smithy.APIError.
type apiError struct {
	code string
	msg  string
}

func (e *apiError) Error() string                 { return e.msg }
func (e *apiError) ErrorCode() string             { return e.code }
func (e *apiError) ErrorMessage() string          { return e.msg }
func (e *apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

// bucketClient serves GetObject from an in-memory bucket map.
type bucketClient struct {
	objects map[string]string // "bucket/key" -> body
	noSize  bool
	err     error
}

func (c *bucketClient) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if c.err != nil {
		return nil, c.err
	}
	data, ok := c.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &apiError{code: "NoSuchKey", msg: "no such key"}
	}
	out := &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(data))}
	if !c.noSize {
		out.ContentLength = aws.Int64(int64(len(data)))
	}
	return out, nil
}

func TestS3Open(t *testing.T) {
	client := &bucketClient{objects: map[string]string{"media/clips/a.ogg": "OggS payload"}}
	rc, size, err := NewS3(client, "media").Open(context.Background(), "clips/a.ogg")
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "OggS payload" {
		t.Errorf("body = %q", got)
	}
	if size != int64(len("OggS payload")) {
		t.Errorf("size = %d, want %d", size, len("OggS payload"))
	}
}

func TestS3OpenUnknownSize(t *testing.T) {
	client := &bucketClient{objects: map[string]string{"b/k": "x"}, noSize: true}
	rc, size, err := NewS3(client, "b").Open(context.Background(), "k")
	if err != nil {
		t.Fatal(err)
	}
	rc.Close()
	if size != -1 {
		t.Errorf("size = %d, want -1", size)
	}
}

func TestS3OpenErrors(t *testing.T) {
	tests := []struct {
		name     string
		client   *bucketClient
		bucket   string
		notExist bool
	}{
		{"missing key", &bucketClient{objects: map[string]string{}}, "media", true},
		{"wrong bucket", &bucketClient{objects: map[string]string{"media/k": "x"}}, "other", true},
		{"access denied", &bucketClient{err: &apiError{code: "AccessDenied", msg: "denied"}}, "media", false},
		{"network", &bucketClient{err: errors.New("connection reset")}, "media", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewS3(tt.client, tt.bucket).Open(context.Background(), "k")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, os.ErrNotExist); got != tt.notExist {
				t.Errorf("errors.Is(err, os.ErrNotExist) = %v, want %v (err %v)", got, tt.notExist, err)
			}
			if !strings.Contains(err.Error(), "s3://"+tt.bucket+"/k") {
				t.Errorf("error %q does not name the object", err)
			}
		})
	}
}

func TestIsS3NotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"NoSuchKey", &apiError{code: "NoSuchKey"}, true},
		{"NotFound", &apiError{code: "NotFound"}, true},
		{"NoSuchBucket", &apiError{code: "NoSuchBucket"}, true},
		{"other api error", &apiError{code: "AccessDenied"}, false},
		{"plain error", errors.New("timeout"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isS3NotFound(tt.err); got != tt.want {
				t.Fatalf("isS3NotFound(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestNewS3Client(t *testing.T) {
	c := NewS3Client(S3Config{Endpoint: "http://minio:9000", PathStyle: true}, nil)
	o := c.Options()
	if o.Region != "us-east-1" {
		t.Errorf("Region = %q, want us-east-1", o.Region)
	}
	if o.BaseEndpoint == nil || *o.BaseEndpoint != "http://minio:9000" {
		t.Errorf("BaseEndpoint = %v", o.BaseEndpoint)
	}
	if !o.UsePathStyle {
		t.Error("UsePathStyle = false")
	}

	c = NewS3Client(S3Config{Region: "eu-west-1", AccessKey: "AK", SecretKey: "SK"}, nil)
	creds, err := c.Options().Credentials.Retrieve(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if creds.AccessKeyID != "AK" || creds.SecretAccessKey != "SK" {
		t.Errorf("credentials = %+v", creds)
	}
}

var _ S3Client = (*s3.Client)(nil)
