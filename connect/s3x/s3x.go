// Package s3x provides S3 connectivity built on loom endpoints, used by
// the example REST service to persist uploaded request bodies under a
// key-addressed prefix in a bucket.
package s3x

import (
	"bytes"
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/matgreaves/loom/connect"
)

// Store is a bucket-scoped object store, constructed once per process and
// injected into handlers as a Server Resource.
type Store struct {
	cli    *s3.Client
	bucket string
}

// Connect builds a Store from a loom endpoint's S3_BUCKET attribute,
// loading credentials and region from the standard AWS environment/shared
// config the way every other AWS SDK v2 client does.
func Connect(ctx context.Context, ep connect.Endpoint) (*Store, error) {
	bucket, _ := connect.S3Bucket.Get(ep)
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return &Store{cli: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

// Put uploads body under key, prefixed by nothing — callers namespace keys
// themselves (e.g. "artifacts/<request-id>").
func (s *Store) Put(ctx context.Context, key string, body []byte) error {
	_, err := s.cli.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	return err
}

// Get downloads the object stored at key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.cli.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// Delete removes the object stored at key.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.cli.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}
