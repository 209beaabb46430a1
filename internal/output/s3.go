package output

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Store writes artifacts to an S3 compatible bucket.
type S3Store struct {
	client objectAPI
	bucket string
}

// NewS3Store creates a store for bucket. A custom endpoint switches the
// client to path-style addressing for R2 and MinIO.
func NewS3Store(ctx context.Context, bucket string, cfg S3Config) (*S3Store, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{client: client, bucket: bucket}, nil
}

// Save puts the JSON object and then the Markdown object. The JSON object is
// deleted again when the second put fails.
func (s *S3Store) Save(ctx context.Context, base string, artifacts Artifacts) (Locations, error) {
	key := strings.TrimPrefix(base, "/")
	if key == "" {
		return Locations{}, errors.New("object key is empty")
	}
	keys := names(key)

	if err := s.put(ctx, keys.JSON, artifacts.JSON, "application/json"); err != nil {
		return Locations{}, err
	}
	if err := s.put(ctx, keys.Markdown, artifacts.Markdown, "text/markdown; charset=utf-8"); err != nil {
		if _, delErr := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(keys.JSON),
		}); delErr != nil {
			return Locations{}, errors.Join(err, fmt.Errorf("roll back %s: %w", s.url(keys.JSON), delErr))
		}
		return Locations{}, err
	}

	return Locations{JSON: s.url(keys.JSON), Markdown: s.url(keys.Markdown)}, nil
}

func (s *S3Store) Exists(ctx context.Context, base string) (bool, error) {
	keys := names(strings.TrimPrefix(base, "/"))
	for _, key := range []string{keys.JSON, keys.Markdown} {
		_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err == nil {
			return true, nil
		}
		var notFound *types.NotFound
		if !errors.As(err, &notFound) {
			return false, fmt.Errorf("check %s: %w", s.url(key), err)
		}
	}
	return false, nil
}

func (s *S3Store) put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", s.url(key), err)
	}
	return nil
}

func (s *S3Store) url(key string) string {
	return s3Scheme + s.bucket + "/" + key
}
