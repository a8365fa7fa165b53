package dump

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const s3Scheme = "s3://"

// S3API is the subset of the S3 client used for ranged reads.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Option configures an S3Source.
type S3Option func(*s3Options)

type s3Options struct {
	client    S3API
	region    string
	endpoint  string
	accessKey string
	secretKey string
}

// WithS3Client uses an existing client instead of loading the AWS default config.
func WithS3Client(client S3API) S3Option {
	return func(o *s3Options) {
		o.client = client
	}
}

// WithRegion overrides the region from the environment.
func WithRegion(region string) S3Option {
	return func(o *s3Options) {
		o.region = region
	}
}

// WithEndpoint points the client at an S3-compatible service and enables path-style addressing.
func WithEndpoint(endpoint string) S3Option {
	return func(o *s3Options) {
		o.endpoint = endpoint
	}
}

// WithStaticCredentials uses an access key pair instead of the default credential chain.
func WithStaticCredentials(accessKey, secretKey string) S3Option {
	return func(o *s3Options) {
		o.accessKey = accessKey
		o.secretKey = secretKey
	}
}

// S3Source reads a dump stored as an S3 object using ranged GETs.
type S3Source struct {
	client S3API
	bucket string
	key    string
}

var _ Source = (*S3Source)(nil)

// NewS3Source creates a source for an s3://bucket/key URI.
func NewS3Source(ctx context.Context, uri string, opts ...S3Option) (*S3Source, error) {
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return nil, err
	}

	o := s3Options{}
	for _, opt := range opts {
		opt(&o)
	}

	client := o.client
	if client == nil {
		var loadOpts []func(*config.LoadOptions) error
		if o.region != "" {
			loadOpts = append(loadOpts, config.WithRegion(o.region))
		}
		if o.accessKey != "" || o.secretKey != "" {
			loadOpts = append(loadOpts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(o.accessKey, o.secretKey, ""),
			))
		}
		awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		client = s3.NewFromConfig(awsCfg, func(so *s3.Options) {
			if o.endpoint != "" {
				so.BaseEndpoint = aws.String(o.endpoint)
				so.UsePathStyle = true
			}
		})
	}

	return &S3Source{client: client, bucket: bucket, key: key}, nil
}

// ParseS3URI splits s3://bucket/key into its parts.
func ParseS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, s3Scheme)
	if !ok {
		return "", "", fmt.Errorf("%w: %q is not an s3 URI", ErrInvalidLocation, uri)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q needs a bucket and a key", ErrInvalidLocation, uri)
	}
	return bucket, key, nil
}

func (s *S3Source) Name() string {
	return s3Scheme + s.bucket + "/" + s.key
}

func (s *S3Source) OpenRange(ctx context.Context, start, end int64) (io.ReadCloser, error) {
	if err := checkRange(start, end); err != nil {
		return nil, err
	}

	input := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	}
	if header := rangeHeader(start, end); header != "" {
		input.Range = aws.String(header)
	}

	resp, err := s.client.GetObject(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("s3 get %s range %d-%d failed: %w", s.Name(), start, end, err)
	}
	return resp.Body, nil
}

// rangeHeader renders an HTTP Range value. The whole object needs no header.
func rangeHeader(start, end int64) string {
	switch {
	case end >= 0:
		return fmt.Sprintf("bytes=%d-%d", start, end)
	case start > 0:
		return fmt.Sprintf("bytes=%d-", start)
	default:
		return ""
	}
}
