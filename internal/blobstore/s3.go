package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/2beens/pushpullrun/internal/telemetry/tracing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=blobstore_mocks_test.go -package=blobstore_test

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var _ Store = (*S3Store)(nil)

// S3Store uploads public-read objects to an S3 compatible bucket (AWS, Spaces, minio).
type S3Store struct {
	client        objectPutter
	bucket        string
	publicBaseURL string
}

type NewS3ClientParams struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	// PathStyle is needed for minio and most self hosted endpoints.
	PathStyle bool
}

func NewS3Client(ctx context.Context, params NewS3ClientParams) (*s3.Client, error) {
	tracedHttpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(params.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(params.AccessKey, params.SecretKey, "")),
		config.WithHTTPClient(tracedHttpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if params.Endpoint != "" {
			o.BaseEndpoint = aws.String(params.Endpoint)
		}
		o.UsePathStyle = params.PathStyle
	}), nil
}

func NewS3Store(client objectPutter, bucket, publicBaseURL string) *S3Store {
	return &S3Store{
		client:        client,
		bucket:        bucket,
		publicBaseURL: publicBaseURL,
	}
}

func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blobstore.s3.put")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	span.SetAttributes(attribute.String("blob.key", key))
	span.SetAttributes(attribute.String("blob.bucket", s.bucket))

	if !validKey(key) {
		return "", fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}

	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		ACL:           types.ObjectCannedACLPublicRead,
	}); err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	log.Debugf("s3 blob store: uploaded %s to bucket %s", key, s.bucket)
	return joinURL(s.publicBaseURL, key), nil
}
