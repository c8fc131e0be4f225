package storage

import (
	"bytes"
	"context"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/rezonia/invoicer/internal/model"
)

const defaultPresignExpiry = 30 * time.Minute

// S3Config configures the bucket sink
type S3Config struct {
	Bucket        string        `mapstructure:"bucket"`
	Region        string        `mapstructure:"region"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
	Endpoint      string        `mapstructure:"endpoint"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
}

// ObjectPutter is the subset of the S3 client used for uploads
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 uploads documents to a bucket
type S3 struct {
	client    ObjectPutter
	presigner *s3.PresignClient
	bucket    string
	prefix    string
	expiry    time.Duration
}

// NewS3 loads the default AWS credential chain for cfg.Region
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, awsConfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, model.NewExternalError("load aws config", "failed to load aws config", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	sink := NewS3WithClient(client, cfg.Bucket, cfg.KeyPrefix)
	sink.presigner = s3.NewPresignClient(client)
	if cfg.PresignExpiry > 0 {
		sink.expiry = cfg.PresignExpiry
	}
	return sink, nil
}

// NewS3WithClient builds a sink around an existing client. Locations are
// returned as s3:// URIs since no presigner is attached.
func NewS3WithClient(client ObjectPutter, bucket, prefix string) *S3 {
	return &S3{
		client: client,
		bucket: bucket,
		prefix: prefix,
		expiry: defaultPresignExpiry,
	}
}

// Put uploads data and returns a presigned download URL when possible
func (s *S3) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	objectKey := key
	if s.prefix != "" {
		objectKey = path.Join(s.prefix, key)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", model.NewExternalError("upload document", "bucket:"+s.bucket+", key:"+objectKey, err)
	}

	if s.presigner == nil {
		return "s3://" + s.bucket + "/" + objectKey, nil
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", model.NewExternalError("presign document", "bucket:"+s.bucket+", key:"+objectKey, err)
	}
	return req.URL, nil
}
