// Package s3store ships database dumps to an S3-compatible bucket.
package s3store

import (
	"context"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
)

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Prefix    string
}

type Uploader struct {
	api    putObjectAPI
	bucket string
	prefix string
}

func New(api putObjectAPI, bucket, prefix string) *Uploader {
	return &Uploader{api: api, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// NewFromOptions builds an S3 client. A custom endpoint switches to path-style
// addressing for MinIO and similar stores.
func NewFromOptions(ctx context.Context, o Options) (*Uploader, error) {
	if o.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	region := o.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if o.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}

	client := s3.NewFromConfig(awsCfg, func(so *s3.Options) {
		if o.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.Endpoint)
			so.UsePathStyle = true
		}
	})
	return New(client, o.Bucket, o.Prefix), nil
}

func (u *Uploader) ObjectKey(file string) string {
	name := filepath.Base(file)
	if u.prefix == "" {
		return name
	}
	return path.Join(u.prefix, name)
}

// Upload puts the file under ObjectKey and returns the key.
func (u *Uploader) Upload(ctx context.Context, file string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", errors.Wrap(err, "open dump")
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return "", errors.Wrap(err, "stat dump")
	}

	key := u.ObjectKey(file)
	_, err = u.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(st.Size()),
		ContentType:   aws.String("application/sql"),
	})
	if err != nil {
		return "", errors.Wrapf(err, "put s3://%s/%s", u.bucket, key)
	}

	slog.Info("dump uploaded", "bucket", u.bucket, "key", key, "bytes", st.Size())
	return key, nil
}
