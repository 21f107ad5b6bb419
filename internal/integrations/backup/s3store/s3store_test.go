package s3store

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	bucket string
	key    string
	body   string
	size   int64
	err    error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	f.size = aws.ToInt64(in.ContentLength)
	b, _ := io.ReadAll(in.Body)
	f.body = string(b)
	return &s3.PutObjectOutput{}, nil
}

func TestUploader_Upload(t *testing.T) {
	p := filepath.Join(t.TempDir(), "taxi_orders_1.sql")
	require.NoError(t, os.WriteFile(p, []byte("-- dump"), 0o600))

	api := &fakeS3{}
	u := New(api, "dumps", "/taxi/")
	key, err := u.Upload(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, "taxi/taxi_orders_1.sql", key)
	require.Equal(t, "dumps", api.bucket)
	require.Equal(t, key, api.key)
	require.Equal(t, "-- dump", api.body)
	require.Equal(t, int64(7), api.size)
}

func TestUploader_ObjectKeyWithoutPrefix(t *testing.T) {
	u := New(&fakeS3{}, "dumps", "")
	require.Equal(t, "a.sql", u.ObjectKey("/var/backups/a.sql"))
}

func TestUploader_Errors(t *testing.T) {
	u := New(&fakeS3{err: errors.New("access denied")}, "dumps", "")
	_, err := u.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.sql"))
	require.Error(t, err)

	p := filepath.Join(t.TempDir(), "a.sql")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
	_, err = u.Upload(context.Background(), p)
	require.ErrorContains(t, err, "access denied")
}

func TestNewFromOptions_RequiresBucket(t *testing.T) {
	_, err := NewFromOptions(context.Background(), Options{})
	require.Error(t, err)

	u, err := NewFromOptions(context.Background(), Options{Bucket: "b", Endpoint: "http://localhost:9000", AccessKey: "k", SecretKey: "s"})
	require.NoError(t, err)
	require.NotNil(t, u.api)
}
