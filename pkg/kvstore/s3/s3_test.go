package s3

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
)

func TestNewS3StoreValidation(t *testing.T) {
	ctx := context.Background()

	_, err := NewS3Store(ctx, S3StoreConfig{Bucket: "b"})
	assert.ErrorContains(t, err, "client is required")

	client, err := NewClient(ctx, ClientConfig{Region: "us-east-1", AccessKeyID: "a", SecretAccessKey: "b"})
	assert.NoError(t, err)

	_, err = NewS3Store(ctx, S3StoreConfig{Client: client})
	assert.ErrorContains(t, err, "bucket name is required")
}

func TestNewClientRequiresRegion(t *testing.T) {
	_, err := NewClient(context.Background(), ClientConfig{})
	assert.Error(t, err)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(&types.NoSuchKey{}))
	assert.True(t, isNotFound(&types.NotFound{}))
	assert.False(t, isNotFound(assert.AnError))
}

func TestObjectKey(t *testing.T) {
	s := &S3Store{keyPrefix: "kv/"}
	assert.Equal(t, "kv/users/1", s.objectKey("users/1"))
}
