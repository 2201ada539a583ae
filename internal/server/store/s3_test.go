package store

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botkeeper/botkeeper/internal/common"
	"github.com/botkeeper/botkeeper/internal/server/records"
)

// fakeS3 keeps a single object in memory.
type fakeS3 struct {
	object []byte
	puts   int
}

func (f *fakeS3) GetObject(_ context.Context, _ *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.object == nil {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(f.object))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.object = data
	f.puts++
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store_MissingObjectInitializesEmpty(t *testing.T) {
	fake := &fakeS3{}
	s := NewS3StoreWithClient(fake, "botkeeper", "users.json")

	users, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.Equal(t, 1, fake.puts, "empty collection should be persisted")
	assert.JSONEq(t, `[]`, string(fake.object))
}

func TestS3Store_RoundTrip(t *testing.T) {
	fake := &fakeS3{}
	s := NewS3StoreWithClient(fake, "botkeeper", "users.json")
	ctx := context.Background()

	in := []records.User{{ID: "1", Username: "ann", Email: "a@x.com"}}
	require.NoError(t, s.Save(ctx, in))

	out, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "a@x.com", out[0].Email)
}

func TestS3Store_CorruptObject(t *testing.T) {
	fake := &fakeS3{object: []byte("{broken")}
	s := NewS3StoreWithClient(fake, "botkeeper", "users.json")

	_, err := s.Load(context.Background())
	require.ErrorIs(t, err, common.ErrCorruptStore)
}
