package s3

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/skipgo/store"
)

// MockS3Client is a testify mock for the Client interface.
type MockS3Client struct {
	mock.Mock
}

var _ Client = (*MockS3Client)(nil)

func (m *MockS3Client) HeadObject(ctx context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.HeadObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.GetObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockS3Client) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.DeleteObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockS3Client) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.ListObjectsV2Output), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.PutObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

// The multipart methods exist only to satisfy manager.UploadAPIClient; the
// small blobs these tests write go through a single PutObject.
func (m *MockS3Client) UploadPart(ctx context.Context, params *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	args := m.Called(ctx, params)
	return nil, args.Error(1)
}

func (m *MockS3Client) CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	args := m.Called(ctx, params)
	return nil, args.Error(1)
}

func (m *MockS3Client) CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	args := m.Called(ctx, params)
	return nil, args.Error(1)
}

func (m *MockS3Client) AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	args := m.Called(ctx, params)
	return nil, args.Error(1)
}

func TestStoreOpen(t *testing.T) {
	mockClient := new(MockS3Client)
	s := NewStore(mockClient, "test-bucket", WithPrefix("prefix"))

	t.Run("NotFound", func(t *testing.T) {
		mockClient.On("HeadObject", mock.Anything, mock.MatchedBy(func(input *s3.HeadObjectInput) bool {
			return *input.Bucket == "test-bucket" && *input.Key == "prefix/foo"
		})).Return(nil, &types.NotFound{}).Once()

		_, err := s.Open(context.Background(), "foo")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("Success", func(t *testing.T) {
		mockClient.On("HeadObject", mock.Anything, mock.MatchedBy(func(input *s3.HeadObjectInput) bool {
			return *input.Bucket == "test-bucket" && *input.Key == "prefix/bar"
		})).Return(&s3.HeadObjectOutput{
			ContentLength: aws.Int64(100),
		}, nil).Once()

		blob, err := s.Open(context.Background(), "bar")
		require.NoError(t, err)
		assert.Equal(t, int64(100), blob.Size())
	})
}

func TestStoreDelete(t *testing.T) {
	mockClient := new(MockS3Client)
	s := NewStore(mockClient, "test-bucket", WithPrefix("prefix"))

	mockClient.On("DeleteObject", mock.Anything, mock.MatchedBy(func(input *s3.DeleteObjectInput) bool {
		return *input.Bucket == "test-bucket" && *input.Key == "prefix/del"
	})).Return(&s3.DeleteObjectOutput{}, nil).Once()

	require.NoError(t, s.Delete(context.Background(), "del"))
}

func TestStoreList(t *testing.T) {
	mockClient := new(MockS3Client)
	s := NewStore(mockClient, "test-bucket", WithPrefix("prefix"))

	mockClient.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(input *s3.ListObjectsV2Input) bool {
		return *input.Bucket == "test-bucket" && *input.Prefix == "prefix"
	})).Return(&s3.ListObjectsV2Output{
		Contents: []types.Object{
			{Key: aws.String("prefix/file1")},
			{Key: aws.String("prefix/dir/file2")},
		},
	}, nil).Once()

	keys, err := s.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"dir/file2", "file1"}, keys)
}

func TestStoreListPagination(t *testing.T) {
	mockClient := new(MockS3Client)
	s := NewStore(mockClient, "test-bucket", WithPrefix("prefix"))

	mockClient.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(input *s3.ListObjectsV2Input) bool {
		return input.ContinuationToken == nil
	})).Return(&s3.ListObjectsV2Output{
		IsTruncated:           aws.Bool(true),
		NextContinuationToken: aws.String("token"),
		Contents:              []types.Object{{Key: aws.String("prefix/1")}},
	}, nil).Once()

	mockClient.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(input *s3.ListObjectsV2Input) bool {
		return input.ContinuationToken != nil && *input.ContinuationToken == "token"
	})).Return(&s3.ListObjectsV2Output{
		IsTruncated: aws.Bool(false),
		Contents:    []types.Object{{Key: aws.String("prefix/2")}},
	}, nil).Once()

	keys, err := s.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, keys)
}

func TestBlobReadAt(t *testing.T) {
	newBlob := func(mockClient *MockS3Client) *s3Blob {
		return &s3Blob{
			client: mockClient,
			bucket: "b",
			key:    "k",
			size:   10,
		}
	}

	t.Run("FromStart", func(t *testing.T) {
		mockClient := new(MockS3Client)
		mockClient.On("GetObject", mock.Anything, mock.MatchedBy(func(input *s3.GetObjectInput) bool {
			return *input.Bucket == "b" && *input.Key == "k" && *input.Range == "bytes=0-4"
		})).Return(&s3.GetObjectOutput{
			Body: io.NopCloser(strings.NewReader("hello")),
		}, nil).Once()

		buf := make([]byte, 5)
		n, err := newBlob(mockClient).ReadAt(buf, 0)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, "hello", string(buf))
	})

	t.Run("Interior", func(t *testing.T) {
		mockClient := new(MockS3Client)
		mockClient.On("GetObject", mock.Anything, mock.MatchedBy(func(input *s3.GetObjectInput) bool {
			return *input.Range == "bytes=2-6"
		})).Return(&s3.GetObjectOutput{
			Body: io.NopCloser(strings.NewReader("llo w")),
		}, nil).Once()

		buf := make([]byte, 5)
		n, err := newBlob(mockClient).ReadAt(buf, 2)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
	})

	t.Run("TailClamp", func(t *testing.T) {
		// A request past the last byte is clamped to the blob size; the short
		// read is not an error because it reached the end.
		mockClient := new(MockS3Client)
		mockClient.On("GetObject", mock.Anything, mock.MatchedBy(func(input *s3.GetObjectInput) bool {
			return *input.Range == "bytes=6-9"
		})).Return(&s3.GetObjectOutput{
			Body: io.NopCloser(strings.NewReader("6789")),
		}, nil).Once()

		buf := make([]byte, 8)
		n, err := newBlob(mockClient).ReadAt(buf, 6)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
	})

	t.Run("PastEnd", func(t *testing.T) {
		mockClient := new(MockS3Client)
		n, err := newBlob(mockClient).ReadAt(make([]byte, 1), 10)
		assert.Equal(t, 0, n)
		assert.ErrorIs(t, err, io.EOF)
		mockClient.AssertNotCalled(t, "GetObject")
	})

	t.Run("NegativeOffset", func(t *testing.T) {
		mockClient := new(MockS3Client)
		n, err := newBlob(mockClient).ReadAt(make([]byte, 1), -1)
		assert.Equal(t, 0, n)
		require.Error(t, err)
		assert.NotErrorIs(t, err, io.EOF)
		mockClient.AssertNotCalled(t, "GetObject")
	})
}

func TestStoreCreate(t *testing.T) {
	mockClient := new(MockS3Client)
	s := NewStore(mockClient, "test-bucket", WithPrefix("prefix"))

	mockClient.On("PutObject", mock.Anything, mock.MatchedBy(func(input *s3.PutObjectInput) bool {
		return *input.Bucket == "test-bucket" && *input.Key == "prefix/new"
	})).Run(func(args mock.Arguments) {
		// The uploader streams through a pipe; drain it so Close can finish.
		input := args.Get(1).(*s3.PutObjectInput)
		_, _ = io.ReadAll(input.Body)
	}).Return(&s3.PutObjectOutput{}, nil).Once()

	wb, err := s.Create(context.Background(), "new")
	require.NoError(t, err)

	_, err = wb.Write([]byte("content"))
	require.NoError(t, err)
	require.NoError(t, wb.Close())

	// A second Close reports the pipe as closed.
	assert.Error(t, wb.Close())
}
