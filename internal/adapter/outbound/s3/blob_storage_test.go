package s3

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/uniedit/photos/internal/port/outbound"
)

// MockS3 is a mock of DeleteObjectsAPI.
type MockS3 struct {
	mock.Mock
}

func (m *MockS3) DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.DeleteObjectsOutput), args.Error(1)
}

func batchOf(n int) func(*s3.DeleteObjectsInput) bool {
	return func(in *s3.DeleteObjectsInput) bool {
		return len(in.Delete.Objects) == n && aws.ToString(in.Bucket) == "photos"
	}
}

func TestBlobStorageAdapter_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("batches keys", func(t *testing.T) {
		client := new(MockS3)
		client.On("DeleteObjects", ctx, mock.MatchedBy(batchOf(1000))).Return(&s3.DeleteObjectsOutput{}, nil).Once()
		client.On("DeleteObjects", ctx, mock.MatchedBy(batchOf(500))).Return(&s3.DeleteObjectsOutput{}, nil).Once()

		keys := make([]string, 1500)
		for i := range keys {
			keys[i] = "k"
		}

		adapter := NewBlobStorageAdapter(client, "photos")
		require.NoError(t, adapter.Delete(ctx, keys))
		client.AssertExpectations(t)
	})

	t.Run("no keys", func(t *testing.T) {
		client := new(MockS3)
		adapter := NewBlobStorageAdapter(client, "photos")
		require.NoError(t, adapter.Delete(ctx, nil))
		client.AssertNotCalled(t, "DeleteObjects")
	})

	t.Run("per key errors fail the call", func(t *testing.T) {
		client := new(MockS3)
		client.On("DeleteObjects", ctx, mock.Anything).Return(&s3.DeleteObjectsOutput{
			Errors: []types.Error{{Key: aws.String("a"), Code: aws.String("AccessDenied")}},
		}, nil)

		adapter := NewBlobStorageAdapter(client, "photos")
		err := adapter.Delete(ctx, []string{"a", "b"})
		assert.ErrorContains(t, err, "a (AccessDenied)")
	})

	t.Run("breaker opens after repeated failures", func(t *testing.T) {
		client := new(MockS3)
		client.On("DeleteObjects", ctx, mock.Anything).Return(nil, errors.New("connection reset"))

		adapter := NewBlobStorageAdapter(client, "photos")
		for i := 0; i < 5; i++ {
			assert.Error(t, adapter.Delete(ctx, []string{"a"}))
		}
		assert.Equal(t, gobreaker.StateOpen, adapter.State())

		err := adapter.Delete(ctx, []string{"a"})
		assert.ErrorIs(t, err, ErrStorageUnavailable)
		assert.ErrorIs(t, err, outbound.ErrBlobStoreUnavailable)
		client.AssertNumberOfCalls(t, "DeleteObjects", 5)
	})
}
