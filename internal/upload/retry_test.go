package upload_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/upload"
	mockuploader "github.com/clipcoach/clipcoach-api/clipcoach-api/internal/upload/mock"
)

func TestStoreIdentifier(t *testing.T) {
	t.Run("NoError", func(t *testing.T) {
		ctx := context.Background()
		expected := "identifier"

		ctrl := gomock.NewController(t)
		u := mockuploader.NewMockUploader(ctrl)

		u.EXPECT().StoreIdentifier(gomock.Any()).Return(expected, nil).Times(1)

		retry := upload.NewRetryUploader(u)
		actual, err := retry.StoreIdentifier(ctx)

		require.NoError(t, err, "failed to get store identifier")

		assert.Equal(t, expected, actual, "not matching identifier")
	})

	t.Run("ErrorAfter1Try", func(t *testing.T) {
		ctx := context.Background()
		expected := "identifier"

		ctrl := gomock.NewController(t)
		u := mockuploader.NewMockUploader(ctrl)

		counter := new(int)
		u.EXPECT().
			StoreIdentifier(gomock.Any()).
			DoAndReturn(func(_ context.Context) (string, error) {
				*counter++
				if *counter == 2 {
					return expected, nil
				}

				return "", errors.New("expected error")
			}).
			Times(2)

		retry := upload.NewRetryUploader(u)
		actual, err := retry.StoreIdentifier(ctx)

		require.NoError(t, err, "failed to get store identifier")

		assert.Equal(t, expected, actual, "not matching identifier")
	})

	t.Run("Error", func(t *testing.T) {
		ctx := context.Background()

		ctrl := gomock.NewController(t)
		u := mockuploader.NewMockUploader(ctrl)

		u.EXPECT().StoreIdentifier(gomock.Any()).Return("", errors.New("expected error")).Times(4)

		retry := upload.NewRetryUploaderBackoff(u, func() retry.Backoff {
			b := retry.NewConstant(time.Millisecond * 10)
			b = retry.WithMaxRetries(3, b)
			return b
		})
		_, err := retry.StoreIdentifier(ctx)

		require.Error(t, err, "expected retries to be exhausted")
	})
}

func TestUpload(t *testing.T) {
	t.Run("SeeksToStartEveryAttempt", func(t *testing.T) {
		ctx := context.Background()

		ctrl := gomock.NewController(t)
		u := mockuploader.NewMockUploader(ctrl)

		content := "derivative bytes"
		reader := strings.NewReader(content)

		counter := new(int)
		u.EXPECT().
			Upload(gomock.Any(), gomock.Any(), gomock.Eq(int64(len(content))), gomock.Eq("blob")).
			DoAndReturn(func(_ context.Context, r interface{ Read([]byte) (int, error) }, _ int64, _ string) error {
				*counter++

				buf := make([]byte, len(content))
				n, _ := r.Read(buf)
				assert.Equal(t, content, string(buf[:n]), "attempt should read from start")

				if *counter == 1 {
					return errors.New("expected error")
				}
				return nil
			}).
			Times(2)

		retryUploader := upload.NewRetryUploaderBackoff(u, func() retry.Backoff {
			b := retry.NewConstant(time.Millisecond * 10)
			b = retry.WithMaxRetries(3, b)
			return b
		})

		err := retryUploader.Upload(ctx, reader, int64(len(content)), "blob")
		require.NoError(t, err, "failed to upload")
	})
}
