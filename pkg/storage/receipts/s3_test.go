package receipts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	now := time.Date(2025, 7, 26, 9, 30, 45, 0, time.UTC)

	key := Key(123456, now)
	assert.Contains(t, key, "receipts/123456/20250726_093045_")
	assert.Contains(t, key, ".jpg")

	// Keys for the same tenant and instant must still differ.
	other := Key(123456, now)
	assert.NotEqual(t, key, other)
}

func TestPublicURL(t *testing.T) {
	store := &Store{cfg: Config{PublicBaseURL: "https://pub-abc.r2.dev/"}}

	url, err := store.url(context.Background(), "receipts/1/x.jpg")
	assert.NoError(t, err)
	assert.Equal(t, "https://pub-abc.r2.dev/receipts/1/x.jpg", url)
}

func TestPresignedURLWithinSigV4Cap(t *testing.T) {
	store, err := New(context.Background(), Config{
		Endpoint:     "https://storage.example.com",
		Region:       "auto",
		Bucket:       "receipts",
		AccessKey:    "key",
		SecretKey:    "secret",
		UsePathStyle: true,
	})
	require.NoError(t, err)

	url, err := store.url(context.Background(), "receipts/1/x.jpg")
	require.NoError(t, err)

	// 604800s is the SigV4 maximum; S3 and R2 reject anything above it.
	assert.Contains(t, url, "X-Amz-Expires=604800")
}
