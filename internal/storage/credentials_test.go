package storage_test

import (
	"context"
	"os"
	"testing"

	"campusmart/client/internal/storage"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialKey(t *testing.T) {
	assert.Equal(t, "campusmart:credential:laptop", storage.CredentialKey("laptop"))
}

// Runs against a real server when REDIS_TEST_URL is set.
func TestCredentialStore_RoundTrip(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	defer rdb.Close()

	ctx := context.Background()
	creds := storage.NewStorageService(nil, rdb).Credentials("test-" + uuid.NewString())

	token, err := creds.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, creds.Save(ctx, "header.payload.sig"))
	token, err = creds.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "header.payload.sig", token)

	require.NoError(t, creds.Delete(ctx))
	token, err = creds.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}
