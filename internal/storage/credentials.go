package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const credentialKeyPrefix = "campusmart:credential:"

// CredentialStore keeps the bearer credential of one device in Redis. It satisfies
// session.CredentialStore.
type CredentialStore struct {
	Redis *redis.Client
	Key   string
}

// Credentials returns the credential store for deviceID.
func (s *Service) Credentials(deviceID string) *CredentialStore {
	return &CredentialStore{Redis: s.Redis, Key: CredentialKey(deviceID)}
}

func CredentialKey(deviceID string) string {
	return credentialKeyPrefix + deviceID
}

// Load returns "" when no credential is stored.
func (c *CredentialStore) Load(ctx context.Context) (string, error) {
	token, err := c.Redis.Get(ctx, c.Key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load credential: %w", err)
	}
	return token, nil
}

func (c *CredentialStore) Save(ctx context.Context, token string) error {
	if err := c.Redis.Set(ctx, c.Key, token, 0).Err(); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (c *CredentialStore) Delete(ctx context.Context) error {
	if err := c.Redis.Del(ctx, c.Key).Err(); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}
