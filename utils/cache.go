// File: utils/cache.go
package utils

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"remindly/config"
)

// TokenCacheClient is the Redis client dedicated to FCM registration tokens.
var TokenCacheClient *redis.Client

const tokenKeyPrefix = "fcm-token:"

// InitTokenCache initializes the Redis client for the FCM token cache.
func InitTokenCache() {
	TokenCacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTokenDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := TokenCacheClient.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (Token Cache): %v", err)
	}
}

// GetTokenCacheClient returns the token cache client.
func GetTokenCacheClient() *redis.Client {
	if TokenCacheClient == nil {
		InitTokenCache()
	}
	return TokenCacheClient
}

// RedisTokenStore stores FCM registration tokens per client id. Tokens are
// refreshed by the device, so they are kept without expiry and overwritten
// in place.
type RedisTokenStore struct {
	client *redis.Client
}

func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

// SetFCMToken stores or refreshes a client's registration token.
func (s *RedisTokenStore) SetFCMToken(ctx context.Context, clientID, token string) error {
	if err := s.client.Set(ctx, tokenKeyPrefix+clientID, token, 0).Err(); err != nil {
		return fmt.Errorf("store FCM token for client %s: %w", clientID, err)
	}
	return nil
}

// FCMToken returns the client's registration token, or empty if none is set.
func (s *RedisTokenStore) FCMToken(ctx context.Context, clientID string) (string, error) {
	token, err := s.client.Get(ctx, tokenKeyPrefix+clientID).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load FCM token for client %s: %w", clientID, err)
	}
	return token, nil
}
