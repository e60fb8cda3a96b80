package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/tripbooking/config"
	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(cfg config.RedisConfig) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
	}
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) GetOffer(ctx context.Context, offerID string) (*domain.OfferSnapshot, error) {
	data, err := c.client.Get(ctx, offerKey(offerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var offer domain.OfferSnapshot
	if err := json.Unmarshal(data, &offer); err != nil {
		return nil, err
	}
	return &offer, nil
}

func (c *RedisCache) SetOffer(ctx context.Context, offer *domain.OfferSnapshot, ttl time.Duration) error {
	payload, err := json.Marshal(offer)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, offerKey(offer.ID), payload, ttl).Err()
}

// releaseIfOwner deletes the lock only while it still holds the caller's token.
var releaseIfOwner = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// AcquireSendLock returns false if another worker holds the confirmation lock
// for this booking. The returned token must be passed to ReleaseSendLock.
func (c *RedisCache) AcquireSendLock(ctx context.Context, bookingID string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := c.client.SetNX(ctx, sendLockKey(bookingID), token, ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

// ReleaseSendLock is a no-op when the lock expired and was taken by someone else.
func (c *RedisCache) ReleaseSendLock(ctx context.Context, bookingID, token string) error {
	return releaseIfOwner.Run(ctx, c.client, []string{sendLockKey(bookingID)}, token).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func offerKey(offerID string) string {
	return fmt.Sprintf("cache:offer:%s", offerID)
}

func sendLockKey(bookingID string) string {
	return fmt.Sprintf("lock:booking:%s:confirmation", bookingID)
}
