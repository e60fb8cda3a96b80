package cache

import (
	"testing"

	"github.com/Domenick1991/tripbooking/config"
	"github.com/stretchr/testify/assert"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "cache:offer:OFF1", offerKey("OFF1"))
	assert.Equal(t, "lock:booking:b-1:confirmation", sendLockKey("b-1"))
}

func TestNewRedisCache(t *testing.T) {
	c := NewRedisCache(config.RedisConfig{Addr: "localhost:6379"})
	assert.NotNil(t, c)
	assert.NoError(t, c.Close())
}
