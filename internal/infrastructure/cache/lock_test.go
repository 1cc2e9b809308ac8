package cache

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestPassLockKey(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	l := NewPassLock(client, "quantity-rebuild", time.Minute)
	assert.Equal(t, "repairpos:lock:quantity-rebuild", l.Key())
	assert.Equal(t, time.Minute, l.ttl)
}
