package cache

import (
	"github.com/redis/go-redis/v9"
)

// Open builds a Redis client from a redis:// or rediss:// URL. The connection
// is lazy; callers ping when they need to know it is up.
func Open(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}
