package database

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"

	"submission-app/config"
)

var RedisClient *redis.Client

// InitRedis connects the catalog cache. Leaving REDIS_ADDRESS unset disables
// caching instead of failing the boot.
func InitRedis() {
	if config.REDIS_ADDRESS == "" {
		log.Println("REDIS_ADDRESS not set, catalog caching disabled")
		return
	}

	RedisClient = redis.NewClient(&redis.Options{
		Addr:     config.REDIS_ADDRESS,
		Password: config.REDIS_PASSWORD,
		DB:       0,
	})

	if _, err := RedisClient.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
}
