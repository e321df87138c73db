package config

import (
	"context"
	"log"
	"os"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis connects the outbound event feed to Redis. REDIS_URL may be
// a bare host:port or a full redis:// URL.
func ConnectRedis() (*redis.Client, error) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "localhost:6379"
	}

	var client *redis.Client
	if opt, err := redis.ParseURL(redisURL); err == nil {
		log.Println("Connecting to Redis via URL...")
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: redisURL})
	}

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Printf("Error connecting to Redis: %v", err)
		return nil, err
	}
	log.Println("Redis connection established")
	return client, nil
}
