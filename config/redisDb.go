package config

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// Redis is optional infrastructure: the service runs correctly without it.
// Correctness of ledger movement rests on MySQL transactions; the redislock
// client is only used as a best-effort guard against concurrent completion
// bookkeeping across instances.

var (
	locker *redislock.Client
)

func GetRedisLock() *redislock.Client {
	return locker
}

// ConnectRedis connects to REDIS_ADDRESS if configured. Missing or
// unreachable Redis is logged and tolerated.
func ConnectRedis() {
	address := os.Getenv("REDIS_ADDRESS")
	if address == "" {
		log.Printf("REDIS_ADDRESS not set; running without redis")
		return
	}

	client := redis.NewClient(&redis.Options{
		Addr: address,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("redis unreachable (%s): %v; running without redis", address, err)
		return
	}

	locker = redislock.New(client)
	log.Printf("connected to redis at %s", address)
}
