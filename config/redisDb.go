package config

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

var (
	rdb    *redis.Client
	locker *redislock.Client
)

// GetRedisDB returns nil when REDIS_ADDRESS is not configured.
func GetRedisDB() *redis.Client {
	return rdb
}

// GetRedisLock returns nil when Redis is not configured.
func GetRedisLock() *redislock.Client {
	return locker
}

func GetRedisObject(ctx context.Context, key string, dest interface{}) (bool, error) {
	if rdb == nil {
		return false, nil
	}
	val, err := rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, err
	}
	return true, nil
}

func SetRedisObject(ctx context.Context, key string, obj interface{}, exp time.Duration) error {
	if rdb == nil {
		return nil
	}
	objInByte, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, key, objInByte, exp).Err()
}

func RemoveRedisKey(ctx context.Context, keys ...string) error {
	if rdb == nil {
		return nil
	}
	_, err := rdb.Del(ctx, keys...).Result()
	return err
}

// ConnectRedis connects when REDIS_ADDRESS is set. Redis is optional for a
// single-branch install, so a failed connection is logged and left disabled.
func ConnectRedis(ctx context.Context) {
	redisAddr := EnvDefault("REDIS_ADDRESS", "")
	if redisAddr == "" {
		log.Printf("REDIS_ADDRESS not set; redis cache and sync lock disabled")
		return
	}

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: EnvDefault("REDIS_PASSWORD", ""),
		DB:       IntFromEnv("REDIS_DB", 0),
		PoolSize: 20,
	})
	for attempt := 1; attempt <= 3; attempt++ {
		if err := client.Ping(ctx).Err(); err == nil {
			rdb = client
			locker = redislock.New(rdb)
			log.Printf("connected to redis (attempt=%d addr=%s)", attempt, redisAddr)
			return
		} else {
			log.Printf("failed to connect redis (attempt=%d addr=%s): %v", attempt, redisAddr, err)
		}
		time.Sleep(time.Second * time.Duration(attempt))
	}
	_ = client.Close()
}
