package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const scanListKey = "scans:list"

// IRedis caches the scan list so repeated dashboard polls do not hit Postgres.
type IRedis interface {
	SetScanList(ctx context.Context, payload []byte, expiration time.Duration) error
	GetScanList(ctx context.Context) ([]byte, error)
	InvalidateScanList(ctx context.Context) error
}

// ErrCacheMiss is returned when no cached scan list exists.
var ErrCacheMiss = errors.New("scan list not cached")

type redisClient struct {
	client *redis.Client
}

func New() IRedis {
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	redisAddr := os.Getenv("REDIS_ADDRESS")
	redisPassword := os.Getenv("REDIS_PASSWORD")

	logrus.Info(fmt.Sprintf("Connecting to Redis at %s...", redisAddr))

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		logrus.Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		logrus.Info("Successfully connected to Redis")
	}

	return &redisClient{client: client}
}

func (r *redisClient) SetScanList(ctx context.Context, payload []byte, expiration time.Duration) error {
	err := r.client.Set(ctx, scanListKey, payload, expiration).Err()
	if err != nil {
		logrus.Error(fmt.Sprintf("Error caching scan list: %v", err))
		return err
	}
	return nil
}

func (r *redisClient) GetScanList(ctx context.Context) ([]byte, error) {
	val, err := r.client.Get(ctx, scanListKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	} else if err != nil {
		logrus.Error(fmt.Sprintf("Error reading scan list cache: %v", err))
		return nil, err
	}
	return val, nil
}

func (r *redisClient) InvalidateScanList(ctx context.Context) error {
	if _, err := r.client.Del(ctx, scanListKey).Result(); err != nil {
		logrus.Error(fmt.Sprintf("Error invalidating scan list cache: %v", err))
		return err
	}
	return nil
}
