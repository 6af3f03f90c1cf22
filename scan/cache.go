package scan

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const defaultCacheTTL = 15 * time.Minute

// ResultCache keeps finished scan results in Redis so repeat analyses of the
// same URL skip all network calls. It is strictly fail-open: any cache error
// only means the scan is recomputed.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
	log    logrus.FieldLogger
}

// NewResultCacheFromEnv builds a cache from REDIS_HOST/REDIS_PORT. Returns
// nil when Redis is not configured or unreachable; a nil cache is a no-op.
func NewResultCacheFromEnv(log logrus.FieldLogger) *ResultCache {
	host := os.Getenv("REDIS_HOST")
	port := os.Getenv("REDIS_PORT")
	if host == "" || port == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         host + ":" + port,
		Password:     os.Getenv("REDIS_PASSWORD"),
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("Redis unreachable, result cache disabled")
		return nil
	}

	ttl := defaultCacheTTL
	if raw := os.Getenv("SCAN_CACHE_TTL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			ttl = parsed
		}
	}

	log.WithField("addr", host+":"+port).Info("Result cache enabled")
	return &ResultCache{client: client, ttl: ttl, log: log}
}

func cacheKey(rawURL string, deep bool) string {
	sum := sha256.Sum256([]byte(rawURL))
	return fmt.Sprintf("scan:result:%x:%t", sum[:8], deep)
}

// Get returns a cached result, or nil on miss or error.
func (c *ResultCache) Get(ctx context.Context, rawURL string, deep bool) *Result {
	if c == nil {
		return nil
	}
	raw, err := c.client.Get(ctx, cacheKey(rawURL, deep)).Result()
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).Debug("cache read failed")
		}
		return nil
	}
	var res Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil
	}
	return &res
}

// Put stores a finished result. Errors are logged and dropped.
func (c *ResultCache) Put(ctx context.Context, rawURL string, deep bool, res *Result) {
	if c == nil {
		return
	}
	payload, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(rawURL, deep), payload, c.ttl).Err(); err != nil {
		c.log.WithError(err).Debug("cache write failed")
	}
}
