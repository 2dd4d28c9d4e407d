package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	domain "github.com/campusmarket/marketplace/services/messaging-api/internal/domain/messaging"
)

const principalKeyPrefix = "messaging:v1:principal:"

// RedisCache shares validated principals between service replicas.
type RedisCache struct {
	client redis.UniversalClient
	log    zerolog.Logger
}

type cachedPrincipal struct {
	ID       uint   `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
}

// NewRedisCache connects to Redis. redisURL may list several comma separated URLs for a cluster.
func NewRedisCache(ctx context.Context, redisURL string, log zerolog.Logger) (*RedisCache, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis URL must be provided")
	}

	opts, err := buildUniversalOptions(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if len(opts.Addrs) > 1 && opts.DB != 0 {
		log.Warn().Msg("ignoring non-zero DB when using Redis Cluster configuration")
		opts.DB = 0
	}

	client := redis.NewUniversalClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info().Msg("connected to Redis principal cache")
	return &RedisCache{
		client: client,
		log:    log.With().Str("component", "redis-principal-cache").Logger(),
	}, nil
}

func buildUniversalOptions(raw string) (*redis.UniversalOptions, error) {
	opts := &redis.UniversalOptions{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !strings.Contains(part, "://") {
			opts.Addrs = append(opts.Addrs, part)
			continue
		}

		parsed, err := redis.ParseURL(part)
		if err != nil {
			return nil, err
		}
		opts.Addrs = append(opts.Addrs, parsed.Addr)
		if opts.Username == "" {
			opts.Username = parsed.Username
		}
		if opts.Password == "" {
			opts.Password = parsed.Password
		}
		if opts.DB == 0 {
			opts.DB = parsed.DB
		}
		if opts.TLSConfig == nil {
			opts.TLSConfig = parsed.TLSConfig
		}
	}
	if len(opts.Addrs) == 0 {
		return nil, fmt.Errorf("no redis address in %q", raw)
	}
	return opts, nil
}

// Get misses on any Redis error so authentication falls back to the identity service.
func (c *RedisCache) Get(ctx context.Context, key string) (domain.Principal, bool) {
	data, err := c.client.Get(ctx, principalKeyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn().Err(err).Msg("principal cache read failed")
		}
		return domain.Principal{}, false
	}

	var cached cachedPrincipal
	if err := json.Unmarshal(data, &cached); err != nil {
		return domain.Principal{}, false
	}
	return domain.Principal{ID: cached.ID, Email: cached.Email, Username: cached.Username}, true
}

func (c *RedisCache) Set(ctx context.Context, key string, principal domain.Principal, ttl time.Duration) {
	data, err := json.Marshal(cachedPrincipal{ID: principal.ID, Email: principal.Email, Username: principal.Username})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, principalKeyPrefix+key, data, ttl).Err(); err != nil {
		c.log.Warn().Err(err).Msg("principal cache write failed")
	}
}

// Close releases the Redis connections.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
