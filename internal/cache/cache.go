// Package cache provides a redis-backed cache for rendered context
// blocks. The cache is best-effort: every failure degrades to a miss
// and the engine recomputes. Entries are short-lived and invalidated on
// any write touching the agent, trading a bounded window of access-stat
// staleness for retrieval latency.
package cache

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// keyPrefix namespaces all engine keys in a shared redis.
const keyPrefix = "memkit:ctx"

// Config configures the context cache.
type Config struct {
	// Addr is the redis address.
	Addr string `yaml:"addr" json:"addr"`

	// Password authenticates against redis, empty for none.
	Password string `yaml:"password" json:"password"`

	// DB selects the redis database.
	DB int `yaml:"db" json:"db"`

	// TTL bounds how stale a cached context block may get.
	TTL time.Duration `yaml:"ttl" json:"ttl"`

	// PoolSize bounds the connection pool.
	PoolSize int `yaml:"pool_size" json:"pool_size"`
}

// DefaultConfig returns the cache defaults.
func DefaultConfig() Config {
	return Config{
		Addr:     "localhost:6379",
		TTL:      30 * time.Second,
		PoolSize: 10,
	}
}

// ContextCache caches rendered context blocks per agent.
type ContextCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New connects to redis and returns a ContextCache. The connection is
// verified with a ping so a misconfigured cache fails at startup, not
// mid-conversation.
func New(config Config, logger *zap.Logger) (*ContextCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
		PoolSize: config.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewWithClient(client, config, logger), nil
}

// NewWithClient wraps an existing redis client. Tests use this with
// miniredis.
func NewWithClient(client *redis.Client, config Config, logger *zap.Logger) *ContextCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := config.TTL
	if ttl <= 0 {
		ttl = DefaultConfig().TTL
	}
	return &ContextCache{
		client: client,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "context_cache")),
	}
}

// GetContext returns a cached context block, or ok=false on miss or
// failure.
func (c *ContextCache) GetContext(ctx context.Context, agentID, conversationID, query string) (string, bool) {
	text, err := c.client.Get(ctx, c.key(agentID, conversationID, query)).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		c.logger.Warn("cache get failed", zap.String("agent_id", agentID), zap.Error(err))
		return "", false
	}
	return text, true
}

// SetContext stores a context block with the configured TTL.
func (c *ContextCache) SetContext(ctx context.Context, agentID, conversationID, query, text string) {
	if err := c.client.Set(ctx, c.key(agentID, conversationID, query), text, c.ttl).Err(); err != nil {
		c.logger.Warn("cache set failed", zap.String("agent_id", agentID), zap.Error(err))
	}
}

// InvalidateAgent drops every cached block of an agent. Called after
// any write that could change retrieval results.
func (c *ContextCache) InvalidateAgent(ctx context.Context, agentID string) {
	pattern := fmt.Sprintf("%s:%s:*", keyPrefix, agentID)
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("cache scan failed", zap.String("agent_id", agentID), zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("cache invalidation failed", zap.String("agent_id", agentID), zap.Error(err))
	}
}

// Close releases the underlying client.
func (c *ContextCache) Close() error {
	return c.client.Close()
}

func (c *ContextCache) key(agentID, conversationID, query string) string {
	h := fnv.New64a()
	h.Write([]byte(conversationID))
	h.Write([]byte{0})
	h.Write([]byte(query))
	return fmt.Sprintf("%s:%s:%x", keyPrefix, agentID, h.Sum64())
}
