package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/hervehildenbrand/bgp-conflicts/pkg/models"
	"github.com/redis/go-redis/v9"
)

const (
	defaultListLength = 10000
	defaultTTL        = 48 * time.Hour
)

// RedisSink stores conflicts in a per-collector list, publishes them on a
// channel and keeps a per-prefix conflict counter.
type RedisSink struct {
	client     *redis.Client
	listLength int64
	ttl        time.Duration

	written uint64
	errors  uint64
}

// NewRedisSink connects to redisURL and checks the connection.
func NewRedisSink(ctx context.Context, redisURL string) (*RedisSink, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return NewRedisSinkFromClient(client), nil
}

// NewRedisSinkFromClient wraps an existing client.
func NewRedisSinkFromClient(client *redis.Client) *RedisSink {
	return &RedisSink{
		client:     client,
		listLength: defaultListLength,
		ttl:        defaultTTL,
	}
}

func listKey(collector string) string {
	return "bgp:conflicts:" + collector
}

func channelKey(collector string) string {
	return "bgp:conflicts:" + collector + ":live"
}

func prefixKey(prefix string) string {
	return "bgp:prefix:" + prefix + ":conflicts"
}

func (s *RedisSink) Write(ctx context.Context, conflict models.Conflict) error {
	data, err := json.Marshal(conflict)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	list := listKey(conflict.Collector)
	pipe.LPush(ctx, list, data)
	pipe.LTrim(ctx, list, 0, s.listLength-1)
	pipe.Publish(ctx, channelKey(conflict.Collector), data)
	counter := prefixKey(conflict.ConflictWith.Prefix)
	pipe.Incr(ctx, counter)
	pipe.Expire(ctx, counter, s.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		if atomic.AddUint64(&s.errors, 1)%1000 == 1 {
			log.Printf("Redis write error: %v", err)
		}
		return fmt.Errorf("redis write: %w", err)
	}
	atomic.AddUint64(&s.written, 1)
	return nil
}

// Stats returns sink statistics.
func (s *RedisSink) Stats() map[string]interface{} {
	return map[string]interface{}{
		"written": atomic.LoadUint64(&s.written),
		"errors":  atomic.LoadUint64(&s.errors),
	}
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
