package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"servicehost/internal/config"
	"servicehost/internal/logger"
	"servicehost/internal/network"
)

// EventsChannel is appended to the key prefix to form the pub/sub channel.
const EventsChannel = "events"

// RedisPublisher keeps the latest service state in a hash and broadcasts
// every event on a pub/sub channel.
type RedisPublisher struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	timeout   time.Duration
	mu        sync.RWMutex
	closed    bool
}

// NewRedisPublisher creates a Redis publisher. The connection is made lazily
// on the first publish.
func NewRedisPublisher(cfg config.RedisConfig, socksCfg config.SOCKSConfig) (*RedisPublisher, error) {
	log := logger.WithComponent("redis-publisher")

	if cfg.Address == "" {
		return nil, fmt.Errorf("redis publisher requires Address")
	}

	opts := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.Timeout > 0 {
		opts.DialTimeout = cfg.Timeout
		opts.ReadTimeout = cfg.Timeout
		opts.WriteTimeout = cfg.Timeout
	}

	dial, err := network.ContextDialer(socksCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer for Redis: %w", err)
	}
	if dial != nil {
		opts.Dialer = dial
	}

	log.Info().
		Str("address", cfg.Address).
		Int("db", cfg.DB).
		Str("key_prefix", cfg.KeyPrefix).
		Dur("ttl", cfg.TTL).
		Bool("socks", dial != nil).
		Msg("RedisPublisher initialized")

	return &RedisPublisher{
		client:    redis.NewClient(opts),
		keyPrefix: cfg.KeyPrefix,
		ttl:       cfg.TTL,
		timeout:   cfg.Timeout,
	}, nil
}

// Key returns the hash key holding the latest state of a service.
func (p *RedisPublisher) Key(serviceName string) string {
	return p.keyPrefix + serviceName
}

// Channel returns the pub/sub channel events are broadcast on.
func (p *RedisPublisher) Channel() string {
	return p.keyPrefix + EventsChannel
}

// Publish updates the service hash, refreshes its TTL and broadcasts the
// event in a single transaction.
func (p *RedisPublisher) Publish(ctx context.Context, event *Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	key := p.Key(event.Service)
	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, hashFields(event, payload))
		if p.ttl > 0 {
			pipe.Expire(ctx, key, p.ttl)
		}
		pipe.Publish(ctx, p.Channel(), payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis publish to %s failed: %w", key, err)
	}
	return nil
}

// hashFields flattens the event into the fields stored under the service key.
func hashFields(event *Event, payload []byte) map[string]interface{} {
	ts := event.Timestamp.UTC().Format(time.RFC3339Nano)
	fields := map[string]interface{}{
		"state":      event.State,
		"hostname":   event.Hostname,
		"pid":        strconv.Itoa(event.PID),
		"last_event": string(payload),
	}
	fields["last_"+string(event.Kind)] = ts
	if event.Kind == KindStatus {
		fields["checkpoint"] = strconv.FormatUint(uint64(event.CheckPoint), 10)
		fields["accepts"] = strings.Join(event.Accepts, "|")
	}
	return fields
}

// Close closes the Redis client.
func (p *RedisPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.client.Close()
}
