package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSpool persists pending messages in Redis lists, one list per
// destination under a common key prefix. Queued alerts survive process
// restarts and are reloaded by Gate.Restore.
type RedisSpool struct {
	client    *redis.Client
	keyPrefix string
}

// RedisSpoolConfig holds connection settings for the spool.
type RedisSpoolConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// NewRedisSpool connects to Redis and returns a durable spool.
func NewRedisSpool(cfg RedisSpoolConfig) (*RedisSpool, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "abcmon:smsqueue"
	}

	log.Printf("[RedisSpool] Connected, DB:%d, prefix:%s", cfg.DB, keyPrefix)
	return &RedisSpool{client: client, keyPrefix: keyPrefix}, nil
}

func (s *RedisSpool) queueKey(destination string) string {
	return s.keyPrefix + ":" + destination
}

// Append stores one newly queued message.
func (s *RedisSpool) Append(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.client.RPush(ctx, s.queueKey(msg.Destination), data).Err()
}

// Replace overwrites the stored queue for a destination.
func (s *RedisSpool) Replace(ctx context.Context, destination string, msgs []Message) error {
	key := s.queueKey(destination)

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		pipe.RPush(ctx, key, data)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Load returns all stored queues keyed by destination.
func (s *RedisSpool) Load(ctx context.Context) (map[string][]Message, error) {
	queues := make(map[string][]Message)

	iter := s.client.Scan(ctx, 0, s.keyPrefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		entries, err := s.client.LRange(ctx, key, 0, -1).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read queue %s: %w", key, err)
		}
		for _, entry := range entries {
			var msg Message
			if err := json.Unmarshal([]byte(entry), &msg); err != nil {
				log.Printf("[RedisSpool] Skipping corrupt entry in %s: %v", key, err)
				continue
			}
			queues[msg.Destination] = append(queues[msg.Destination], msg)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan spool keys: %w", err)
	}
	return queues, nil
}

// Close closes the Redis connection.
func (s *RedisSpool) Close() error {
	return s.client.Close()
}

// Ensure RedisSpool implements Spool
var _ Spool = (*RedisSpool)(nil)
