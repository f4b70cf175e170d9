package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"homework_portal/internal/domain/homework"
)

const (
	redisCurrentKey = "homework:current"
	redisHistoryKey = "homework:history"
)

// RedisStore keeps the current document in a hash and pushes every saved
// snapshot onto a history list.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// ConnectRedis configures a Redis client using the supplied URL.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url must not be empty")
	}
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("unable to connect to redis: %w", err)
	}
	return client, nil
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (s *RedisStore) Load(ctx context.Context) (*homework.Snapshot, error) {
	values, err := s.client.HGetAll(ctx, redisCurrentKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read redis document: %w", err)
	}
	body, ok := values["body"]
	if !ok {
		return loadOrBootstrap(ctx, s, nil, "", s.now())
	}
	return loadOrBootstrap(ctx, s, []byte(body), values["revision"], s.now())
}

func (s *RedisStore) Save(ctx context.Context, data *homework.DataFile, expectedRevision string) (string, error) {
	encoded, err := prepare(data, s.now())
	if err != nil {
		return "", err
	}

	var next string
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, redisCurrentKey, "revision").Result()
		if errors.Is(err, redis.Nil) {
			current = ""
		} else if err != nil {
			return err
		}
		if current != expectedRevision {
			return fmt.Errorf("%w: stored %q, expected %q", homework.ErrRevisionConflict, current, expectedRevision)
		}

		n := int64(0)
		if current != "" {
			if n, err = strconv.ParseInt(current, 10, 64); err != nil {
				return fmt.Errorf("malformed redis revision %q: %w", current, err)
			}
		}
		next = strconv.FormatInt(n+1, 10)

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, redisCurrentKey, "revision", next, "body", string(encoded))
			pipe.LPush(ctx, redisHistoryKey, string(encoded))
			return nil
		})
		return err
	}, redisCurrentKey)
	if errors.Is(err, redis.TxFailedErr) {
		return "", fmt.Errorf("%w: concurrent write", homework.ErrRevisionConflict)
	}
	if err != nil {
		return "", err
	}
	return next, nil
}
