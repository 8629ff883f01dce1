package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ErrTransport wraps every broker-side failure: unreachable server, missing
// group or stream, protocol errors. Callers recover by resetting their group
// cursor and backing off.
var ErrTransport = errors.New("stream transport error")

// Message is one stream entry delivered to a consumer.
type Message struct {
	ID     string
	Fields map[string]string
}

type IRedis interface {
	Publish(ctx context.Context, stream string, fields map[string]interface{}) (string, error)
	ConsumeGroup(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Message, error)
	Acknowledge(ctx context.Context, stream, group, id string) error
	Delete(ctx context.Context, stream, id string) error
	ResetGroupCursor(ctx context.Context, stream, group, position string) error
	EnsureGroup(ctx context.Context, stream, group, position string) error

	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)

	Ping(ctx context.Context) error
	Close() error
}

type Options struct {
	Addr     string
	Password string
	DB       int
}

type redisClient struct {
	client *redis.Client
	log    *logrus.Logger
}

func New(opts Options, log *logrus.Logger) IRedis {
	log.Info(fmt.Sprintf("Connecting to Redis at %s...", opts.Addr))

	client := redis.NewClient(&redis.Options{
		Addr:                  opts.Addr,
		Password:              opts.Password,
		DB:                    opts.DB,
		ContextTimeoutEnabled: true,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		log.Info("Successfully connected to Redis")
	}

	return &redisClient{client: client, log: log}
}

// NewFromClient wraps an existing go-redis client.
func NewFromClient(client *redis.Client, log *logrus.Logger) IRedis {
	return &redisClient{client: client, log: log}
}

func (r *redisClient) Publish(ctx context.Context, stream string, fields map[string]interface{}) (string, error) {
	id, err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: fields,
	}).Result()
	if err != nil {
		return "", r.transportErr(ctx, err)
	}
	return id, nil
}

// ConsumeGroup reads up to count new entries for consumer. A zero block waits
// forever, a negative block does not wait at all. Hitting the block window
// without data returns an empty slice and no error.
func (r *redisClient) ConsumeGroup(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Message, error) {
	streams, err := r.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, r.transportErr(ctx, err)
	}

	var messages []Message
	for _, s := range streams {
		for _, m := range s.Messages {
			messages = append(messages, Message{ID: m.ID, Fields: stringFields(m.Values)})
		}
	}
	return messages, nil
}

func (r *redisClient) Acknowledge(ctx context.Context, stream, group, id string) error {
	if err := r.client.XAck(ctx, stream, group, id).Err(); err != nil {
		return r.transportErr(ctx, err)
	}
	return nil
}

func (r *redisClient) Delete(ctx context.Context, stream, id string) error {
	if err := r.client.XDel(ctx, stream, id).Err(); err != nil {
		return r.transportErr(ctx, err)
	}
	return nil
}

// ResetGroupCursor moves the group's last-delivered id to position. A missing
// group is recreated at position, together with the stream if needed.
func (r *redisClient) ResetGroupCursor(ctx context.Context, stream, group, position string) error {
	err := r.client.XGroupSetID(ctx, stream, group, position).Err()
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "NOGROUP") || strings.Contains(err.Error(), "no such key") {
		r.log.WithFields(logrus.Fields{
			"stream": stream,
			"group":  group,
		}).Warn("Consumer group missing, recreating it")
		return r.EnsureGroup(ctx, stream, group, position)
	}
	return r.transportErr(ctx, err)
}

func (r *redisClient) EnsureGroup(ctx context.Context, stream, group, position string) error {
	err := r.client.XGroupCreateMkStream(ctx, stream, group, position).Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return r.transportErr(ctx, err)
	}
	return nil
}

func (r *redisClient) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	r.log.Debug(fmt.Sprintf("Setting key %s with expiration %v", key, ttl))
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		r.log.Error(fmt.Sprintf("Error setting key %s: %v", key, err))
		return r.transportErr(ctx, err)
	}
	return nil
}

func (r *redisClient) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		r.log.Error(fmt.Sprintf("Error claiming key %s: %v", key, err))
		return false, r.transportErr(ctx, err)
	}
	return ok, nil
}

func (r *redisClient) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, r.transportErr(ctx, err)
	}
	return n > 0, nil
}

func (r *redisClient) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return r.transportErr(ctx, err)
	}
	return nil
}

func (r *redisClient) Close() error {
	return r.client.Close()
}

// transportErr keeps context cancellation distinguishable from broker
// failures so shutdown never looks like an outage.
func (r *redisClient) transportErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %v", ErrTransport, err)
}

func stringFields(values map[string]interface{}) map[string]string {
	fields := make(map[string]string, len(values))
	for k, v := range values {
		switch val := v.(type) {
		case string:
			fields[k] = val
		case []byte:
			fields[k] = string(val)
		default:
			fields[k] = fmt.Sprint(val)
		}
	}
	return fields
}
