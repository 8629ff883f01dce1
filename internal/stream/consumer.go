package stream

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	redisPkg "FramePipeline/pkg/redis"
	"FramePipeline/pkg/utils"
	"github.com/sirupsen/logrus"
)

// Handler absorbs one message into local state. It runs before the message
// is acknowledged and deleted. The returned continuation, if non-nil, runs
// after both succeeded. A handler error marks the message as malformed: it is
// acknowledged and deleted without running anything else.
type Handler func(ctx context.Context, msg redisPkg.Message) (func(context.Context), error)

type ConsumerConfig struct {
	Stream   string
	Group    string
	Consumer string
	// Block bounds each read so cancellation is observed between reads.
	Block   time.Duration
	Backoff time.Duration
}

type ConsumerStats struct {
	Received        uint64 `json:"received"`
	Malformed       uint64 `json:"malformed"`
	TransportErrors uint64 `json:"transport_errors"`
}

// Consumer pulls one message at a time from a consumer group.
type Consumer struct {
	transport redisPkg.IRedis
	cfg       ConsumerConfig
	log       *logrus.Logger

	received        atomic.Uint64
	malformed       atomic.Uint64
	transportErrors atomic.Uint64
}

func NewConsumer(transport redisPkg.IRedis, cfg ConsumerConfig, log *logrus.Logger) *Consumer {
	return &Consumer{transport: transport, cfg: cfg, log: log}
}

func (c *Consumer) Stats() ConsumerStats {
	return ConsumerStats{
		Received:        c.received.Load(),
		Malformed:       c.malformed.Load(),
		TransportErrors: c.transportErrors.Load(),
	}
}

// Run consumes until ctx is cancelled. Transport failures never end the loop:
// the group cursor is reset to the stream origin and the consumer backs off.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	c.log.WithFields(logrus.Fields{
		"stream":   c.cfg.Stream,
		"group":    c.cfg.Group,
		"consumer": c.cfg.Consumer,
	}).Info("Starting stream consumer")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msgs, err := c.transport.ConsumeGroup(ctx, c.cfg.Stream, c.cfg.Group, c.cfg.Consumer, 1, c.cfg.Block)
		if err != nil {
			if recErr := c.recover(ctx, err); recErr != nil {
				return recErr
			}
			continue
		}

		for _, msg := range msgs {
			if err := c.process(ctx, msg, handle); err != nil {
				if recErr := c.recover(ctx, err); recErr != nil {
					return recErr
				}
				break
			}
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg redisPkg.Message, handle Handler) error {
	c.received.Add(1)

	then, err := handle(ctx, msg)
	if err != nil {
		c.malformed.Add(1)
		c.log.WithFields(logrus.Fields{
			"stream":     c.cfg.Stream,
			"message_id": msg.ID,
			"error":      err.Error(),
		}).Warn("Dropping malformed message")
		then = nil
	}

	if err := c.transport.Acknowledge(ctx, c.cfg.Stream, c.cfg.Group, msg.ID); err != nil {
		return err
	}
	if err := c.transport.Delete(ctx, c.cfg.Stream, msg.ID); err != nil {
		return err
	}

	if then != nil {
		then(ctx)
	}
	return nil
}

func (c *Consumer) recover(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	c.transportErrors.Add(1)
	c.log.WithFields(logrus.Fields{
		"stream":   c.cfg.Stream,
		"group":    c.cfg.Group,
		"consumer": c.cfg.Consumer,
		"error":    err.Error(),
		"backoff":  c.cfg.Backoff.String(),
	}).Error("Problem with redis... Waiting for it to return.")

	if resetErr := c.transport.ResetGroupCursor(ctx, c.cfg.Stream, c.cfg.Group, StreamOrigin); resetErr != nil {
		c.log.WithFields(logrus.Fields{
			"stream": c.cfg.Stream,
			"group":  c.cfg.Group,
			"error":  resetErr.Error(),
		}).Warn("Failed to reset group cursor")
	}

	return utils.SleepContext(ctx, c.cfg.Backoff)
}
