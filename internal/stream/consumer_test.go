package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"FramePipeline/internal/entity"
	redisPkg "FramePipeline/pkg/redis"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type readResult struct {
	msgs []redisPkg.Message
	err  error
}

// scriptedTransport replays reads and records every call in order.
type scriptedTransport struct {
	mu     sync.Mutex
	reads  []readResult
	calls  []string
	cancel context.CancelFunc
	ackErr error
}

func (s *scriptedTransport) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *scriptedTransport) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *scriptedTransport) Publish(ctx context.Context, stream string, fields map[string]interface{}) (string, error) {
	s.record("publish " + stream)
	return "1-0", nil
}

func (s *scriptedTransport) ConsumeGroup(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]redisPkg.Message, error) {
	s.mu.Lock()
	if len(s.reads) == 0 {
		s.mu.Unlock()
		s.cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	}
	next := s.reads[0]
	s.reads = s.reads[1:]
	s.mu.Unlock()
	s.record("read")
	return next.msgs, next.err
}

func (s *scriptedTransport) Acknowledge(ctx context.Context, stream, group, id string) error {
	s.record("ack " + id)
	return s.ackErr
}

func (s *scriptedTransport) Delete(ctx context.Context, stream, id string) error {
	s.record("del " + id)
	return nil
}

func (s *scriptedTransport) ResetGroupCursor(ctx context.Context, stream, group, position string) error {
	s.record(fmt.Sprintf("reset %s %s", group, position))
	return nil
}

func (s *scriptedTransport) EnsureGroup(ctx context.Context, stream, group, position string) error {
	return nil
}

func (s *scriptedTransport) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	return nil
}

func (s *scriptedTransport) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return true, nil
}

func (s *scriptedTransport) Exists(ctx context.Context, key string) (bool, error) {
	return false, nil
}

func (s *scriptedTransport) Ping(ctx context.Context) error { return nil }
func (s *scriptedTransport) Close() error                   { return nil }

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func frameMessage(id string) redisPkg.Message {
	fields := EncodeFrame(entity.FrameRecord{
		Camera: "front-door",
		Pixels: []byte{1, 2, 3, 4, 5, 6},
		Shape:  entity.Shape{Height: 1, Width: 2, Channels: 3},
	})
	return redisPkg.Message{ID: id, Fields: map[string]string{
		"camera":         fields["camera"].(string),
		"original":       string(fields["original"].([]byte)),
		"original_shape": fields["original_shape"].(string),
	}}
}

func runConsumer(t *testing.T, transport *scriptedTransport, handle Handler) *Consumer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	transport.cancel = cancel

	c := NewConsumer(transport, ConsumerConfig{
		Stream:   IngestStream,
		Group:    IngestGroup,
		Consumer: "pod0",
		Block:    time.Millisecond,
		Backoff:  time.Millisecond,
	}, quietLogger())

	err := c.Run(ctx, handle)
	require.ErrorIs(t, err, context.Canceled)
	return c
}

func TestConsumerAbsorbsBeforeAckAndContinuesAfterDelete(t *testing.T) {
	transport := &scriptedTransport{reads: []readResult{{msgs: []redisPkg.Message{frameMessage("1-0")}}}}

	c := runConsumer(t, transport, func(ctx context.Context, msg redisPkg.Message) (func(context.Context), error) {
		rec, err := DecodeFrame(msg)
		if err != nil {
			return nil, err
		}
		transport.record("absorb " + rec.Camera)
		return func(context.Context) { transport.record("process " + rec.Camera) }, nil
	})

	assert.Equal(t, []string{
		"read",
		"absorb front-door",
		"ack 1-0",
		"del 1-0",
		"process front-door",
	}, transport.Calls())
	assert.Equal(t, uint64(1), c.Stats().Received)
}

func TestConsumerDropsMalformedMessage(t *testing.T) {
	bad := redisPkg.Message{ID: "2-0", Fields: map[string]string{
		"camera":         "garage",
		"original":       "abc",
		"original_shape": "(480, 640, 3)",
	}}
	transport := &scriptedTransport{reads: []readResult{
		{msgs: []redisPkg.Message{bad}},
		{msgs: []redisPkg.Message{frameMessage("3-0")}},
	}}

	var decoded []string
	c := runConsumer(t, transport, func(ctx context.Context, msg redisPkg.Message) (func(context.Context), error) {
		rec, err := DecodeFrame(msg)
		if err != nil {
			return nil, err
		}
		decoded = append(decoded, rec.Camera)
		return nil, nil
	})

	assert.Equal(t, []string{"front-door"}, decoded)
	assert.Contains(t, transport.Calls(), "ack 2-0")
	assert.Contains(t, transport.Calls(), "del 2-0")
	assert.Equal(t, uint64(1), c.Stats().Malformed)
}

func TestConsumerResetsCursorOnTransportError(t *testing.T) {
	transport := &scriptedTransport{reads: []readResult{
		{err: fmt.Errorf("%w: NOGROUP", redisPkg.ErrTransport)},
		{msgs: []redisPkg.Message{frameMessage("4-0")}},
	}}

	c := runConsumer(t, transport, func(ctx context.Context, msg redisPkg.Message) (func(context.Context), error) {
		return nil, nil
	})

	assert.Equal(t, []string{
		"read",
		"reset detector 0",
		"read",
		"ack 4-0",
		"del 4-0",
	}, transport.Calls())
	assert.Equal(t, uint64(1), c.Stats().TransportErrors)
}

func TestConsumerSkipsContinuationWhenAckFails(t *testing.T) {
	transport := &scriptedTransport{
		reads:  []readResult{{msgs: []redisPkg.Message{frameMessage("5-0")}}},
		ackErr: errors.New("connection reset"),
	}

	processed := false
	runConsumer(t, transport, func(ctx context.Context, msg redisPkg.Message) (func(context.Context), error) {
		return func(context.Context) { processed = true }, nil
	})

	assert.False(t, processed)
	assert.NotContains(t, transport.Calls(), "del 5-0")
	assert.Contains(t, transport.Calls(), "reset detector 0")
}
