package config

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	redisPkg "FramePipeline/pkg/redis"
	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestLoadDetectionConfigDefaults(t *testing.T) {
	t.Setenv("ENGINE_URL", "http://engine:8080")
	t.Setenv("POD_NAME", "detector-a")

	cfg, err := LoadDetectionConfig(NewValidator())
	require.NoError(t, err)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, "detector-a", cfg.ClientName)
	assert.Equal(t, 5, cfg.DrawWorkers)
	assert.Equal(t, 50, cfg.InboundQueueSize)
	assert.Equal(t, 50, cfg.DrawQueueSize)
	assert.Equal(t, 3*time.Second, cfg.HeartbeatTTL)
	assert.Equal(t, time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, 30*time.Second, cfg.TransportBackoff)
}

func TestLoadDetectionConfigRejectsInvertedTiers(t *testing.T) {
	t.Setenv("ENGINE_URL", "http://engine:8080")
	t.Setenv("LOW_CONFIDENCE_SCORE", "0.9")
	t.Setenv("HIGH_CONFIDENCE_SCORE", "0.4")

	_, err := LoadDetectionConfig(NewValidator())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LowConfidence")
}

func TestLoadDetectionConfigRejectsHeartbeatTTLBelowInterval(t *testing.T) {
	t.Setenv("ENGINE_URL", "http://engine:8080")
	t.Setenv("HEARTBEAT_TTL_SECONDS", "1")
	t.Setenv("HEARTBEAT_INTERVAL_SECONDS", "2")

	_, err := LoadDetectionConfig(NewValidator())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HeartbeatTTL")
}

func TestLoadCaptureConfig(t *testing.T) {
	t.Setenv("CAMERA_IP", "rtsp://10.0.0.5/stream")
	t.Setenv("CAMERA_NAME", "garage")
	t.Setenv("CAPTURE_FPS", "15")
	t.Setenv("REDIS_SERVICE_HOST", "redis")
	t.Setenv("REDIS_SERVICE_PORT", "6380")

	cfg, err := LoadCaptureConfig(NewValidator())
	require.NoError(t, err)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr())
	assert.Equal(t, 15.0, cfg.FPS)
	assert.Equal(t, 15*time.Second, cfg.DetectorPoll)
	assert.Equal(t, 3*time.Second, cfg.StreamPoll)
}

func TestLoadCaptureConfigReportsParseErrors(t *testing.T) {
	t.Setenv("CAMERA_IP", "rtsp://10.0.0.5/stream")
	t.Setenv("CAMERA_NAME", "garage")
	t.Setenv("CAPTURE_FPS", "fast")

	_, err := LoadCaptureConfig(NewValidator())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CAPTURE_FPS")
}

func TestLoadNotificationConfig(t *testing.T) {
	t.Setenv("SLACK_TOKEN", "xoxb-test")
	t.Setenv("DELAY", "10")

	cfg, err := LoadNotificationConfig(NewValidator())
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.Delay)
	assert.Equal(t, "#detection", cfg.SlackChannel)
	assert.Equal(t, "attempt", cfg.SuppressMode)
	assert.False(t, cfg.AWS.Enabled())
	assert.NotEmpty(t, cfg.ClientName)
}

func TestLoadNotificationConfigRejectsUnknownMode(t *testing.T) {
	t.Setenv("SLACK_TOKEN", "xoxb-test")
	t.Setenv("DELAY", "10")
	t.Setenv("SUPPRESS_MODE", "never")

	_, err := LoadNotificationConfig(NewValidator())
	require.Error(t, err)
}

func TestLoadNotificationConfigRequiresDelay(t *testing.T) {
	t.Setenv("SLACK_TOKEN", "xoxb-test")

	_, err := LoadNotificationConfig(NewValidator())
	require.Error(t, err)
}

type stageFunc func(ctx context.Context) error

func (f stageFunc) Run(ctx context.Context) error { return f(ctx) }

func newTestServer(t *testing.T, opts ...ServerOption) (*Server, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	log := newTestLogger()
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	transport := redisPkg.NewFromClient(client, log)

	opts = append([]ServerOption{
		WithLogger(log),
		WithRedisServer(transport),
		WithFiber(NewFiber(log, "test")),
		WithMiddleware(),
	}, opts...)

	srv, err := NewServer(opts...)
	require.NoError(t, err)
	return srv, mr
}

func TestHealthCheckFollowsBroker(t *testing.T) {
	srv, mr := newTestServer(t)
	srv.setupRoutes()

	resp, err := srv.engine.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	_ = resp.Body.Close()

	mr.Close()

	resp, err = srv.engine.Test(httptest.NewRequest("GET", "/", nil), 5000)
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestRunReturnsStageError(t *testing.T) {
	srv, _ := newTestServer(t)
	boom := errors.New("boom")

	err := srv.Run(context.Background(), stageFunc(func(ctx context.Context) error {
		return boom
	}))
	assert.ErrorIs(t, err, boom)
}

func TestRunTreatsCancellationAsCleanShutdown(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx, stageFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}))
	}()

	cancel()
	assert.NoError(t, <-done)
}

func TestNewServerRequiresRedis(t *testing.T) {
	_, err := NewServer(WithLogger(newTestLogger()))
	require.Error(t, err)
}
