package dedup

import (
	"context"
	"io"
	"testing"
	"time"

	redisPkg "FramePipeline/pkg/redis"
	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSuppressor(t *testing.T, window time.Duration) (*Suppressor, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	log := logrus.New()
	log.SetOutput(io.Discard)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSuppressor(redisPkg.NewFromClient(client, log), window), mr
}

func TestSuppressionWindow(t *testing.T) {
	ctx := context.Background()
	s, mr := newSuppressor(t, 10*time.Second)

	suppressed, err := s.Suppressed(ctx, "garage")
	require.NoError(t, err)
	assert.False(t, suppressed)

	require.NoError(t, s.Suppress(ctx, "garage"))
	assert.Equal(t, 10*time.Second, mr.TTL("garage_message"))

	mr.FastForward(time.Second)
	suppressed, err = s.Suppressed(ctx, "garage")
	require.NoError(t, err)
	assert.True(t, suppressed)

	other, err := s.Suppressed(ctx, "front-door")
	require.NoError(t, err)
	assert.False(t, other)

	mr.FastForward(9 * time.Second)
	suppressed, err = s.Suppressed(ctx, "garage")
	require.NoError(t, err)
	assert.False(t, suppressed)
}

func TestClaimIsExclusive(t *testing.T) {
	ctx := context.Background()
	s, _ := newSuppressor(t, 10*time.Second)

	won, err := s.Claim(ctx, "garage")
	require.NoError(t, err)
	assert.True(t, won)

	won, err = s.Claim(ctx, "garage")
	require.NoError(t, err)
	assert.False(t, won)
}
