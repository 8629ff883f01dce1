package stream

import (
	"testing"

	"FramePipeline/internal/entity"
	redisPkg "FramePipeline/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationWireShape(t *testing.T) {
	rec := entity.NotificationRecord{
		Camera: "garage",
		Pixels: []byte{9, 8, 7, 6},
		Shape:  entity.Shape{Height: 2, Width: 2, Channels: 1},
	}

	fields := EncodeNotification(rec)
	assert.Equal(t, "(2, 2, 1)", fields["shape"])
	assert.Equal(t, "garage", fields["camera"])

	msg := redisPkg.Message{ID: "1-0", Fields: map[string]string{
		"img":    string(fields["img"].([]byte)),
		"shape":  fields["shape"].(string),
		"camera": fields["camera"].(string),
	}}
	got, err := DecodeNotification(msg)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestDecodeFrameMissingCamera(t *testing.T) {
	_, err := DecodeFrame(redisPkg.Message{ID: "1-0", Fields: map[string]string{
		"original":       "abc",
		"original_shape": "(1, 1, 3)",
	}})
	assert.ErrorIs(t, err, ErrMalformedRecord)
}
