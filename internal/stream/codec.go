package stream

import (
	"errors"
	"fmt"

	"FramePipeline/internal/entity"
	redisPkg "FramePipeline/pkg/redis"
)

const (
	IngestStream = "primary_detection"
	IngestGroup  = "detector"

	NotificationStream = "messages"
	NotificationGroup  = "messengers"

	// StreamOrigin is the cursor position that makes a group re-read every
	// entry still present in the stream.
	StreamOrigin = "0"
)

const (
	fieldCamera        = "camera"
	fieldOriginal      = "original"
	fieldOriginalShape = "original_shape"
	fieldImage         = "img"
	fieldShape         = "shape"
)

var ErrMalformedRecord = errors.New("malformed stream record")

func EncodeFrame(rec entity.FrameRecord) map[string]interface{} {
	return map[string]interface{}{
		fieldCamera:        rec.Camera,
		fieldOriginal:      rec.Pixels,
		fieldOriginalShape: rec.Shape.String(),
	}
}

func DecodeFrame(msg redisPkg.Message) (entity.FrameRecord, error) {
	camera, pixels, shape, err := decode(msg, fieldOriginal, fieldOriginalShape)
	if err != nil {
		return entity.FrameRecord{}, err
	}
	return entity.FrameRecord{Camera: camera, Pixels: pixels, Shape: shape}, nil
}

func EncodeNotification(rec entity.NotificationRecord) map[string]interface{} {
	return map[string]interface{}{
		fieldImage:  rec.Pixels,
		fieldShape:  rec.Shape.String(),
		fieldCamera: rec.Camera,
	}
}

func DecodeNotification(msg redisPkg.Message) (entity.NotificationRecord, error) {
	camera, pixels, shape, err := decode(msg, fieldImage, fieldShape)
	if err != nil {
		return entity.NotificationRecord{}, err
	}
	return entity.NotificationRecord{Camera: camera, Pixels: pixels, Shape: shape}, nil
}

func decode(msg redisPkg.Message, pixelsField, shapeField string) (string, []byte, entity.Shape, error) {
	camera, ok := msg.Fields[fieldCamera]
	if !ok || camera == "" {
		return "", nil, entity.Shape{}, fmt.Errorf("%w: %s: missing %s", ErrMalformedRecord, msg.ID, fieldCamera)
	}

	pixels, ok := msg.Fields[pixelsField]
	if !ok {
		return "", nil, entity.Shape{}, fmt.Errorf("%w: %s: missing %s", ErrMalformedRecord, msg.ID, pixelsField)
	}

	shape, err := entity.ParseShape(msg.Fields[shapeField])
	if err != nil {
		return "", nil, entity.Shape{}, fmt.Errorf("%w: %s: %v", ErrMalformedRecord, msg.ID, err)
	}

	if len(pixels) != shape.Size() {
		return "", nil, entity.Shape{}, fmt.Errorf("%w: %s: %d bytes for %s: %v",
			ErrMalformedRecord, msg.ID, len(pixels), shape, entity.ErrShapeMismatch)
	}

	return camera, []byte(pixels), shape, nil
}
