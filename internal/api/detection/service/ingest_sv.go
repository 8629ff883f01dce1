package detectionService

import (
	"context"
	"fmt"

	"FramePipeline/internal/entity"
	"FramePipeline/internal/stream"
	"FramePipeline/pkg/redis"
	"github.com/sirupsen/logrus"
)

// ingest decodes one ingest entry and hands it to the inference pool. It
// never waits for room: a full inbound queue drops the frame, and the entry
// is acknowledged either way.
func (s *detectionService) ingest(_ context.Context, msg redis.Message) (func(context.Context), error) {
	record, err := stream.DecodeFrame(msg)
	if err != nil {
		return nil, err
	}

	img, err := entity.PixelsToImage(record.Pixels, record.Shape)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", stream.ErrMalformedRecord, err)
	}

	frame := entity.DecodedFrame{
		Camera: record.Camera,
		Shape:  record.Shape,
		Image:  img,
	}

	if !s.inbound.Offer(frame) {
		s.log.WithFields(logrus.Fields{
			"camera":     record.Camera,
			"message_id": msg.ID,
			"queue":      s.inbound.Name(),
		}).Debug("Inbound queue full, dropping frame")
	}

	return nil, nil
}
