package detectionService

import (
	"context"
	"fmt"

	"FramePipeline/internal/api/detection"
	"FramePipeline/internal/entity"
	"FramePipeline/internal/queue"
	"FramePipeline/pkg/engine"
	"github.com/sirupsen/logrus"
)

func (s *detectionService) newInferenceWorker(slot int) (queue.Worker[entity.DecodedFrame], error) {
	eng, err := s.newEngine()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", detection.ErrEngineUnavailable, err)
	}

	opts := engine.Options{
		Threshold:       s.cfg.Threshold,
		KeepAspectRatio: true,
		TopK:            s.cfg.TopK,
	}

	s.log.WithField("slot", slot).Debug("Inference worker ready")

	return func(ctx context.Context, frame entity.DecodedFrame) {
		s.infer(ctx, eng, opts, frame)
	}, nil
}

func (s *detectionService) infer(ctx context.Context, eng engine.IEngine, opts engine.Options, frame entity.DecodedFrame) {
	found, err := eng.Detect(ctx, frame.Image, opts)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.engineErrors.Add(1)
		s.log.WithFields(logrus.Fields{
			"camera": frame.Camera,
			"error":  err.Error(),
		}).Error("Detection failed")
		return
	}
	s.inferred.Add(1)

	detections := make([]entity.Detection, 0, len(found))
	for _, d := range found {
		if d.Score >= opts.Threshold {
			detections = append(detections, d)
		}
	}
	if len(detections) == 0 {
		return
	}

	s.detected.Add(1)
	s.log.WithFields(logrus.Fields{
		"camera":     frame.Camera,
		"detections": len(detections),
	}).Info("Person detected")

	result := entity.DetectionResult{
		Camera:     frame.Camera,
		Shape:      frame.Shape,
		Image:      frame.Image,
		Detections: detections,
	}
	if !s.draw.Offer(result) {
		s.log.WithFields(logrus.Fields{
			"camera": frame.Camera,
			"queue":  s.draw.Name(),
		}).Debug("Draw queue full, dropping detection")
	}
}
