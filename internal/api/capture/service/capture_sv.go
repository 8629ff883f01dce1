package captureService

import (
	"context"
	"fmt"

	"FramePipeline/internal/api/capture"
	"FramePipeline/internal/entity"
	"FramePipeline/internal/stream"
	"FramePipeline/pkg/utils"
	"github.com/sirupsen/logrus"
)

// Run reads the source until ctx is cancelled. Frames beyond the target rate
// are discarded at the source. While the detector heartbeat is missing the
// loop blocks and nothing is published.
func (s *captureService) Run(ctx context.Context) error {
	s.log.WithFields(logrus.Fields{
		"camera": s.cfg.Camera,
		"rate":   s.cfg.TargetRate,
	}).Info("Starting capture")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		pixels, shape, ok := s.source.ReadFrame()
		if !ok {
			if err := s.waitForStream(ctx); err != nil {
				return err
			}
			continue
		}
		s.markActive()
		s.read.Add(1)

		if !s.limiter.AllowN(s.now(), 1) {
			s.rateLimited.Add(1)
			continue
		}

		if !s.monitor.Alive(ctx) {
			if err := s.waitForDetector(ctx); err != nil {
				return err
			}
			continue
		}

		record := entity.FrameRecord{
			Camera: s.cfg.Camera,
			Pixels: pixels,
			Shape:  shape,
		}
		if err := s.publish(ctx, record); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.publishFailed.Add(1)
			s.log.WithFields(logrus.Fields{
				"camera": s.cfg.Camera,
				"stream": stream.IngestStream,
				"error":  err.Error(),
			}).Error("Failed to publish frame")
		}
	}
}

func (s *captureService) publish(ctx context.Context, record entity.FrameRecord) error {
	if _, err := s.transport.Publish(ctx, stream.IngestStream, stream.EncodeFrame(record)); err != nil {
		return fmt.Errorf("%w: %v", capture.ErrPublishFailed, err)
	}
	s.published.Add(1)
	return nil
}

// waitForDetector drops the frame in hand and blocks until the heartbeat is
// back.
func (s *captureService) waitForDetector(ctx context.Context) error {
	s.offlineDrops.Add(1)
	s.paused.Store(true)
	defer s.paused.Store(false)

	s.log.WithField("camera", s.cfg.Camera).Warn("Primary detector is offline. Waiting...")
	if err := s.monitor.WaitAlive(ctx, 0); err != nil {
		return err
	}
	s.log.WithField("camera", s.cfg.Camera).Info("Primary detector is back online, resuming...")
	return nil
}

func (s *captureService) waitForStream(ctx context.Context) error {
	if s.state.Load().(capture.StreamState) == capture.StreamActive {
		s.state.Store(capture.StreamInactive)
		s.log.WithField("camera", s.cfg.Camera).Warn("Stream went offline")
	}
	s.log.WithField("camera", s.cfg.Camera).Debug("Waiting for stream to come online...")
	return utils.SleepContext(ctx, s.cfg.StreamPoll)
}

func (s *captureService) markActive() {
	if s.state.Load().(capture.StreamState) != capture.StreamActive {
		s.state.Store(capture.StreamActive)
		s.log.WithField("camera", s.cfg.Camera).Info("Stream is online")
	}
}
