package detectionService

import (
	"context"

	"FramePipeline/internal/queue"
	"FramePipeline/internal/stream"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Run starts the heartbeat, the stream consumers and both worker pools, and
// blocks until ctx is cancelled or a pool cannot start any worker.
func (s *detectionService) Run(ctx context.Context) error {
	s.bootstrap(ctx)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.heartbeat.Run(ctx)
	})

	for _, c := range s.consumers {
		c := c
		g.Go(func() error {
			return c.Run(ctx, s.ingest)
		})
	}

	g.Go(func() error {
		return queue.RunPool(ctx, s.inbound, s.cfg.UpdateThreads, s.newInferenceWorker, s.log)
	})
	g.Go(func() error {
		return queue.RunPool(ctx, s.draw, s.cfg.DrawWorkers, s.newAnnotateWorker, s.log)
	})

	err := g.Wait()

	stats := s.Stats()
	s.log.WithFields(logrus.Fields{
		"inferred":       stats.Inferred,
		"detected":       stats.Detected,
		"published":      stats.Published,
		"inbound_drops":  stats.Inbound.Dropped,
		"draw_drops":     stats.Draw.Dropped,
		"engine_errors":  stats.EngineErrors,
		"publish_failed": stats.PublishFailed,
	}).Info("Detection stopped")

	return err
}

// bootstrap makes sure the ingest group exists and rewinds it, so entries
// delivered to a consumer that died before acknowledging are read again.
// Failures are left to the consumers' own recovery.
func (s *detectionService) bootstrap(ctx context.Context) {
	if err := s.transport.EnsureGroup(ctx, stream.IngestStream, stream.IngestGroup, stream.StreamOrigin); err != nil {
		s.log.WithFields(logrus.Fields{
			"stream": stream.IngestStream,
			"group":  stream.IngestGroup,
			"error":  err.Error(),
		}).Warn("Failed to create consumer group")
		return
	}

	if err := s.transport.ResetGroupCursor(ctx, stream.IngestStream, stream.IngestGroup, stream.StreamOrigin); err != nil {
		s.log.WithFields(logrus.Fields{
			"stream": stream.IngestStream,
			"group":  stream.IngestGroup,
			"error":  err.Error(),
		}).Warn("Failed to reset group cursor")
	}
}
