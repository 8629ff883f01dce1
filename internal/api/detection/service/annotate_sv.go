package detectionService

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"FramePipeline/internal/api/detection"
	"FramePipeline/internal/entity"
	"FramePipeline/internal/queue"
	"FramePipeline/internal/stream"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var tierColors = map[entity.Tier]color.RGBA{
	entity.TierLow:    {R: 255, A: 255},
	entity.TierMedium: {R: 255, G: 255, A: 255},
	entity.TierHigh:   {G: 255, A: 255},
}

// TierFor buckets a score: below low is low, from low up to but excluding
// high is medium, high and above is high.
func TierFor(score, low, high float64) entity.Tier {
	switch {
	case score < low:
		return entity.TierLow
	case score < high:
		return entity.TierMedium
	default:
		return entity.TierHigh
	}
}

// Annotate outlines every detection on img in its tier colour and writes the
// score next to it.
func Annotate(img *image.RGBA, detections []entity.Detection, low, high float64) {
	bounds := img.Bounds()
	face := basicfont.Face7x13

	for _, d := range detections {
		rect := d.Box.Rect().Canon().Intersect(bounds)
		if rect.Empty() {
			continue
		}
		c := tierColors[TierFor(d.Score, low, high)]
		outline(img, rect, c)

		baseline := rect.Min.Y - 2
		if baseline-face.Ascent < bounds.Min.Y {
			baseline = rect.Min.Y + face.Ascent + 1
		}
		drawer := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(c),
			Face: face,
			Dot:  fixed.P(rect.Min.X+1, baseline),
		}
		drawer.DrawString(fmt.Sprintf("%.0f%%", d.Score*100))
	}
}

func outline(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for x := r.Min.X; x < r.Max.X; x++ {
		img.SetRGBA(x, r.Min.Y, c)
		img.SetRGBA(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.SetRGBA(r.Min.X, y, c)
		img.SetRGBA(r.Max.X-1, y, c)
	}
}

func (s *detectionService) newAnnotateWorker(int) (queue.Worker[entity.DetectionResult], error) {
	return s.annotate, nil
}

func (s *detectionService) annotate(ctx context.Context, result entity.DetectionResult) {
	Annotate(result.Image, result.Detections, s.cfg.LowThreshold, s.cfg.HighThreshold)

	for _, d := range result.Detections {
		s.log.WithFields(logrus.Fields{
			"camera": result.Camera,
			"score":  d.Score,
			"tier":   TierFor(d.Score, s.cfg.LowThreshold, s.cfg.HighThreshold),
		}).Debug("Box drawn")
	}

	record := entity.NotificationRecord{
		Camera: result.Camera,
		Pixels: entity.ImageToPixels(result.Image, result.Shape.Channels),
		Shape:  result.Shape,
	}

	if err := s.publish(ctx, record); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.publishFailed.Add(1)
		s.log.WithFields(logrus.Fields{
			"camera": result.Camera,
			"stream": stream.NotificationStream,
			"error":  err.Error(),
		}).Error("Failed to publish notification")
		return
	}

	s.published.Add(1)
	s.log.WithField("camera", result.Camera).Info("Passed to messenger")
}

func (s *detectionService) publish(ctx context.Context, record entity.NotificationRecord) error {
	if _, err := s.transport.Publish(ctx, stream.NotificationStream, stream.EncodeNotification(record)); err != nil {
		return fmt.Errorf("%w: %v", detection.ErrPublishFailed, err)
	}
	return nil
}
