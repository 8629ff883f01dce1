package notificationService

import (
	"context"
	"fmt"

	"FramePipeline/internal/api/notification"
	"FramePipeline/internal/entity"
	"FramePipeline/internal/stream"
	"FramePipeline/pkg/redis"
	"FramePipeline/pkg/slack"
	"github.com/sirupsen/logrus"
)

func (s *notificationService) Run(ctx context.Context) error {
	if err := s.transport.EnsureGroup(ctx, stream.NotificationStream, stream.NotificationGroup, stream.StreamOrigin); err != nil {
		s.log.WithFields(logrus.Fields{
			"stream": stream.NotificationStream,
			"group":  stream.NotificationGroup,
			"error":  err.Error(),
		}).Warn("Failed to create consumer group")
	}

	err := s.consumer.Run(ctx, s.receive)

	stats := s.Stats()
	s.log.WithFields(logrus.Fields{
		"received":        stats.Consumer.Received,
		"alerted":         stats.Alerted,
		"suppressed":      stats.Suppressed,
		"delivery_failed": stats.DeliveryFailed,
	}).Info("Notification stopped")

	return err
}

// receive decodes the entry. The alert itself runs only after the entry has
// been acknowledged and deleted.
func (s *notificationService) receive(_ context.Context, msg redis.Message) (func(context.Context), error) {
	record, err := stream.DecodeNotification(msg)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"camera":     record.Camera,
		"message_id": msg.ID,
	}).Info("Person detected")

	return func(ctx context.Context) {
		s.notify(ctx, record)
	}, nil
}

func (s *notificationService) notify(ctx context.Context, record entity.NotificationRecord) {
	if s.cfg.Mode == notification.SuppressBefore {
		won, err := s.suppressor.Claim(ctx, record.Camera)
		if err != nil {
			s.suppressFailed(ctx, record.Camera, err, "Failed to claim suppression window, dropping alert")
			return
		}
		if !won {
			s.skip(record.Camera)
			return
		}
		_ = s.deliver(ctx, record)
		return
	}

	active, err := s.suppressor.Suppressed(ctx, record.Camera)
	if err != nil {
		s.suppressFailed(ctx, record.Camera, err, "Failed to read suppression window, dropping alert")
		return
	}
	if active {
		s.skip(record.Camera)
		return
	}

	if err := s.deliver(ctx, record); err != nil && s.cfg.Mode == notification.SuppressSuccess {
		return
	}

	if err := s.suppressor.Suppress(ctx, record.Camera); err != nil {
		s.suppressFailed(ctx, record.Camera, err, "Failed to open suppression window")
	}
}

func (s *notificationService) deliver(ctx context.Context, record entity.NotificationRecord) error {
	img, err := entity.PixelsToImage(record.Pixels, record.Shape)
	if err != nil {
		return s.deliveryError(record.Camera, fmt.Errorf("%w: %v", notification.ErrSnapshotEncode, err))
	}

	snapshot, err := s.utils.EncodeJPEG(img)
	if err != nil {
		return s.deliveryError(record.Camera, fmt.Errorf("%w: %v", notification.ErrSnapshotEncode, err))
	}

	if s.archive != nil {
		s.archiveSnapshot(ctx, record.Camera, snapshot)
	}

	s.log.WithField("camera", record.Camera).Info("Sending alert")

	err = s.alerter.SendAlert(ctx, slack.Alert{
		Image:    snapshot,
		FileName: fmt.Sprintf("%s_detected.jpeg", record.Camera),
		Title:    fmt.Sprintf("%s Detected Image", record.Camera),
		Channel:  s.cfg.Channel,
	})
	if err != nil {
		return s.deliveryError(record.Camera, fmt.Errorf("%w: %v", notification.ErrAlertDelivery, err))
	}

	s.alerted.Add(1)
	return nil
}

func (s *notificationService) archiveSnapshot(ctx context.Context, camera string, snapshot []byte) {
	id, err := s.utils.NewULIDFromTimestamp(s.now())
	if err != nil {
		s.archiveFailed.Add(1)
		s.log.WithFields(logrus.Fields{
			"camera": camera,
			"error":  err.Error(),
		}).Warn("Failed to generate snapshot key")
		return
	}

	key := fmt.Sprintf("%s/%s.jpeg", camera, id)
	location, err := s.archive.UploadSnapshot(ctx, key, snapshot)
	if err != nil {
		s.archiveFailed.Add(1)
		s.log.WithFields(logrus.Fields{
			"camera": camera,
			"key":    key,
			"error":  err.Error(),
		}).Warn("Failed to archive snapshot")
		return
	}

	s.archived.Add(1)
	s.log.WithFields(logrus.Fields{
		"camera":   camera,
		"location": location,
	}).Debug("Snapshot archived")
}

func (s *notificationService) deliveryError(camera string, err error) error {
	s.deliveryFailed.Add(1)
	s.log.WithFields(logrus.Fields{
		"camera": camera,
		"error":  err.Error(),
	}).Error("Failed to deliver alert")
	return err
}

func (s *notificationService) skip(camera string) {
	s.suppressed.Add(1)
	s.log.WithField("camera", camera).Debug("Alert suppressed, camera is in cooldown")
}

func (s *notificationService) suppressFailed(ctx context.Context, camera string, err error, msg string) {
	if ctx.Err() != nil {
		return
	}
	s.suppressErrors.Add(1)
	s.log.WithFields(logrus.Fields{
		"camera": camera,
		"error":  err.Error(),
	}).Error(msg)
}
