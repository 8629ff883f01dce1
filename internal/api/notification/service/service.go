package notificationService

import (
	"context"
	"sync/atomic"
	"time"

	"FramePipeline/internal/api/notification"
	"FramePipeline/internal/dedup"
	"FramePipeline/internal/stream"
	"FramePipeline/pkg/redis"
	"FramePipeline/pkg/s3"
	"FramePipeline/pkg/slack"
	"FramePipeline/pkg/utils"
	"github.com/sirupsen/logrus"
)

type INotificationService interface {
	Run(ctx context.Context) error
	Stats() notification.Stats
}

type Config struct {
	ClientName string
	Channel    string
	Mode       notification.SuppressMode

	Block   time.Duration
	Backoff time.Duration
}

type notificationService struct {
	log        *logrus.Logger
	transport  redis.IRedis
	suppressor *dedup.Suppressor
	alerter    slack.ISlack
	archive    s3.ItfS3
	utils      utils.IUtils
	consumer   *stream.Consumer
	cfg        Config
	now        func() time.Time

	alerted        atomic.Uint64
	suppressed     atomic.Uint64
	deliveryFailed atomic.Uint64
	suppressErrors atomic.Uint64
	archived       atomic.Uint64
	archiveFailed  atomic.Uint64
}

// NewNotificationService wires the notifier. archive may be nil, in which case
// snapshots are not kept.
func NewNotificationService(
	log *logrus.Logger,
	transport redis.IRedis,
	suppressor *dedup.Suppressor,
	alerter slack.ISlack,
	archive s3.ItfS3,
	utils utils.IUtils,
	cfg Config,
) INotificationService {
	if cfg.Mode == "" {
		cfg.Mode = notification.SuppressAttempt
	}

	return &notificationService{
		log:        log,
		transport:  transport,
		suppressor: suppressor,
		alerter:    alerter,
		archive:    archive,
		utils:      utils,
		cfg:        cfg,
		now:        time.Now,
		consumer: stream.NewConsumer(transport, stream.ConsumerConfig{
			Stream:   stream.NotificationStream,
			Group:    stream.NotificationGroup,
			Consumer: cfg.ClientName,
			Block:    cfg.Block,
			Backoff:  cfg.Backoff,
		}, log),
	}
}

func (s *notificationService) Stats() notification.Stats {
	return notification.Stats{
		ClientName:      s.cfg.ClientName,
		Mode:            s.cfg.Mode,
		Consumer:        s.consumer.Stats(),
		Alerted:         s.alerted.Load(),
		Suppressed:      s.suppressed.Load(),
		DeliveryFailed:  s.deliveryFailed.Load(),
		SuppressErrors:  s.suppressErrors.Load(),
		Archived:        s.archived.Load(),
		ArchiveFailed:   s.archiveFailed.Load(),
		CooldownSeconds: s.suppressor.Window().Seconds(),
	}
}
