package captureService

import (
	"context"
	"sync/atomic"
	"time"

	"FramePipeline/internal/api/capture"
	"FramePipeline/internal/entity"
	"FramePipeline/internal/liveness"
	"FramePipeline/pkg/redis"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type ICaptureService interface {
	Run(ctx context.Context) error
	Stats() capture.Stats
	DetectorStatus(ctx context.Context) capture.DetectorStatus
}

// VideoSource yields frames in row-major RGB order. ok is false while the
// source has nothing to give; it is polled again later.
type VideoSource interface {
	ReadFrame() (pixels []byte, shape entity.Shape, ok bool)
}

type Config struct {
	Camera string
	// TargetRate is the maximum number of frames per second offered to the
	// detector.
	TargetRate float64
	// StreamPoll is the wait between reads while the source is inactive.
	StreamPoll time.Duration
}

type Option func(*captureService)

// WithClock replaces the wall clock used by the rate limiter.
func WithClock(now func() time.Time) Option {
	return func(s *captureService) {
		s.now = now
	}
}

type captureService struct {
	log       *logrus.Logger
	transport redis.IRedis
	monitor   *liveness.Monitor
	source    VideoSource
	limiter   *rate.Limiter
	now       func() time.Time
	cfg       Config

	state         atomic.Value
	paused        atomic.Bool
	read          atomic.Uint64
	rateLimited   atomic.Uint64
	published     atomic.Uint64
	publishFailed atomic.Uint64
	offlineDrops  atomic.Uint64
}

func NewCaptureService(
	log *logrus.Logger,
	transport redis.IRedis,
	monitor *liveness.Monitor,
	source VideoSource,
	cfg Config,
	opts ...Option,
) ICaptureService {
	s := &captureService{
		log:       log,
		transport: transport,
		monitor:   monitor,
		source:    source,
		limiter:   rate.NewLimiter(rate.Limit(cfg.TargetRate), 1),
		now:       time.Now,
		cfg:       cfg,
	}
	s.state.Store(capture.StreamInactive)

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *captureService) Stats() capture.Stats {
	return capture.Stats{
		Camera:        s.cfg.Camera,
		State:         s.state.Load().(capture.StreamState),
		Paused:        s.paused.Load(),
		Read:          s.read.Load(),
		RateLimited:   s.rateLimited.Load(),
		Published:     s.published.Load(),
		PublishFailed: s.publishFailed.Load(),
		OfflineDrops:  s.offlineDrops.Load(),
	}
}

func (s *captureService) DetectorStatus(ctx context.Context) capture.DetectorStatus {
	return capture.DetectorStatus{
		Alive: s.monitor.Alive(ctx),
		Key:   liveness.DetectorKey,
	}
}
