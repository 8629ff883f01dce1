package detectionService

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"FramePipeline/internal/api/detection"
	"FramePipeline/internal/entity"
	"FramePipeline/internal/liveness"
	"FramePipeline/internal/queue"
	"FramePipeline/internal/stream"
	"FramePipeline/pkg/engine"
	"FramePipeline/pkg/redis"
	"github.com/sirupsen/logrus"
)

type IDetectionService interface {
	Run(ctx context.Context) error
	Stats() detection.Stats
}

// EngineFactory builds one engine instance. Each inference worker calls it
// once and never shares the result.
type EngineFactory func() (engine.IEngine, error)

type Config struct {
	ClientName string

	StreamThreads int
	UpdateThreads int
	DrawWorkers   int

	InboundQueueSize int
	DrawQueueSize    int

	Threshold     float64
	LowThreshold  float64
	HighThreshold float64
	TopK          int

	Block   time.Duration
	Backoff time.Duration

	HeartbeatTTL      time.Duration
	HeartbeatInterval time.Duration
}

type detectionService struct {
	log       *logrus.Logger
	transport redis.IRedis
	newEngine EngineFactory
	heartbeat *liveness.Heartbeat
	cfg       Config

	inbound   *queue.Bounded[entity.DecodedFrame]
	draw      *queue.Bounded[entity.DetectionResult]
	consumers []*stream.Consumer

	inferred      atomic.Uint64
	detected      atomic.Uint64
	engineErrors  atomic.Uint64
	published     atomic.Uint64
	publishFailed atomic.Uint64
}

func NewDetectionService(
	log *logrus.Logger,
	transport redis.IRedis,
	newEngine EngineFactory,
	cfg Config,
) IDetectionService {
	s := &detectionService{
		log:       log,
		transport: transport,
		newEngine: newEngine,
		heartbeat: liveness.NewHeartbeat(transport, liveness.DetectorKey, cfg.HeartbeatTTL, cfg.HeartbeatInterval, log),
		cfg:       cfg,
		inbound:   queue.NewBounded[entity.DecodedFrame]("inbound", cfg.InboundQueueSize),
		draw:      queue.NewBounded[entity.DetectionResult]("draw", cfg.DrawQueueSize),
	}

	for i := 0; i < cfg.StreamThreads; i++ {
		s.consumers = append(s.consumers, stream.NewConsumer(transport, stream.ConsumerConfig{
			Stream:   stream.IngestStream,
			Group:    stream.IngestGroup,
			Consumer: fmt.Sprintf("%s%d", cfg.ClientName, i),
			Block:    cfg.Block,
			Backoff:  cfg.Backoff,
		}, log))
	}

	return s
}

func (s *detectionService) Stats() detection.Stats {
	consumers := make([]stream.ConsumerStats, 0, len(s.consumers))
	for _, c := range s.consumers {
		consumers = append(consumers, c.Stats())
	}

	return detection.Stats{
		ClientName:    s.cfg.ClientName,
		Consumers:     consumers,
		Inbound:       s.inbound.Stats(),
		Draw:          s.draw.Stats(),
		Inferred:      s.inferred.Load(),
		Detected:      s.detected.Load(),
		EngineErrors:  s.engineErrors.Load(),
		Published:     s.published.Load(),
		PublishFailed: s.publishFailed.Load(),
	}
}
