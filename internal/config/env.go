package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type RedisConfig struct {
	Host     string `validate:"required"`
	Port     string `validate:"required,numeric"`
	Password string
	DB       int `validate:"gte=0"`
}

func (c RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

type CaptureConfig struct {
	Redis RedisConfig

	CameraAddress string  `validate:"required"`
	CameraName    string  `validate:"required"`
	FPS           float64 `validate:"gt=0"`

	DetectorPoll time.Duration `validate:"gt=0"`
	StreamPoll   time.Duration `validate:"gt=0"`

	OpsPort string `validate:"omitempty,numeric"`
}

type DetectionConfig struct {
	Redis      RedisConfig
	ClientName string `validate:"required"`

	EngineURL     string        `validate:"required,url"`
	EngineTimeout time.Duration `validate:"gt=0"`

	Confidence     float64 `validate:"gt=0,lte=1"`
	LowConfidence  float64 `validate:"gte=0,lte=1,ltefield=HighConfidence"`
	HighConfidence float64 `validate:"gte=0,lte=1"`
	TopK           int     `validate:"gt=0"`

	StreamThreads    int `validate:"gt=0"`
	UpdateThreads    int `validate:"gt=0"`
	DrawWorkers      int `validate:"gt=0"`
	InboundQueueSize int `validate:"gt=0"`
	DrawQueueSize    int `validate:"gt=0"`

	StreamBlock      time.Duration `validate:"gt=0"`
	TransportBackoff time.Duration `validate:"gt=0"`

	HeartbeatTTL      time.Duration `validate:"gtfield=HeartbeatInterval"`
	HeartbeatInterval time.Duration `validate:"gt=0"`

	OpsPort string `validate:"omitempty,numeric"`
}

type AWSConfig struct {
	Region          string `validate:"required_with=BucketName"`
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
}

// Enabled reports whether snapshots should be archived at all.
func (c AWSConfig) Enabled() bool {
	return c.BucketName != ""
}

type NotificationConfig struct {
	Redis      RedisConfig
	ClientName string `validate:"required"`

	SlackToken   string        `validate:"required"`
	SlackChannel string        `validate:"required"`
	Delay        time.Duration `validate:"gt=0"`
	SuppressMode string        `validate:"oneof=before attempt success"`

	StreamBlock      time.Duration `validate:"gt=0"`
	TransportBackoff time.Duration `validate:"gt=0"`

	AWS AWSConfig

	OpsPort string `validate:"omitempty,numeric"`
}

// LoadEnv reads .env into the process environment. Containers usually inject
// variables directly, so a missing file is returned for the caller to log.
func LoadEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

func LoadCaptureConfig(validate *validator.Validate) (CaptureConfig, error) {
	r := &envReader{}
	cfg := CaptureConfig{
		Redis:         r.redis(),
		CameraAddress: r.str("CAMERA_IP", ""),
		CameraName:    r.str("CAMERA_NAME", ""),
		FPS:           r.float("CAPTURE_FPS", 15),
		DetectorPoll:  r.seconds("DETECTOR_POLL_SECONDS", 15),
		StreamPoll:    r.seconds("STREAM_POLL_SECONDS", 3),
		OpsPort:       r.str("OPS_PORT", ""),
	}
	return cfg, r.finish(validate, cfg)
}

func LoadDetectionConfig(validate *validator.Validate) (DetectionConfig, error) {
	r := &envReader{}
	cfg := DetectionConfig{
		Redis:             r.redis(),
		ClientName:        r.str("POD_NAME", defaultClientName()),
		EngineURL:         r.str("ENGINE_URL", ""),
		EngineTimeout:     r.seconds("ENGINE_TIMEOUT_SECONDS", 10),
		Confidence:        r.float("CONFIDENCE_SCORE", 0.3),
		LowConfidence:     r.float("LOW_CONFIDENCE_SCORE", 0.5),
		HighConfidence:    r.float("HIGH_CONFIDENCE_SCORE", 0.8),
		TopK:              r.integer("TOP_K", 10),
		StreamThreads:     r.integer("STREAM_THREADS", 1),
		UpdateThreads:     r.integer("UPDATE_THREADS", 1),
		DrawWorkers:       r.integer("DRAW_WORKERS", 5),
		InboundQueueSize:  r.integer("INBOUND_QUEUE_SIZE", 50),
		DrawQueueSize:     r.integer("DRAW_QUEUE_SIZE", 50),
		StreamBlock:       r.millis("STREAM_BLOCK_MS", 2000),
		TransportBackoff:  r.seconds("TRANSPORT_BACKOFF_SECONDS", 30),
		HeartbeatTTL:      r.seconds("HEARTBEAT_TTL_SECONDS", 3),
		HeartbeatInterval: r.seconds("HEARTBEAT_INTERVAL_SECONDS", 1),
		OpsPort:           r.str("OPS_PORT", ""),
	}
	return cfg, r.finish(validate, cfg)
}

func LoadNotificationConfig(validate *validator.Validate) (NotificationConfig, error) {
	r := &envReader{}
	cfg := NotificationConfig{
		Redis:            r.redis(),
		ClientName:       r.str("POD_NAME", defaultClientName()),
		SlackToken:       r.str("SLACK_TOKEN", ""),
		SlackChannel:     r.str("SLACK_CHANNEL", "#detection"),
		Delay:            r.seconds("DELAY", 0),
		SuppressMode:     r.str("SUPPRESS_MODE", "attempt"),
		StreamBlock:      r.millis("STREAM_BLOCK_MS", 2000),
		TransportBackoff: r.seconds("TRANSPORT_BACKOFF_SECONDS", 30),
		AWS: AWSConfig{
			Region:          r.str("AWS_REGION", ""),
			AccessKeyID:     r.str("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: r.str("AWS_SECRET_ACCESS_KEY", ""),
			BucketName:      r.str("AWS_BUCKET_NAME", ""),
		},
		OpsPort: r.str("OPS_PORT", ""),
	}
	return cfg, r.finish(validate, cfg)
}

func defaultClientName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "pipeline"
	}
	return fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
}

// envReader collects parse errors so a bad config reports every problem at
// once.
type envReader struct {
	errs []error
}

func (r *envReader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func (r *envReader) integer(key string, def int) int {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (r *envReader) float(key string, def float64) float64 {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (r *envReader) seconds(key string, def float64) time.Duration {
	return time.Duration(r.float(key, def) * float64(time.Second))
}

func (r *envReader) millis(key string, def int) time.Duration {
	return time.Duration(r.integer(key, def)) * time.Millisecond
}

func (r *envReader) redis() RedisConfig {
	return RedisConfig{
		Host:     r.str("REDIS_SERVICE_HOST", "localhost"),
		Port:     r.str("REDIS_SERVICE_PORT", "6379"),
		Password: r.str("REDIS_PASSWORD", ""),
		DB:       r.integer("REDIS_DB", 0),
	}
}

func (r *envReader) finish(validate *validator.Validate, cfg interface{}) error {
	if err := errors.Join(r.errs...); err != nil {
		return fmt.Errorf("invalid environment: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
