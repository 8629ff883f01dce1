package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	captureHandler "FramePipeline/internal/api/capture/handler"
	captureService "FramePipeline/internal/api/capture/service"
	detectionHandler "FramePipeline/internal/api/detection/handler"
	detectionService "FramePipeline/internal/api/detection/service"
	"FramePipeline/internal/api/notification"
	notificationHandler "FramePipeline/internal/api/notification/handler"
	notificationService "FramePipeline/internal/api/notification/service"
	"FramePipeline/internal/config"
	"FramePipeline/internal/dedup"
	"FramePipeline/internal/liveness"
	"FramePipeline/pkg/camera"
	"FramePipeline/pkg/camera/opencv"
	"FramePipeline/pkg/engine"
	"FramePipeline/pkg/log"
	"FramePipeline/pkg/redis"
	"FramePipeline/pkg/s3"
	"FramePipeline/pkg/slack"
	"FramePipeline/pkg/utils"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "pipeline",
		Usage: "camera frame pipeline: capture, detect and notify",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env-file",
				Value:   ".env",
				Usage:   "dotenv file loaded before reading configuration",
				EnvVars: []string{"ENV_FILE"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "capture",
				Usage:  "read a camera and publish sampled frames",
				Action: runCapture,
			},
			{
				Name:   "detect",
				Usage:  "consume frames, run detection and publish annotated hits",
				Action: runDetect,
			},
			{
				Name:   "notify",
				Usage:  "consume annotated hits and send rate-limited alerts",
				Action: runNotify,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func bootstrap(c *cli.Context, stage string) (context.Context, context.CancelFunc, *logrus.Logger) {
	envErr := config.LoadEnv(c.String("env-file"))

	logger := log.NewLogger(stage)
	if envErr != nil {
		log.Warn(log.Fields{"error": envErr.Error()}, "Env file not loaded, using process environment")
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	return log.WithStage(ctx, stage), stop, logger
}

func invalidConfig(stage string, err error) error {
	log.Error(log.Fields{"stage": stage, "error": err.Error()}, "Invalid configuration")
	return cli.Exit(err.Error(), 1)
}

func newRedis(cfg config.RedisConfig, logger *logrus.Logger) redis.IRedis {
	return redis.New(redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}, logger)
}

func newServer(logger *logrus.Logger, transport redis.IRedis, stage, port string) (*config.Server, error) {
	return config.NewServer(
		config.WithLogger(logger),
		config.WithRedisServer(transport),
		config.WithFiber(config.NewFiber(logger, stage)),
		config.WithMiddleware(),
		config.WithOpsPort(port),
	)
}

func runCapture(c *cli.Context) error {
	ctx, stop, logger := bootstrap(c, "capture")
	defer stop()

	cfg, err := config.LoadCaptureConfig(config.NewValidator())
	if err != nil {
		return invalidConfig("capture", err)
	}

	transport := newRedis(cfg.Redis, logger)

	source := camera.New(cfg.CameraAddress, opencv.Open)
	defer source.Close()

	monitor := liveness.NewMonitor(transport, liveness.DetectorKey, cfg.DetectorPoll, logger)
	svc := captureService.NewCaptureService(logger, transport, monitor, source, captureService.Config{
		Camera:     cfg.CameraName,
		TargetRate: cfg.FPS,
		StreamPoll: cfg.StreamPoll,
	})

	server, err := newServer(logger, transport, "capture", cfg.OpsPort)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	server.RegisterHandler(captureHandler.New(logger, server.Middleware(), svc))

	log.FromContext(ctx).WithField("camera", cfg.CameraName).Info("Capture started")
	err = server.Run(ctx, svc)
	log.FromContext(ctx).Info("Capture stopped")
	return err
}

func runDetect(c *cli.Context) error {
	ctx, stop, logger := bootstrap(c, "detect")
	defer stop()

	cfg, err := config.LoadDetectionConfig(config.NewValidator())
	if err != nil {
		return invalidConfig("detect", err)
	}

	transport := newRedis(cfg.Redis, logger)

	newEngine := func() (engine.IEngine, error) {
		return engine.New(cfg.EngineURL, cfg.EngineTimeout), nil
	}

	svc := detectionService.NewDetectionService(logger, transport, newEngine, detectionService.Config{
		ClientName:        cfg.ClientName,
		StreamThreads:     cfg.StreamThreads,
		UpdateThreads:     cfg.UpdateThreads,
		DrawWorkers:       cfg.DrawWorkers,
		InboundQueueSize:  cfg.InboundQueueSize,
		DrawQueueSize:     cfg.DrawQueueSize,
		Threshold:         cfg.Confidence,
		LowThreshold:      cfg.LowConfidence,
		HighThreshold:     cfg.HighConfidence,
		TopK:              cfg.TopK,
		Block:             cfg.StreamBlock,
		Backoff:           cfg.TransportBackoff,
		HeartbeatTTL:      cfg.HeartbeatTTL,
		HeartbeatInterval: cfg.HeartbeatInterval,
	})

	server, err := newServer(logger, transport, "detect", cfg.OpsPort)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	server.RegisterHandler(detectionHandler.New(logger, server.Middleware(), svc))

	log.FromContext(ctx).WithField("client", cfg.ClientName).Info("Detection started")
	err = server.Run(ctx, svc)
	log.FromContext(ctx).Info("Detection stopped")
	return err
}

func runNotify(c *cli.Context) error {
	ctx, stop, logger := bootstrap(c, "notify")
	defer stop()

	cfg, err := config.LoadNotificationConfig(config.NewValidator())
	if err != nil {
		return invalidConfig("notify", err)
	}

	transport := newRedis(cfg.Redis, logger)

	var archive s3.ItfS3
	if cfg.AWS.Enabled() {
		archive, err = s3.New(s3.Options{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			BucketName:      cfg.AWS.BucketName,
		})
		if err != nil {
			return cli.Exit(fmt.Sprintf("failed to create S3 client: %v", err), 1)
		}
	}

	svc := notificationService.NewNotificationService(
		logger,
		transport,
		dedup.NewSuppressor(transport, cfg.Delay),
		slack.New(cfg.SlackToken),
		archive,
		utils.New(),
		notificationService.Config{
			ClientName: cfg.ClientName,
			Channel:    cfg.SlackChannel,
			Mode:       notification.SuppressMode(cfg.SuppressMode),
			Block:      cfg.StreamBlock,
			Backoff:    cfg.TransportBackoff,
		},
	)

	server, err := newServer(logger, transport, "notify", cfg.OpsPort)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	server.RegisterHandler(notificationHandler.New(logger, server.Middleware(), svc))

	log.FromContext(ctx).WithField("client", cfg.ClientName).Info("Notification started")
	err = server.Run(ctx, svc)
	log.FromContext(ctx).Info("Notification stopped")
	return err
}
