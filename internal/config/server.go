package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FramePipeline/internal/middleware"
	"FramePipeline/pkg/handlerUtil"
	"FramePipeline/pkg/log"
	"FramePipeline/pkg/redis"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type ServerOption func(*Server) error

// Stage is one pipeline process body.
type Stage interface {
	Run(ctx context.Context) error
}

type Handler interface {
	Start(srv fiber.Router)
}

// Server runs a stage next to its optional ops HTTP surface.
type Server struct {
	engine      *fiber.App
	log         *logrus.Logger
	middleware  middleware.Middleware
	redisServer redis.IRedis
	handlers    []Handler
	port        string
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.redisServer == nil {
		return nil, fmt.Errorf("redis server is required")
	}
	if server.port != "" && server.engine == nil {
		return nil, fmt.Errorf("fiber app is required when an ops port is set")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

// WithOpsPort enables the ops server. An empty port leaves it off.
func WithOpsPort(port string) ServerOption {
	return func(s *Server) error {
		s.port = port
		return nil
	}
}

func (s *Server) Middleware() middleware.Middleware {
	return s.middleware
}

func (s *Server) RegisterHandler(handlers ...Handler) {
	s.handlers = append(s.handlers, handlers...)
}

// Run blocks until the stage returns. Cancelling ctx stops the stage and the
// ops server together.
func (s *Server) Run(ctx context.Context, stage Stage) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return stage.Run(ctx)
	})

	if s.port != "" {
		s.setupRoutes()

		g.Go(func() error {
			s.log.WithField("port", s.port).Info("Ops server listening")
			return s.engine.Listen(fmt.Sprintf(":%s", s.port))
		})
		g.Go(func() error {
			<-ctx.Done()
			return s.engine.ShutdownWithTimeout(5 * time.Second)
		})
	}

	err := g.Wait()
	if closeErr := s.redisServer.Close(); closeErr != nil {
		log.Warn(log.Fields{"error": closeErr.Error()}, "Failed to close redis client")
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Server) setupRoutes() {
	if s.middleware != nil {
		s.engine.Use(s.middleware.NewRequestIDMiddleware())
		s.engine.Use(s.middleware.NewLoggingMiddleware())
	}

	s.setupHealthCheck()

	router := s.engine.Group("/api/v1")
	for _, h := range s.handlers {
		h.Start(router)
	}
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		c, cancel := context.WithTimeout(ctx.UserContext(), 2*time.Second)
		defer cancel()

		if err := s.redisServer.Ping(c); err != nil {
			requestID := "unknown"
			if s.middleware != nil {
				requestID = s.middleware.GetRequestID(ctx)
			}
			return handlerUtil.New(s.log).Handle(ctx, requestID, err, ctx.Path(), "health_check")
		}

		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
}
