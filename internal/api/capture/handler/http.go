package captureHandler

import (
	"time"

	captureService "FramePipeline/internal/api/capture/service"
	"FramePipeline/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type CaptureHandler struct {
	log            *logrus.Logger
	middleware     middleware.Middleware
	captureService captureService.ICaptureService
	statusTimeout  time.Duration
}

func New(
	log *logrus.Logger,
	middleware middleware.Middleware,
	captureService captureService.ICaptureService,
) *CaptureHandler {
	return &CaptureHandler{
		log:            log,
		middleware:     middleware,
		captureService: captureService,
		statusTimeout:  2 * time.Second,
	}
}

func (h *CaptureHandler) Start(srv fiber.Router) {
	srv.Get("/stats", h.GetStats)
	srv.Get("/detector", h.GetDetectorStatus)
}
