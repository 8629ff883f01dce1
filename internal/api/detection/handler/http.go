package detectionHandler

import (
	detectionService "FramePipeline/internal/api/detection/service"
	"FramePipeline/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type DetectionHandler struct {
	log              *logrus.Logger
	middleware       middleware.Middleware
	detectionService detectionService.IDetectionService
}

func New(
	log *logrus.Logger,
	middleware middleware.Middleware,
	ds detectionService.IDetectionService,
) *DetectionHandler {
	return &DetectionHandler{
		log:              log,
		middleware:       middleware,
		detectionService: ds,
	}
}

func (h *DetectionHandler) Start(srv fiber.Router) {
	srv.Get("/stats", h.GetStats)
}
