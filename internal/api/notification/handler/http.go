package notificationHandler

import (
	notificationService "FramePipeline/internal/api/notification/service"
	"FramePipeline/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type NotificationHandler struct {
	log                 *logrus.Logger
	middleware          middleware.Middleware
	notificationService notificationService.INotificationService
}

func New(
	log *logrus.Logger,
	middleware middleware.Middleware,
	ns notificationService.INotificationService,
) *NotificationHandler {
	return &NotificationHandler{
		log:                 log,
		middleware:          middleware,
		notificationService: ns,
	}
}

func (h *NotificationHandler) Start(srv fiber.Router) {
	srv.Get("/stats", h.GetStats)
}
