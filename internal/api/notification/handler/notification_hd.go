package notificationHandler

import (
	"FramePipeline/pkg/handlerUtil"
	"FramePipeline/pkg/log"
	"github.com/gofiber/fiber/v2"
)

func (h *NotificationHandler) GetStats(ctx *fiber.Ctx) error {
	h.log.WithFields(log.Fields{
		"request_id": h.middleware.GetRequestID(ctx),
		"path":       ctx.Path(),
	}).Debug("Processing notification stats request")

	return handlerUtil.New(h.log).HandleSuccess(ctx, fiber.StatusOK, h.notificationService.Stats())
}
