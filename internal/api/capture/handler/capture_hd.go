package captureHandler

import (
	"context"

	"FramePipeline/internal/api/capture"
	contextPkg "FramePipeline/pkg/context"
	"FramePipeline/pkg/handlerUtil"
	"FramePipeline/pkg/log"
	"github.com/gofiber/fiber/v2"
)

func (h *CaptureHandler) GetStats(ctx *fiber.Ctx) error {
	errHandler := handlerUtil.New(h.log)
	return errHandler.HandleSuccess(ctx, fiber.StatusOK, h.captureService.Stats())
}

func (h *CaptureHandler) GetDetectorStatus(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), h.statusTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing detector status request")

	status := h.captureService.DetectorStatus(c)
	// A lookup cut short by the deadline reads as not alive.
	if c.Err() != nil {
		return errHandler.HandleRequestTimeout(ctx)
	}
	if !status.Alive {
		return errHandler.Handle(ctx, requestID, capture.ErrDetectorOffline, ctx.Path(), "detector_status")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, status)
}
