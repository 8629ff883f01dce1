package captureHandler

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"FramePipeline/internal/api/capture"
	"FramePipeline/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCaptureService struct {
	alive bool
	slow  bool
}

func (s *stubCaptureService) Run(ctx context.Context) error { return nil }

func (s *stubCaptureService) Stats() capture.Stats {
	return capture.Stats{Camera: "garage", State: capture.StreamActive}
}

func (s *stubCaptureService) DetectorStatus(ctx context.Context) capture.DetectorStatus {
	if s.slow {
		<-ctx.Done()
		return capture.DetectorStatus{Key: "Primary_Detector"}
	}
	return capture.DetectorStatus{Alive: s.alive, Key: "Primary_Detector"}
}

func newTestApp(svc *stubCaptureService) *fiber.App {
	log := logrus.New()
	log.SetOutput(io.Discard)

	m := middleware.New(log)
	h := New(log, m, svc)
	h.statusTimeout = 20 * time.Millisecond

	app := fiber.New()
	app.Use(m.NewRequestIDMiddleware())
	h.Start(app)
	return app
}

func TestDetectorStatus(t *testing.T) {
	tests := []struct {
		name string
		svc  *stubCaptureService
		want int
	}{
		{name: "alive", svc: &stubCaptureService{alive: true}, want: fiber.StatusOK},
		{name: "offline", svc: &stubCaptureService{}, want: fiber.StatusServiceUnavailable},
		{name: "lookup timed out", svc: &stubCaptureService{slow: true}, want: fiber.StatusRequestTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(tt.svc)

			resp, err := app.Test(httptest.NewRequest("GET", "/detector", nil), 1000)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestStats(t *testing.T) {
	app := newTestApp(&stubCaptureService{})

	resp, err := app.Test(httptest.NewRequest("GET", "/stats", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"camera":"garage"`)
}
