package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp() (*fiber.App, Middleware) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	m := New(log)
	app := fiber.New()
	app.Use(m.NewRequestIDMiddleware())
	app.Use(m.NewLoggingMiddleware())
	app.Get("/id", func(c *fiber.Ctx) error {
		return c.SendString(m.GetRequestID(c))
	})
	return app, m
}

func TestRequestIDIsGeneratedAndEchoed(t *testing.T) {
	app, _ := newTestApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/id", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	id := resp.Header.Get(RequestIDKey)
	assert.Len(t, id, 26)
	assert.Equal(t, id, string(body))
}

func TestRequestIDIsKeptWhenProvided(t *testing.T) {
	app, _ := newTestApp()

	req := httptest.NewRequest("GET", "/id", nil)
	req.Header.Set(RequestIDKey, "probe-1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "probe-1", resp.Header.Get(RequestIDKey))
}

func TestOversizedRequestIDIsReplaced(t *testing.T) {
	app, _ := newTestApp()

	req := httptest.NewRequest("GET", "/id", nil)
	req.Header.Set(RequestIDKey, strings.Repeat("x", 200))
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Len(t, resp.Header.Get(RequestIDKey), 26)
}
