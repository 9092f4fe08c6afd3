package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestLevel(t *testing.T) {
	tests := []struct {
		status int
		quiet  bool
		want   slog.Level
	}{
		{200, false, slog.LevelInfo},
		{202, true, slog.LevelDebug},
		{404, false, slog.LevelWarn},
		{429, true, slog.LevelWarn},
		{500, true, slog.LevelError},
		{503, false, slog.LevelError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, requestLevel(tt.status, tt.quiet), "status %d quiet %v", tt.status, tt.quiet)
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	app := fiber.New()
	app.Use(Logger(logger, "/v1/frames"))
	app.Post("/v1/frames", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusAccepted) })
	app.Get("/v1/identities/:id", func(c *fiber.Ctx) error { return c.SendString("ok") })

	// quiet path below the handler level
	resp, err := app.Test(httptest.NewRequest("POST", "/v1/frames", strings.NewReader("frame")))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	assert.Empty(t, buf.String())

	resp, err = app.Test(httptest.NewRequest("GET", "/v1/identities/E001", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "http request", entry["msg"])
	assert.Equal(t, "/v1/identities/E001", entry["path"])
	assert.Equal(t, "/v1/identities/:id", entry["route"])
	assert.Equal(t, float64(200), entry["status"])
	assert.Equal(t, float64(2), entry["bytes_out"])
}
