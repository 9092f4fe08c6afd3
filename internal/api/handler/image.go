package handler

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
	"github.com/saturnino-fabrica-de-software/ponto/internal/service"
)

// HeaderRotation carries the clockwise rotation the frame needs to be upright
const HeaderRotation = "X-Rotation-Degrees"

var validImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// formImage reads the "image" part of a multipart form
func formImage(c *fiber.Ctx) ([]byte, error) {
	file, err := c.FormFile("image")
	if err != nil {
		return nil, domain.ErrValidationFailed.WithError(errors.New("image is required"))
	}

	if file.Size == 0 || file.Size > service.MaxFrameSize {
		return nil, domain.ErrInvalidImage.WithError(errors.New("image size out of range"))
	}

	if !validImageTypes[file.Header.Get("Content-Type")] {
		return nil, domain.ErrInvalidImage.WithError(errors.New("image must be JPEG or PNG"))
	}

	f, err := file.Open()
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	return data, nil
}

// rawImage reads a frame posted as the request body
func rawImage(c *fiber.Ctx) ([]byte, error) {
	contentType := strings.ToLower(strings.TrimSpace(strings.SplitN(c.Get(fiber.HeaderContentType), ";", 2)[0]))
	if !validImageTypes[contentType] {
		return nil, domain.ErrInvalidImage.WithError(errors.New("Content-Type must be image/jpeg or image/png"))
	}

	// fasthttp reuses the body buffer after the handler returns
	body := c.Body()
	data := make([]byte, len(body))
	copy(data, body)
	return data, nil
}

// parseRotation accepts a multiple of 90 degrees, missing means 0
func parseRotation(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	degrees, err := strconv.Atoi(raw)
	if err != nil || degrees%90 != 0 {
		return 0, domain.ErrValidationFailed.WithError(errors.New("rotation must be a multiple of 90"))
	}
	return degrees, nil
}
