package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
	"github.com/saturnino-fabrica-de-software/ponto/internal/liveness"
	"github.com/saturnino-fabrica-de-software/ponto/internal/orchestrator"
	"github.com/saturnino-fabrica-de-software/ponto/internal/service"
)

// Kiosk is the attendance pipeline as seen by the camera client
type Kiosk interface {
	Submit(frame domain.Frame) bool
	ProcessFrame(ctx context.Context, frame domain.Frame) (orchestrator.Update, error)
	Session() liveness.Session
	Reset()
}

type FrameHandler struct {
	kiosk Kiosk
}

func NewFrameHandler(kiosk Kiosk) *FrameHandler {
	return &FrameHandler{kiosk: kiosk}
}

type SubmitResponse struct {
	Accepted bool `json:"accepted"`
	Replaced bool `json:"replaced"`
}

type SessionResponse struct {
	Session liveness.Session `json:"session"`
	State   string           `json:"state"`
	Prompt  string           `json:"prompt"`
}

// Submit POST /v1/frames - queue a camera frame for analysis.
//
// The body is the raw JPEG or PNG. By default the frame is queued and the
// outcome is pushed over /v1/ws; with ?sync=true the request waits for the
// frame and returns its update, or 429 when another frame is in flight.
func (h *FrameHandler) Submit(c *fiber.Ctx) error {
	rotation, err := parseRotation(c.Get(HeaderRotation))
	if err != nil {
		return err
	}

	data, err := rawImage(c)
	if err != nil {
		return err
	}

	frame, err := service.DecodeFrame(data, rotation)
	if err != nil {
		return err
	}

	if c.QueryBool("sync") {
		update, err := h.kiosk.ProcessFrame(c.UserContext(), frame)
		if err != nil {
			return err
		}
		return c.JSON(update)
	}

	replaced := h.kiosk.Submit(frame)
	return c.Status(fiber.StatusAccepted).JSON(SubmitResponse{
		Accepted: true,
		Replaced: replaced,
	})
}

// Session GET /v1/session
func (h *FrameHandler) Session(c *fiber.Ctx) error {
	s := h.kiosk.Session()
	return c.JSON(SessionResponse{
		Session: s,
		State:   s.State.String(),
		Prompt:  s.Prompt(),
	})
}

// Reset POST /v1/session/reset - abandon the current attempt
func (h *FrameHandler) Reset(c *fiber.Ctx) error {
	h.kiosk.Reset()
	return h.Session(c)
}
