package handler

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
	"github.com/saturnino-fabrica-de-software/ponto/internal/service"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

type AttendanceService interface {
	History(ctx context.Context, limit int) ([]*domain.AttendanceEvent, error)
	Pending(ctx context.Context) ([]*domain.AttendanceEvent, error)
	Resync(ctx context.Context) (*service.ResyncResult, error)
}

type AttendanceHandler struct {
	service AttendanceService
	logger  *slog.Logger
}

func NewAttendanceHandler(service AttendanceService, logger *slog.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		service: service,
		logger:  logger,
	}
}

type AttendanceListResponse struct {
	Events []*domain.AttendanceEvent `json:"events"`
	Count  int                       `json:"count"`
}

func listResponse(events []*domain.AttendanceEvent) AttendanceListResponse {
	if events == nil {
		events = []*domain.AttendanceEvent{}
	}
	return AttendanceListResponse{Events: events, Count: len(events)}
}

// History GET /v1/attendance?limit=50 - newest first
func (h *AttendanceHandler) History(c *fiber.Ctx) error {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			return domain.ErrValidationFailed.WithError(errors.New("limit must be between 1 and 1000"))
		}
		limit = n
	}

	events, err := h.service.History(c.UserContext(), limit)
	if err != nil {
		return err
	}
	return c.JSON(listResponse(events))
}

// Pending GET /v1/attendance/pending - events still waiting for delivery
func (h *AttendanceHandler) Pending(c *fiber.Ctx) error {
	events, err := h.service.Pending(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(listResponse(events))
}

// Resync POST /v1/attendance/resync - deliver pending events now
func (h *AttendanceHandler) Resync(c *fiber.Ctx) error {
	result, err := h.service.Resync(c.UserContext())
	if err != nil {
		return err
	}

	if result.Error != "" {
		h.logger.Warn("manual resync stopped early",
			"delivered", result.Delivered,
			"remaining", result.Remaining,
			"error", result.Error,
		)
	}
	return c.JSON(result)
}
