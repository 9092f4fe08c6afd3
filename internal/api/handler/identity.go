package handler

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
	"github.com/saturnino-fabrica-de-software/ponto/internal/service"
)

type IdentityService interface {
	Enroll(ctx context.Context, id, displayName string, frame domain.Frame) (*domain.EnrolledIdentity, error)
	Get(ctx context.Context, id string) (*domain.EnrolledIdentity, error)
	List(ctx context.Context) ([]domain.EnrolledIdentity, error)
	Delete(ctx context.Context, id string) error
}

// Notifier publishes registry changes to connected dashboards
type Notifier interface {
	IdentityEnrolled(identity *domain.EnrolledIdentity)
	IdentityDeleted(id string)
}

type IdentityHandler struct {
	service  IdentityService
	notifier Notifier
	logger   *slog.Logger
}

func NewIdentityHandler(service IdentityService, notifier Notifier, logger *slog.Logger) *IdentityHandler {
	return &IdentityHandler{
		service:  service,
		notifier: notifier,
		logger:   logger,
	}
}

type IdentityResponse struct {
	ID           string `json:"id"`
	DisplayName  string `json:"display_name"`
	EmbeddingDim int    `json:"embedding_dim"`
	EnrolledAt   string `json:"enrolled_at"`
}

type IdentityListResponse struct {
	Identities []IdentityResponse `json:"identities"`
	Count      int                `json:"count"`
}

func toIdentityResponse(identity *domain.EnrolledIdentity) IdentityResponse {
	return IdentityResponse{
		ID:           identity.ID,
		DisplayName:  identity.DisplayName,
		EmbeddingDim: len(identity.Embedding),
		EnrolledAt:   identity.EnrolledAt.UTC().Format(time.RFC3339),
	}
}

// Enroll POST /v1/identities - register or replace an employee from a photo
func (h *IdentityHandler) Enroll(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.FormValue("id"))
	if id == "" {
		return domain.ErrValidationFailed.WithError(errors.New("id is required"))
	}
	displayName := strings.TrimSpace(c.FormValue("display_name"))
	if displayName == "" {
		return domain.ErrValidationFailed.WithError(errors.New("display_name is required"))
	}

	rotation, err := parseRotation(c.FormValue("rotation"))
	if err != nil {
		return err
	}

	data, err := formImage(c)
	if err != nil {
		return err
	}

	frame, err := service.DecodeFrame(data, rotation)
	if err != nil {
		return err
	}

	identity, err := h.service.Enroll(c.UserContext(), id, displayName, frame)
	if err != nil {
		return err
	}

	h.logger.Info("identity enrolled", "identity_id", identity.ID)
	if h.notifier != nil {
		h.notifier.IdentityEnrolled(identity)
	}

	return c.Status(fiber.StatusCreated).JSON(toIdentityResponse(identity))
}

// List GET /v1/identities
func (h *IdentityHandler) List(c *fiber.Ctx) error {
	identities, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}

	resp := IdentityListResponse{
		Identities: make([]IdentityResponse, 0, len(identities)),
		Count:      len(identities),
	}
	for i := range identities {
		resp.Identities = append(resp.Identities, toIdentityResponse(&identities[i]))
	}
	return c.JSON(resp)
}

// Get GET /v1/identities/:id
func (h *IdentityHandler) Get(c *fiber.Ctx) error {
	identity, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(toIdentityResponse(identity))
}

// Delete DELETE /v1/identities/:id
func (h *IdentityHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return err
	}

	h.logger.Info("identity deleted", "identity_id", id)
	if h.notifier != nil {
		h.notifier.IdentityDeleted(id)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
