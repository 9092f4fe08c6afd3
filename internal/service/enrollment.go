package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/saturnino-fabrica-de-software/ponto/internal/audit"
	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
	"github.com/saturnino-fabrica-de-software/ponto/internal/orchestrator"
	"github.com/saturnino-fabrica-de-software/ponto/internal/provider"
)

type IdentityRepositoryInterface interface {
	UpsertIdentity(ctx context.Context, identity *domain.EnrolledIdentity) error
	ListIdentities(ctx context.Context) ([]domain.EnrolledIdentity, error)
	GetIdentity(ctx context.Context, id string) (*domain.EnrolledIdentity, error)
	DeleteIdentity(ctx context.Context, id string) error
}

// EnrollmentService registers employees from a single reference photo
type EnrollmentService struct {
	identityRepo IdentityRepositoryInterface
	detector     provider.SignalDetector
	extractor    orchestrator.Extractor
	audit        audit.Logger
	now          func() time.Time
}

func NewEnrollmentService(
	identityRepo IdentityRepositoryInterface,
	detector provider.SignalDetector,
	extractor orchestrator.Extractor,
	auditLogger audit.Logger,
) *EnrollmentService {
	if auditLogger == nil {
		auditLogger = &audit.NoOpLogger{}
	}
	return &EnrollmentService{
		identityRepo: identityRepo,
		detector:     detector,
		extractor:    extractor,
		audit:        auditLogger,
		now:          time.Now,
	}
}

// Enroll extracts the embedding of the only face in frame and stores it
// under id. Enrolling an existing id replaces the previous entry.
func (s *EnrollmentService) Enroll(ctx context.Context, id, displayName string, frame domain.Frame) (*domain.EnrolledIdentity, error) {
	id = strings.TrimSpace(id)
	displayName = strings.TrimSpace(displayName)
	if id == "" {
		return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("id is required"))
	}
	if displayName == "" {
		return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("display_name is required"))
	}
	if frame.Image == nil {
		return nil, domain.ErrInvalidImage
	}

	signals, err := s.detector.Detect(ctx, frame)
	if err != nil {
		return nil, fmt.Errorf("identity %s: detect faces: %w", id, err)
	}

	if len(signals) == 0 {
		return nil, domain.ErrNoFaceDetected
	}

	if len(signals) > 1 {
		return nil, domain.ErrMultipleFaces
	}

	res, err := s.extractor.Extract(ctx, frame.Image, signals[0].BoundingBox, frame.RotationDegrees)
	if err != nil {
		return nil, fmt.Errorf("identity %s: extract embedding: %w", id, err)
	}

	identity := &domain.EnrolledIdentity{
		ID:          id,
		DisplayName: displayName,
		Embedding:   res.Embedding,
		EnrolledAt:  s.now().UTC(),
	}

	if err := s.identityRepo.UpsertIdentity(ctx, identity); err != nil {
		return nil, err
	}

	_ = s.audit.Log(ctx, audit.Event{
		EventType:  audit.EventIdentityEnrolled,
		IdentityID: id,
		Success:    true,
		Metadata:   map[string]string{"display_name": displayName},
	})

	return identity, nil
}

func (s *EnrollmentService) Get(ctx context.Context, id string) (*domain.EnrolledIdentity, error) {
	return s.identityRepo.GetIdentity(ctx, id)
}

func (s *EnrollmentService) List(ctx context.Context) ([]domain.EnrolledIdentity, error) {
	return s.identityRepo.ListIdentities(ctx)
}

func (s *EnrollmentService) Delete(ctx context.Context, id string) error {
	// Verify identity exists before deleting
	if _, err := s.identityRepo.GetIdentity(ctx, id); err != nil {
		return err
	}

	if err := s.identityRepo.DeleteIdentity(ctx, id); err != nil {
		return fmt.Errorf("identity %s: delete: %w", id, err)
	}

	_ = s.audit.Log(ctx, audit.Event{
		EventType:  audit.EventIdentityDeleted,
		IdentityID: id,
		Success:    true,
	})
	return nil
}
