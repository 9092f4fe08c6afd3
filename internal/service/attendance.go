package service

import (
	"context"
	"fmt"

	"github.com/saturnino-fabrica-de-software/ponto/internal/audit"
	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
)

type AttendanceRepositoryInterface interface {
	ListUndelivered(ctx context.Context) ([]*domain.AttendanceEvent, error)
	ListAll(ctx context.Context, limit int) ([]*domain.AttendanceEvent, error)
	CountUndelivered(ctx context.Context) (int64, error)
}

// Syncer flushes pending events, see dispatch.Resyncer
type Syncer interface {
	SyncOnce(ctx context.Context) (int, error)
}

// AttendanceService exposes the local attendance log and the pending queue
type AttendanceService struct {
	attendanceRepo AttendanceRepositoryInterface
	syncer         Syncer
	audit          audit.Logger
}

func NewAttendanceService(attendanceRepo AttendanceRepositoryInterface, syncer Syncer, auditLogger audit.Logger) *AttendanceService {
	if auditLogger == nil {
		auditLogger = &audit.NoOpLogger{}
	}
	return &AttendanceService{
		attendanceRepo: attendanceRepo,
		syncer:         syncer,
		audit:          auditLogger,
	}
}

// History returns up to limit events, newest first. limit <= 0 means all.
func (s *AttendanceService) History(ctx context.Context, limit int) ([]*domain.AttendanceEvent, error) {
	return s.attendanceRepo.ListAll(ctx, limit)
}

// Pending returns the events waiting for resync, oldest first
func (s *AttendanceService) Pending(ctx context.Context) ([]*domain.AttendanceEvent, error) {
	return s.attendanceRepo.ListUndelivered(ctx)
}

// ResyncResult reports a manual flush of the pending queue
type ResyncResult struct {
	Delivered int    `json:"delivered"`
	Remaining int64  `json:"remaining"`
	Error     string `json:"error,omitempty"`
}

// Resync delivers pending events now. A delivery failure stops the flush and
// is reported in the result, not as an error.
func (s *AttendanceService) Resync(ctx context.Context) (*ResyncResult, error) {
	sent, syncErr := s.syncer.SyncOnce(ctx)

	remaining, err := s.attendanceRepo.CountUndelivered(ctx)
	if err != nil {
		return nil, fmt.Errorf("count pending: %w", err)
	}

	result := &ResyncResult{Delivered: sent, Remaining: remaining}
	if syncErr != nil {
		result.Error = syncErr.Error()
	}

	_ = s.audit.Log(ctx, audit.Event{
		EventType: audit.EventAttendanceResynced,
		Success:   syncErr == nil,
		Error:     result.Error,
		Metadata: map[string]string{
			"delivered": fmt.Sprint(sent),
			"remaining": fmt.Sprint(remaining),
		},
	})
	return result, nil
}
