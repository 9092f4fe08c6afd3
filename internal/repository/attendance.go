package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
)

const attendanceColumns = `id, identity_id, display_name, occurred_at, score, evidence, delivered, delivered_at`

// AttendanceRepository is the durable local queue and archive of attendance events.
// Rows are ordered by a BIGSERIAL so FIFO order survives equal timestamps.
type AttendanceRepository struct {
	pool PgxPool
}

func NewAttendanceRepository(pool PgxPool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// Append persists event with its Delivered flag. Appending the same id twice
// is a no-op.
func (r *AttendanceRepository) Append(ctx context.Context, event *domain.AttendanceEvent) error {
	query := `
		INSERT INTO attendance_events (id, identity_id, display_name, occurred_at, score, evidence, delivered, delivered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.IdentityID,
		event.DisplayName,
		event.Timestamp,
		event.Score,
		event.EvidenceImage,
		event.Delivered,
		event.DeliveredAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("append attendance: %w", err)
	}

	return nil
}

// ListUndelivered returns pending events, oldest first
func (r *AttendanceRepository) ListUndelivered(ctx context.Context) ([]*domain.AttendanceEvent, error) {
	query := `
		SELECT ` + attendanceColumns + `
		FROM attendance_events
		WHERE delivered = false
		ORDER BY seq ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list undelivered: %w", err)
	}
	return collectEvents(rows)
}

// MarkDelivered flags the event as delivered. Calling it again keeps the
// first delivery time; unknown ids return domain.ErrAttendanceNotFound.
func (r *AttendanceRepository) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE attendance_events
		SET delivered = true,
		    delivered_at = COALESCE(delivered_at, NOW())
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrAttendanceNotFound
	}

	return nil
}

// ListAll returns the most recent events first. limit <= 0 means no limit.
func (r *AttendanceRepository) ListAll(ctx context.Context, limit int) ([]*domain.AttendanceEvent, error) {
	query := `
		SELECT ` + attendanceColumns + `
		FROM attendance_events
		ORDER BY seq DESC
	`

	var (
		rows pgx.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.pool.Query(ctx, query+` LIMIT $1`, limit)
	} else {
		rows, err = r.pool.Query(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return collectEvents(rows)
}

func (r *AttendanceRepository) CountUndelivered(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM attendance_events WHERE delivered = false`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count undelivered: %w", err)
	}
	return n, nil
}

func collectEvents(rows pgx.Rows) ([]*domain.AttendanceEvent, error) {
	defer rows.Close()

	events := make([]*domain.AttendanceEvent, 0)
	for rows.Next() {
		var e domain.AttendanceEvent
		err := rows.Scan(
			&e.ID,
			&e.IdentityID,
			&e.DisplayName,
			&e.Timestamp,
			&e.Score,
			&e.EvidenceImage,
			&e.Delivered,
			&e.DeliveredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}

	return events, nil
}
