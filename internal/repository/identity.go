package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
)

// IdentityRepository is the Postgres-backed enrolled identity registry
type IdentityRepository struct {
	pool PgxPool
}

func NewIdentityRepository(pool PgxPool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

// UpsertIdentity inserts identity or replaces the enrollment with the same id
func (r *IdentityRepository) UpsertIdentity(ctx context.Context, identity *domain.EnrolledIdentity) error {
	if identity.ID == "" || len(identity.Embedding) == 0 {
		return domain.ErrInvalidIdentity
	}
	if identity.EnrolledAt.IsZero() {
		identity.EnrolledAt = time.Now().UTC()
	}

	query := `
		INSERT INTO identities (id, display_name, embedding, enrolled_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (id) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    embedding = EXCLUDED.embedding,
		    enrolled_at = EXCLUDED.enrolled_at,
		    updated_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query,
		identity.ID,
		identity.DisplayName,
		toVector(identity.Embedding),
		identity.EnrolledAt,
	)
	if err != nil {
		return fmt.Errorf("upsert identity: %w", err)
	}

	return nil
}

// ListIdentities returns every enrolled identity ordered by enrollment time, then id
func (r *IdentityRepository) ListIdentities(ctx context.Context) ([]domain.EnrolledIdentity, error) {
	query := `
		SELECT id, display_name, embedding, enrolled_at
		FROM identities
		ORDER BY enrolled_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	identities := make([]domain.EnrolledIdentity, 0)
	for rows.Next() {
		var it domain.EnrolledIdentity
		var embedding pgvector.Vector

		if err := rows.Scan(&it.ID, &it.DisplayName, &embedding, &it.EnrolledAt); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		it.Embedding = fromVector(embedding)
		identities = append(identities, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}

	return identities, nil
}

func (r *IdentityRepository) GetIdentity(ctx context.Context, id string) (*domain.EnrolledIdentity, error) {
	query := `
		SELECT id, display_name, embedding, enrolled_at
		FROM identities
		WHERE id = $1
	`

	var it domain.EnrolledIdentity
	var embedding pgvector.Vector

	err := r.pool.QueryRow(ctx, query, id).Scan(&it.ID, &it.DisplayName, &embedding, &it.EnrolledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrIdentityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}

	it.Embedding = fromVector(embedding)
	return &it, nil
}

func (r *IdentityRepository) DeleteIdentity(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM identities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrIdentityNotFound
	}

	return nil
}

func (r *IdentityRepository) CountIdentities(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM identities`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return n, nil
}
