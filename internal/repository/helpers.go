package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
)

// isUniqueViolation checks if the error is a unique constraint violation
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "23505") ||
		strings.Contains(errMsg, "duplicate key")
}

func toVector(e domain.Embedding) pgvector.Vector {
	return pgvector.NewVector(append([]float32(nil), e...))
}

func fromVector(v pgvector.Vector) domain.Embedding {
	if v.Slice() == nil {
		return nil
	}
	return append(domain.Embedding(nil), v.Slice()...)
}
