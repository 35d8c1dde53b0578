package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"ride-dispatch/internal/domain/apperr"
)

// SQLSTATE codes the repositories care about.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	checkViolation      = "23514"
	serializationFail   = "40001"
)

// mapError folds driver errors into the apperr taxonomy. Context errors pass
// through untouched so callers can tell cancellation from an outage.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %w", apperr.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation, serializationFail:
			return fmt.Errorf("%w: %w", apperr.ErrConflict, err)
		case foreignKeyViolation:
			return fmt.Errorf("%w: %w", apperr.ErrNotFound, err)
		case checkViolation:
			return fmt.Errorf("%w: %w", apperr.ErrValidation, err)
		}
	}
	return fmt.Errorf("%w: %w", apperr.ErrUnavailable, err)
}

// isUniqueViolation reports whether err is a unique violation on constraint.
// An empty constraint matches any unique violation.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
