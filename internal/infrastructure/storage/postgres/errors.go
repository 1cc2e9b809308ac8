package postgres

import (
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"repairpos/internal/core/apperror"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgSerializationFail   = "40001"
)

// MapError converts driver errors into apperror values. entity and key
// name the row the statement was about.
func MapError(err error, entity string, key any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) || pgxscan.NotFound(err) {
		return apperror.NewNotFound(entity, key)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperror.NewDuplicate(entity, pgErr.ConstraintName, fmt.Sprint(key)).WithCause(err)
		case pgForeignKeyViolation:
			return apperror.NewState(apperror.CodeNotRemovable, entity+" is still referenced").
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		case pgSerializationFail:
			return apperror.NewConcurrentModification(entity, key).WithCause(err)
		}
	}
	return fmt.Errorf("%s: %w", entity, err)
}
