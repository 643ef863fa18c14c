package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrEmailTaken is returned when a user insert violates the email unique constraint.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUserReferenced is returned when a user delete is blocked by issues they created.
	ErrUserReferenced = errors.New("user is referenced by existing issues")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
