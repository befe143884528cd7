package sqldb

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/storefront/internal/apperror"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// isUniqueViolation reports whether err came from a UNIQUE constraint in
// either engine.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	var liteErr interface{ Code() int }
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			// Primary code only, when extended result codes are off.
			return strings.Contains(err.Error(), "UNIQUE")
		}
	}
	return false
}

// notFound builds the lookup-miss error for a non-numeric key.
func notFound(resource, key string) error {
	return &apperror.AppError{
		Err:     apperror.ErrNotFound,
		Message: fmt.Sprintf("%s %s doesn't exist.", resource, key),
	}
}

// lookupErr maps sql.ErrNoRows to miss and wraps anything else.
func lookupErr(err error, miss error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return miss
	}
	return fmt.Errorf("sqldb: %s: %w", op, err)
}

// writeErr maps unique violations to a conflict and wraps anything else.
// The violated column is read from the driver message ("users.email" for
// SQLite, "users_email_key" for PostgreSQL).
func writeErr(err error, op string, conflicts map[string]string) error {
	if err == nil {
		return nil
	}
	if apperror.Is(err, apperror.ErrNotFound) {
		return err
	}
	if isUniqueViolation(err) {
		msg := err.Error()
		for column, text := range conflicts {
			if strings.Contains(msg, column) {
				return apperror.Conflict(column, text)
			}
		}
		return apperror.Conflict("", "A record with these details already exists.")
	}
	return fmt.Errorf("sqldb: %s: %w", op, err)
}
