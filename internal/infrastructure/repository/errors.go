package repository

import (
	"context"
	stderrors "errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/errors"
)

// IsForeignKeyViolation checks if the error is a foreign key constraint violation
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return stderrors.As(err, &pgErr) && pgErr.Code == "23503"
}

// IsDuplicateKeyViolation checks if the error is a unique constraint violation
func IsDuplicateKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return stderrors.As(err, &pgErr) && pgErr.Code == "23505"
}

// IsConnectionError reports failures that are expected to clear on retry:
// unreachable server, timeouts, SQLSTATE class 08 and admin shutdowns.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57P0")
	}

	var connectErr *pgconn.ConnectError
	if stderrors.As(err, &connectErr) {
		return true
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "closed pool")
}

// classify maps driver errors onto the AppError taxonomy.
func classify(err error, operation, resource string) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, context.Canceled):
		return err
	case stderrors.Is(err, pgx.ErrNoRows):
		return errors.NewNotFoundError(resource)
	case IsConnectionError(err):
		return errors.NewTransientError("postgres", operation+": "+err.Error()).WithCause(err)
	case IsDuplicateKeyViolation(err):
		return errors.NewConflictError(resource + " already exists").WithCause(err)
	case IsForeignKeyViolation(err):
		return errors.NewValidationError("INVALID_REFERENCE", operation+": "+resource+" references a missing record").WithCause(err)
	default:
		return errors.WrapWithCode(err, "DATABASE_ERROR", operation+" failed")
	}
}
