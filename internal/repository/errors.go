package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"skaila.com/gamification/pkg/apperror"
)

// SQLSTATE codes worth retrying.
var transientCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
	"57014": true, // query_canceled (statement/lock timeout)
}

// IsTransient reports whether a driver error is safe to retry.
func IsTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return transientCodes[pgErr.Code]
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// classify maps raw storage errors to the core error kinds. Errors that
// already carry a kind pass through untouched.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case apperror.IsKnown(err):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %v", apperror.ErrNotFound, err)
	case IsTransient(err):
		return fmt.Errorf("%w: %v", apperror.ErrStorageTransient, err)
	default:
		return fmt.Errorf("%w: %v", apperror.ErrStorageUnavailable, err)
	}
}
