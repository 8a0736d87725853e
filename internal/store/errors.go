package store

import (
	"database/sql/driver"
	"errors"
	"net"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateUser is returned when a username is already taken.
var ErrDuplicateUser = errors.New("duplicate user")

// ErrInsufficientStock is returned when a purchase asks for more units
// than the product has left.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrUnavailable wraps connection-level failures so callers can retry
// idempotent reads. The purchase write is never retried.
var ErrUnavailable = errors.New("storage unavailable")

const uniqueViolationCode = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode
}

func isConnectionError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
