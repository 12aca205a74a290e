// Package repository defines the MySQL data access layer and the error
// values shared by every store implementation.  These sentinel values
// allow higher layers such as services and handlers to distinguish
// between different failure scenarios without inspecting driver errors.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

var (
	ErrBookingNotFound      = errors.New("booking not found")
	ErrDuplicateBookingID   = errors.New("booking id already exists")
	ErrStateMismatch        = errors.New("booking is not in the expected state")
	ErrSlotTaken            = errors.New("slot already confirmed for another booking")
	ErrHallNotFound         = errors.New("hall not found")
	ErrHallExists           = errors.New("hall already exists")
	ErrHallInUse            = errors.New("hall has live bookings")
	ErrAnnouncementNotFound = errors.New("announcement not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailExists          = errors.New("email already exists")
)

const (
	errDuplicateEntry = 1062
	errLockDeadlock   = 1213
	errLockWait       = 1205
)

func mysqlCode(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	return mysqlCode(err) == errDuplicateEntry || strings.Contains(err.Error(), "1062")
}

// duplicateOn reports whether err is a duplicate-key error on the named index.
func duplicateOn(err error, index string) bool {
	return isDuplicateKey(err) && strings.Contains(err.Error(), index)
}

// retryable reports whether the transaction was aborted by InnoDB and
// can be replayed from the start.
func retryable(err error) bool {
	switch mysqlCode(err) {
	case errLockDeadlock, errLockWait:
		return true
	}
	return false
}
