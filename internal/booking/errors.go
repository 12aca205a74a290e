package booking

import "errors"

// Kind classifies a domain error so transports can map it to a status.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindConflict
	KindNotFound
	KindForbidden
	KindInvalidTransition
)

// Error is a user-facing domain error.  Msg is safe to show to clients.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// Is matches two *Error values by kind and message so sentinels work
// with errors.Is even after copies.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Msg == e.Msg
}

func newErr(k Kind, msg string) *Error { return &Error{Kind: k, Msg: msg} }

// Validation returns a validation error with a custom message.
func Validation(msg string) error { return newErr(KindValidation, msg) }

// ConflictErr returns a conflict error with a custom message.
func ConflictErr(msg string) error { return newErr(KindConflict, msg) }

// NotFound returns a not-found error with a custom message.
func NotFound(msg string) error { return newErr(KindNotFound, msg) }

// Forbidden returns an authorization error with a custom message.
func Forbidden(msg string) error { return newErr(KindForbidden, msg) }

// KindOf extracts the Kind of err, or 0 when err is not a domain error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

var (
	ErrInvalidSlot    = newErr(KindValidation, "slot must be fn or an")
	ErrInvalidDate    = newErr(KindValidation, "date must be formatted as YYYY-MM-DD")
	ErrPastDate       = newErr(KindValidation, "cannot book a date in the past")
	ErrBeyondHorizon  = newErr(KindValidation, "date is beyond the booking window")
	ErrSlotElapsed    = newErr(KindValidation, "this slot has already elapsed for today")
	ErrNoteRequired   = newErr(KindValidation, "a cancellation note is required")
	ErrInvalidFlags   = newErr(KindValidation, "status flags do not describe a valid booking state")
	ErrInvalidPoster  = newErr(KindValidation, "invalid image format, only image files are allowed")
	ErrPosterTooLarge = newErr(KindValidation, "poster image is too large")

	ErrSlotBooked       = newErr(KindConflict, "This slot has already been booked")
	ErrSlotPending      = newErr(KindConflict, "This slot has a pending request under review")
	ErrOwnConfirmed     = newErr(KindConflict, "Booking already exists")
	ErrOwnBlocked       = newErr(KindConflict, "You have already booked this slot and it's currently blocked")
	ErrOwnPending       = newErr(KindConflict, "You have already booked this slot and it's pending approval")
	ErrUnblockConflict  = newErr(KindConflict, "This slot has been booked and cannot be unblocked")
	ErrDuplicateBooking = newErr(KindConflict, "a booking with this id already exists")
	ErrVerifiedByOther  = newErr(KindConflict, "another booking for this slot has already been verified")

	ErrBookingNotFound = newErr(KindNotFound, "booking not found")
	ErrHallNotFound    = newErr(KindNotFound, "hall not found")
	ErrHallUnavailable = newErr(KindValidation, "hall is currently blocked for bookings")

	ErrNotOwner = newErr(KindForbidden, "you can only cancel your own bookings")
)
