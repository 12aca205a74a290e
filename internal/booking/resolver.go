package booking

import (
	"fmt"
	"strings"

	"github.com/iliyamo/campus-hall-booking/internal/model"
)

// ConflictKind names the reason a slot cannot take a new booking.
type ConflictKind string

const (
	ConflictNone      ConflictKind = ""
	ConflictConfirmed ConflictKind = "confirmed"
	ConflictPending   ConflictKind = "pending"
	ConflictElapsed   ConflictKind = "elapsed"
	ConflictBlocked   ConflictKind = "blocked"
)

// Conflict is the advisory answer for a (hall, date, slot) triple.
type Conflict struct {
	Conflict bool         `json:"conflict"`
	Kind     ConflictKind `json:"kind,omitempty"`
	Message  string       `json:"message"`
}

// Guard inspects the other bookings of a slot, read under lock inside
// the same transaction as the write, and vetoes the write by returning
// an error.
type Guard func(slotmates []model.Booking) error

// Classify applies the advisory decision order to the bookings of one
// slot: a confirmed booking wins over a pending one.
func Classify(hall, date string, slot model.Slot, slotmates []model.Booking) Conflict {
	label := strings.ToUpper(string(slot))
	var pending bool
	for _, b := range slotmates {
		switch b.State {
		case model.StateConfirmed:
			return Conflict{
				Conflict: true,
				Kind:     ConflictConfirmed,
				Message:  fmt.Sprintf("This slot is already booked. The %s slot for %s on %s is not available.", label, hall, date),
			}
		case model.StatePending:
			pending = true
		}
	}
	if pending {
		return Conflict{
			Conflict: true,
			Kind:     ConflictPending,
			Message:  fmt.Sprintf("This slot has a pending booking. The %s slot for %s on %s is currently under review.", label, hall, date),
		}
	}
	return Conflict{Message: "Slot is available for booking."}
}

// Elapsed is the advisory answer for a slot whose cutoff has passed.
func Elapsed(hall, date string, slot model.Slot) Conflict {
	return Conflict{
		Conflict: true,
		Kind:     ConflictElapsed,
		Message:  fmt.Sprintf("The %s slot for %s on %s has already elapsed.", strings.ToUpper(string(slot)), hall, date),
	}
}

// HallBlocked is the advisory answer for a hall an admin has closed to
// new bookings.
func HallBlocked(hall string) Conflict {
	return Conflict{
		Conflict: true,
		Kind:     ConflictBlocked,
		Message:  fmt.Sprintf("%s is currently blocked for bookings.", hall),
	}
}

// Admit decides whether requester may create a new booking given the
// current bookings of the slot.  The requester's own live bookings are
// checked first so the caller gets the most specific reason.  Pending
// bookings of other users do not prevent admission.
func Admit(requester string, slotmates []model.Booking) error {
	requester = strings.ToLower(requester)
	for _, b := range slotmates {
		if !strings.EqualFold(b.BookingEmail, requester) {
			continue
		}
		switch b.State {
		case model.StateConfirmed:
			return ErrOwnConfirmed
		case model.StateCancelledByAdmin:
			return ErrOwnBlocked
		case model.StatePending:
			return ErrOwnPending
		}
	}
	for _, b := range slotmates {
		if Occupies(b.State) {
			return ErrSlotBooked
		}
	}
	return nil
}

// NoOtherConfirmed vetoes the write when a booking other than id
// already occupies the slot.  Used when verifying.
func NoOtherConfirmed(id int64) Guard {
	return func(slotmates []model.Booking) error {
		for _, b := range slotmates {
			if b.BookingID != id && Occupies(b.State) {
				return ErrVerifiedByOther
			}
		}
		return nil
	}
}

// NoOtherHolder vetoes the write when another booking is confirmed or
// pending for the slot.  Used when unblocking: a fresh pending request
// that was admitted while this booking was blocked keeps the slot.
func NoOtherHolder(id int64) Guard {
	return func(slotmates []model.Booking) error {
		for _, b := range slotmates {
			if b.BookingID == id {
				continue
			}
			if b.State == model.StateConfirmed || b.State == model.StatePending {
				return ErrUnblockConflict
			}
		}
		return nil
	}
}
