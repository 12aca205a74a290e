package model

import "time"

// BookingState is the lifecycle state of a booking.  It replaces the
// three independent status flags (active, verify, reject) with one
// closed set of values; the flags are still derived for API clients.
type BookingState string

const (
	StatePending          BookingState = "PENDING"            // awaiting an admin decision
	StateConfirmed        BookingState = "CONFIRMED"          // verified; occupies the slot
	StateRejected         BookingState = "REJECTED"           // refused by an admin (terminal)
	StateCancelledByUser  BookingState = "CANCELLED_BY_USER"  // withdrawn by the owner (terminal)
	StateCancelledByAdmin BookingState = "CANCELLED_BY_ADMIN" // admin-blocked; reversible via unblock
)

// Slot is one of the two fixed daily booking windows.
type Slot string

const (
	SlotForenoon  Slot = "fn" // FN: 10:00 - 13:00 campus time
	SlotAfternoon Slot = "an" // AN: 13:40 - 16:40 campus time
)

// Booking mirrors a row of the `bookings` table.
//
// Fields:
//
//	BookingID        – caller supplied unique identifier (usually a millisecond timestamp).
//	HallName         – name of the booked hall; the hall may since have been removed.
//	Date             – calendar date of the event formatted as YYYY-MM-DD.
//	Slot             – fn or an.
//	BookingEmail     – email of the requesting user; the owner of the record.
//	State            – lifecycle state.
//	EventName        – short event title.
//	EventDescription – free text description of the event.
//	PosterImage      – optional data:image/... URL.
//	*Note / *Date    – admin or owner annotations with the instant they were written.
//	CancelledBy      – email of the actor that cancelled the booking.
//	DateOfBooking    – instant the booking was created (UTC).
//	FormattedDate    – Date rendered as DD/MM/YYYY for display.
//	HallRemoved      – set on read when the referenced hall no longer exists.
type Booking struct {
	BookingID          int64        `json:"bookingID"`
	HallName           string       `json:"hallname"`
	Date               string       `json:"date"`
	Slot               Slot         `json:"slot"`
	BookingEmail       string       `json:"bookingEmail"`
	State              BookingState `json:"state"`
	EventName          string       `json:"eventName"`
	EventDescription   string       `json:"eventDescription"`
	PosterImage        string       `json:"posterImage,omitempty"`
	AcceptanceNote     string       `json:"acceptanceNote,omitempty"`
	AcceptanceNoteDate *time.Time   `json:"acceptanceNoteDate,omitempty"`
	RejectionNote      string       `json:"rejectionNote,omitempty"`
	RejectionNoteDate  *time.Time   `json:"rejectionNoteDate,omitempty"`
	CancellationNote   string       `json:"cancellationNote,omitempty"`
	CancellationDate   *time.Time   `json:"cancellationDate,omitempty"`
	CancelledBy        string       `json:"cancelledBy,omitempty"`
	DateOfBooking      time.Time    `json:"dateOfBooking"`
	FormattedDate      string       `json:"formattedDate"`
	HallRemoved        bool         `json:"hallRemoved,omitempty"`
}

// SameSlot reports whether two bookings target the same (hall, date, slot).
func (b Booking) SameSlot(o Booking) bool {
	return b.HallName == o.HallName && b.Date == o.Date && b.Slot == o.Slot
}
