package booking

import (
	"time"

	"github.com/iliyamo/campus-hall-booking/internal/model"
)

// Patch carries the annotation columns written together with a state
// change.  Zero values leave the stored column untouched.
type Patch struct {
	AcceptanceNote   *string
	RejectionNote    *string
	CancellationNote *string
	CancelledBy      *string
	At               time.Time
}

// Transition is a conditional state change: it applies only while the
// booking is in one of From, and only if Guard (when set) accepts the
// other bookings of the same slot at the moment of the write.
type Transition struct {
	ID    int64
	From  []model.BookingState
	To    model.BookingState
	Patch Patch
	Guard Guard
}

// Matches reports whether s satisfies the From predicate.
func (t Transition) Matches(s model.BookingState) bool {
	for _, f := range t.From {
		if f == s {
			return true
		}
	}
	return false
}

// Apply writes the new state and annotations onto b.
func (t Transition) Apply(b *model.Booking) {
	b.State = t.To
	at := t.Patch.At
	if t.Patch.AcceptanceNote != nil {
		b.AcceptanceNote = *t.Patch.AcceptanceNote
		b.AcceptanceNoteDate = &at
	}
	if t.Patch.RejectionNote != nil {
		b.RejectionNote = *t.Patch.RejectionNote
		b.RejectionNoteDate = &at
	}
	if t.Patch.CancellationNote != nil {
		b.CancellationNote = *t.Patch.CancellationNote
		b.CancellationDate = &at
	}
	if t.Patch.CancelledBy != nil {
		b.CancelledBy = *t.Patch.CancelledBy
	}
}
