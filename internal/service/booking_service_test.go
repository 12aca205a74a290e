package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/campus-hall-booking/internal/booking"
	"github.com/iliyamo/campus-hall-booking/internal/model"
)

func TestSubmitCreatesPendingBooking(t *testing.T) {
	f := newFixture(t)
	b := f.submit(t, alice, "Seminar Hall 1", tomorrow, "fn")

	assert.Equal(t, model.StatePending, b.State)
	assert.Equal(t, "03/03/2026", b.FormattedDate)
	assert.Equal(t, alice.Email, b.BookingEmail)
	assert.Equal(t, []string{"Booking Confirmation - Awaiting Admin Approval"}, f.notifier.subjects(alice.Email))
}

func TestSubmitDerivesIDFromClock(t *testing.T) {
	f := newFixture(t)
	b, err := f.bookings.Submit(context.Background(), alice, SubmitRequest{HallName: "Auditorium", Date: tomorrow, Slot: "an"})
	require.NoError(t, err)
	assert.Equal(t, clock.UnixMilli(), b.BookingID)
}

func TestSubmitDerivedIDsDoNotCollide(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.bookings.Submit(ctx, alice, SubmitRequest{HallName: "Auditorium", Date: tomorrow, Slot: "fn"})
	require.NoError(t, err)
	second, err := f.bookings.Submit(ctx, bob, SubmitRequest{HallName: "Seminar Hall 1", Date: tomorrow, Slot: "an"})
	require.NoError(t, err)
	third, err := f.bookings.Submit(ctx, carol, SubmitRequest{HallName: "Seminar Hall 2", Date: tomorrow, Slot: "fn"})
	require.NoError(t, err)

	assert.Equal(t, clock.UnixMilli(), first.BookingID)
	assert.Equal(t, clock.UnixMilli()+1, second.BookingID)
	assert.Equal(t, clock.UnixMilli()+2, third.BookingID)
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Halls().SetBlockStatus(ctx, "Auditorium", true))

	cases := []struct {
		name string
		who  Actor
		req  SubmitRequest
		want error
	}{
		{"bad slot", alice, SubmitRequest{HallName: "Seminar Hall 1", Date: tomorrow, Slot: "ev"}, booking.ErrInvalidSlot},
		{"bad date", alice, SubmitRequest{HallName: "Seminar Hall 1", Date: "03/03/2026", Slot: "fn"}, booking.ErrInvalidDate},
		{"past date", alice, SubmitRequest{HallName: "Seminar Hall 1", Date: "2026-03-01", Slot: "fn"}, booking.ErrPastDate},
		{"beyond horizon", alice, SubmitRequest{HallName: "Seminar Hall 1", Date: "2026-04-02", Slot: "fn"}, booking.ErrBeyondHorizon},
		{"unknown hall", alice, SubmitRequest{HallName: "Nowhere", Date: tomorrow, Slot: "fn"}, booking.ErrHallNotFound},
		{"blocked hall", alice, SubmitRequest{HallName: "Auditorium", Date: tomorrow, Slot: "fn"}, booking.ErrHallUnavailable},
		{"bad poster", alice, SubmitRequest{HallName: "Seminar Hall 1", Date: tomorrow, Slot: "fn", PosterImage: "data:text/plain;base64,aGk="}, booking.ErrInvalidPoster},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.bookings.Submit(ctx, tc.who, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := f.bookings.Submit(ctx, alice, SubmitRequest{BookingEmail: bob.Email, HallName: "Seminar Hall 1", Date: tomorrow, Slot: "fn"})
	assert.Equal(t, booking.KindForbidden, booking.KindOf(err))
}

func TestSubmitPosterSizeLimit(t *testing.T) {
	f := newFixture(t)
	f.bookings.posterMax = 64
	_, err := f.bookings.Submit(context.Background(), alice, SubmitRequest{
		HallName: "Seminar Hall 1", Date: tomorrow, Slot: "fn",
		PosterImage: "data:image/png;base64," + strings.Repeat("A", 100),
	})
	assert.ErrorIs(t, err, booking.ErrPosterTooLarge)
}

func TestSubmitDuplicateID(t *testing.T) {
	f := newFixture(t)
	b := f.submit(t, alice, "Seminar Hall 1", tomorrow, "fn")
	_, err := f.bookings.Submit(context.Background(), bob, SubmitRequest{BookingID: b.BookingID, HallName: "Auditorium", Date: tomorrow, Slot: "fn"})
	assert.ErrorIs(t, err, booking.ErrDuplicateBooking)
}

func TestSubmitTodayAfterCutoff(t *testing.T) {
	f := newFixtureAt(t, clock.Add(4*time.Hour)) // 13:00 campus time
	_, err := f.bookings.Submit(context.Background(), alice, SubmitRequest{HallName: "Seminar Hall 1", Date: today, Slot: "fn"})
	assert.ErrorIs(t, err, booking.ErrSlotElapsed)

	b := f.submit(t, alice, "Seminar Hall 1", today, "an")
	assert.Equal(t, model.StatePending, b.State)
}

// Two users request the same slot; the first verify wins, the second
// verify and any later submission are refused.
func TestConcurrentRequestsFirstVerifyWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b1 := f.submit(t, alice, "Seminar Hall 1", tomorrow, "fn")
	b2 := f.submit(t, bob, "Seminar Hall 1", tomorrow, "fn")

	out, err := f.bookings.Verify(ctx, admin, b1.BookingID, "Approved")
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.Equal(t, model.StateConfirmed, out.Booking.State)
	assert.Equal(t, "Approved", out.Booking.AcceptanceNote)

	_, err = f.bookings.Verify(ctx, admin, b2.BookingID, "")
	assert.ErrorIs(t, err, booking.ErrVerifiedByOther)
	assert.Equal(t, model.StatePending, f.state(t, b2.BookingID))

	_, err = f.bookings.Submit(ctx, carol, SubmitRequest{HallName: "Seminar Hall 1", Date: tomorrow, Slot: "fn"})
	assert.ErrorIs(t, err, booking.ErrSlotBooked)

	conflict, err := f.bookings.CheckConflict(ctx, "Seminar Hall 1", tomorrow, "fn")
	require.NoError(t, err)
	assert.True(t, conflict.Conflict)
	assert.Equal(t, booking.ConflictConfirmed, conflict.Kind)
}

// A blocked booking cannot be restored while another request holds the slot.
func TestUnblockRefusedWhileSlotHeld(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b1 := f.submit(t, alice, "Auditorium", tomorrow, "an")
	_, err := f.bookings.Verify(ctx, admin, b1.BookingID, "")
	require.NoError(t, err)

	out, err := f.bookings.Block(ctx, admin, b1.BookingID)
	require.NoError(t, err)
	assert.Equal(t, model.StateCancelledByAdmin, out.Booking.State)
	assert.Contains(t, f.notifier.subjects(alice.Email), "Booking Blocked by Admin")

	b2 := f.submit(t, bob, "Auditorium", tomorrow, "an")

	_, err = f.bookings.Unblock(ctx, admin, b1.BookingID)
	assert.ErrorIs(t, err, booking.ErrUnblockConflict)
	assert.Equal(t, model.StateCancelledByAdmin, f.state(t, b1.BookingID))

	_, err = f.bookings.Reject(ctx, admin, b2.BookingID, "slot reserved")
	require.NoError(t, err)

	out, err = f.bookings.Unblock(ctx, admin, b1.BookingID)
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.Equal(t, model.StateConfirmed, f.state(t, b1.BookingID))
}

func TestUnblockRefusedWhenAnotherConfirmed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b1 := f.submit(t, alice, "Auditorium", tomorrow, "fn")
	_, err := f.bookings.Verify(ctx, admin, b1.BookingID, "")
	require.NoError(t, err)
	_, err = f.bookings.Block(ctx, admin, b1.BookingID)
	require.NoError(t, err)

	b2 := f.submit(t, bob, "Auditorium", tomorrow, "fn")
	_, err = f.bookings.Verify(ctx, admin, b2.BookingID, "")
	require.NoError(t, err)

	_, err = f.bookings.ToggleBlock(ctx, admin, b1.BookingID)
	assert.ErrorIs(t, err, booking.ErrUnblockConflict)
}

// Cancelling frees the slot for the same user to ask again.
func TestCancelThenResubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b1 := f.submit(t, alice, "Seminar Hall 2", tomorrow, "fn")

	_, err := f.bookings.Submit(ctx, alice, SubmitRequest{HallName: "Seminar Hall 2", Date: tomorrow, Slot: "fn"})
	assert.ErrorIs(t, err, booking.ErrOwnPending)

	_, err = f.bookings.Cancel(ctx, alice, b1.BookingID, "   ")
	assert.ErrorIs(t, err, booking.ErrNoteRequired)

	_, err = f.bookings.Cancel(ctx, bob, b1.BookingID, "not mine")
	assert.ErrorIs(t, err, booking.ErrNotOwner)

	out, err := f.bookings.Cancel(ctx, alice, b1.BookingID, "event postponed")
	require.NoError(t, err)
	assert.Equal(t, model.StateCancelledByUser, out.Booking.State)
	assert.Equal(t, alice.Email, out.Booking.CancelledBy)
	assert.Equal(t, "event postponed", out.Booking.CancellationNote)

	b2 := f.submit(t, alice, "Seminar Hall 2", tomorrow, "fn")
	assert.Equal(t, model.StatePending, b2.State)

	out, err = f.bookings.Cancel(ctx, alice, b1.BookingID, "again")
	require.NoError(t, err)
	assert.False(t, out.Changed)
}

func TestOwnConfirmedOrBlockedBookingBlocksResubmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.submit(t, alice, "Seminar Hall 1", tomorrow, "an")
	_, err := f.bookings.Verify(ctx, admin, b.BookingID, "")
	require.NoError(t, err)

	_, err = f.bookings.Submit(ctx, alice, SubmitRequest{HallName: "Seminar Hall 1", Date: tomorrow, Slot: "an"})
	assert.ErrorIs(t, err, booking.ErrOwnConfirmed)

	_, err = f.bookings.Block(ctx, admin, b.BookingID)
	require.NoError(t, err)
	_, err = f.bookings.Submit(ctx, alice, SubmitRequest{HallName: "Seminar Hall 1", Date: tomorrow, Slot: "an"})
	assert.ErrorIs(t, err, booking.ErrOwnBlocked)
}

func TestRejectedBookingDoesNotBlockOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.submit(t, alice, "Seminar Hall 1", tomorrow, "fn")
	_, err := f.bookings.Reject(ctx, admin, b.BookingID, "")
	require.NoError(t, err)
	f.submit(t, alice, "Seminar Hall 1", tomorrow, "fn")
}

func TestLifecycleIdempotenceAndNoResurrection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.submit(t, alice, "Seminar Hall 1", tomorrow, "fn")

	_, err := f.bookings.Verify(ctx, admin, b.BookingID, "")
	require.NoError(t, err)
	out, err := f.bookings.Verify(ctx, admin, b.BookingID, "")
	require.NoError(t, err)
	assert.False(t, out.Changed)
	assert.Equal(t, "Booking has already been verified", out.Message)

	_, err = f.bookings.Reject(ctx, admin, b.BookingID, "")
	assert.Equal(t, booking.KindInvalidTransition, booking.KindOf(err))

	_, err = f.bookings.Cancel(ctx, alice, b.BookingID, "changed my mind")
	assert.Equal(t, booking.KindInvalidTransition, booking.KindOf(err))

	r := f.submit(t, bob, "Auditorium", tomorrow, "fn")
	_, err = f.bookings.Reject(ctx, admin, r.BookingID, "no")
	require.NoError(t, err)
	out, err = f.bookings.Reject(ctx, admin, r.BookingID, "no")
	require.NoError(t, err)
	assert.False(t, out.Changed)
	_, err = f.bookings.Verify(ctx, admin, r.BookingID, "")
	assert.Equal(t, booking.KindInvalidTransition, booking.KindOf(err))
	assert.Equal(t, model.StateRejected, f.state(t, r.BookingID))

	out, err = f.bookings.Block(ctx, admin, r.BookingID)
	require.NoError(t, err)
	assert.False(t, out.Changed)
	assert.Equal(t, model.StateRejected, f.state(t, r.BookingID))
}

func TestOperationsOnMissingBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.bookings.Verify(ctx, admin, 42, "")
	assert.ErrorIs(t, err, booking.ErrBookingNotFound)
	_, err = f.bookings.Cancel(ctx, alice, 42, "note")
	assert.ErrorIs(t, err, booking.ErrBookingNotFound)
	_, err = f.bookings.ToggleBlock(ctx, admin, 42)
	assert.ErrorIs(t, err, booking.ErrBookingNotFound)
}

func TestConcurrentVerifyConfirmsExactlyOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var ids []int64
	for i := 0; i < 12; i++ {
		who := Actor{Email: "user" + string(rune('a'+i)) + "@campus.edu", Role: model.RoleUser}
		ids = append(ids, f.submit(t, who, "Auditorium", tomorrow, "fn").BookingID)
	}

	var wg sync.WaitGroup
	results := make(chan error, len(ids))
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := f.bookings.Verify(ctx, admin, id, "")
			results <- err
		}(id)
	}
	wg.Wait()
	close(results)

	var ok, lost int
	for err := range results {
		if err == nil {
			ok++
		} else if assert.ErrorIs(t, err, booking.ErrVerifiedByOther) {
			lost++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, len(ids)-1, lost)

	confirmed, err := f.bookings.ListConfirmed(ctx)
	require.NoError(t, err)
	assert.Len(t, confirmed, 1)
}

func TestCheckConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.bookings.CheckConflict(ctx, "Seminar Hall 1", tomorrow, "fn")
	require.NoError(t, err)
	assert.False(t, c.Conflict)

	f.submit(t, alice, "Seminar Hall 1", tomorrow, "fn")
	c, err = f.bookings.CheckConflict(ctx, "Seminar Hall 1", tomorrow, "fn")
	require.NoError(t, err)
	assert.True(t, c.Conflict)
	assert.Equal(t, booking.ConflictPending, c.Kind)

	_, err = f.bookings.CheckConflict(ctx, "Nowhere", tomorrow, "fn")
	assert.ErrorIs(t, err, booking.ErrHallNotFound)

	require.NoError(t, f.store.Halls().SetBlockStatus(ctx, "Auditorium", true))
	c, err = f.bookings.CheckConflict(ctx, "Auditorium", tomorrow, "an")
	require.NoError(t, err)
	assert.True(t, c.Conflict)
	assert.Equal(t, booking.ConflictBlocked, c.Kind)
	_, err = f.bookings.Submit(ctx, alice, SubmitRequest{HallName: "Auditorium", Date: tomorrow, Slot: "an"})
	assert.ErrorIs(t, err, booking.ErrHallUnavailable)

	f.now = clock.Add(4 * time.Hour)
	c, err = f.bookings.CheckConflict(ctx, "Seminar Hall 1", today, "fn")
	require.NoError(t, err)
	assert.True(t, c.Conflict)
	assert.Equal(t, booking.ConflictElapsed, c.Kind)
}

func TestListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b1 := f.submit(t, alice, "Seminar Hall 1", tomorrow, "fn")
	b2 := f.submit(t, bob, "Seminar Hall 1", tomorrow, "an")
	f.submit(t, bob, "Seminar Hall 1", "2026-03-04", "fn")
	_, err := f.bookings.Verify(ctx, admin, b1.BookingID, "")
	require.NoError(t, err)
	_, err = f.bookings.Reject(ctx, admin, b2.BookingID, "")
	require.NoError(t, err)

	public, err := f.bookings.ListForHall(ctx, bob, "Seminar Hall 1")
	require.NoError(t, err)
	assert.Len(t, public, 1)

	adminView, err := f.bookings.ListForHall(ctx, admin, "Seminar Hall 1")
	require.NoError(t, err)
	assert.Len(t, adminView, 2)

	mine, err := f.bookings.ListForUser(ctx, bob, "BOB@campus.edu")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = f.bookings.ListForUser(ctx, bob, alice.Email)
	assert.Equal(t, booking.KindForbidden, booking.KindOf(err))

	pending, err := f.bookings.ListAll(ctx, model.StatePending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	_, err = f.bookings.ListAll(ctx, model.BookingState("LOST"))
	assert.Equal(t, booking.KindValidation, booking.KindOf(err))
}
