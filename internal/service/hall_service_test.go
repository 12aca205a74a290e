package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/campus-hall-booking/internal/booking"
	"github.com/iliyamo/campus-hall-booking/internal/model"
)

func TestHallCreateRespectsManagedBlocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	h, err := f.halls.Create(ctx, admin, HallInput{Name: " Lab 1 ", Block: "B", Capacity: 40, ProjectorAvailable: true, ProjectorCount: 1})
	require.NoError(t, err)
	assert.Equal(t, "Lab 1", h.Name)
	assert.Contains(t, f.notifier.subjects(alice.Email), "New Hall Added")
	assert.Empty(t, f.notifier.subjects(admin.Email))

	_, err = f.halls.Create(ctx, admin, HallInput{Name: "Lab 2", Block: "C"})
	assert.Equal(t, booking.KindForbidden, booking.KindOf(err))
	assert.EqualError(t, err, "You can only add halls in blocks you manage")

	_, err = f.halls.Create(ctx, alice, HallInput{Name: "Lab 3", Block: "A"})
	assert.Equal(t, booking.KindForbidden, booking.KindOf(err))

	_, err = f.halls.Create(ctx, admin, HallInput{Name: "Lab 1", Block: "B"})
	assert.Equal(t, booking.KindConflict, booking.KindOf(err))

	_, err = f.halls.Create(ctx, admin, HallInput{Name: "", Block: "B"})
	assert.Equal(t, booking.KindValidation, booking.KindOf(err))
}

func TestHallCreateRefusedForInactiveAdmin(t *testing.T) {
	f := newFixture(t)
	u := f.dir[admin.Email]
	u.IsActive = false
	f.dir[admin.Email] = u
	_, err := f.halls.Create(context.Background(), admin, HallInput{Name: "Lab 1", Block: "A"})
	assert.Equal(t, booking.KindForbidden, booking.KindOf(err))
}

func TestHallUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	h, err := f.halls.Update(ctx, admin, "Auditorium", HallInput{Capacity: 550, Location: "Ground floor", LaptopCharging: true})
	require.NoError(t, err)
	assert.Equal(t, 550, h.Capacity)
	assert.Equal(t, "B", h.Block)
	assert.True(t, h.LaptopCharging)

	_, err = f.halls.Update(ctx, admin, "Auditorium", HallInput{Block: "C"})
	assert.Equal(t, booking.KindForbidden, booking.KindOf(err))

	_, err = f.halls.Update(ctx, admin, "Nowhere", HallInput{})
	assert.ErrorIs(t, err, booking.ErrHallNotFound)
}

func TestHallToggleBlockAndListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	h, err := f.halls.ToggleBlock(ctx, admin, "Seminar Hall 2")
	require.NoError(t, err)
	assert.True(t, h.BlockStatus)

	visible, err := f.halls.List(ctx, "A", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Seminar Hall 1"}, hallNames(visible))

	withBlocked, err := f.halls.List(ctx, "A", true)
	require.NoError(t, err)
	assert.Len(t, withBlocked, 2)

	_, err = f.bookings.Submit(ctx, alice, SubmitRequest{HallName: "Seminar Hall 2", Date: tomorrow, Slot: "fn"})
	assert.ErrorIs(t, err, booking.ErrHallUnavailable)

	h, err = f.halls.ToggleBlock(ctx, admin, "Seminar Hall 2")
	require.NoError(t, err)
	assert.False(t, h.BlockStatus)

	blocks, err := f.halls.Blocks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, blocks)
}

func TestHallDeleteRefusedWithLiveBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.submit(t, alice, "Seminar Hall 1", tomorrow, "fn")

	err := f.halls.Delete(ctx, admin, "Seminar Hall 1")
	assert.Equal(t, booking.KindConflict, booking.KindOf(err))

	_, err = f.bookings.Reject(ctx, admin, b.BookingID, "")
	require.NoError(t, err)
	require.NoError(t, f.halls.Delete(ctx, admin, "Seminar Hall 1"))

	_, err = f.halls.Get(ctx, "Seminar Hall 1")
	assert.ErrorIs(t, err, booking.ErrHallNotFound)

	// Historical bookings survive and are flagged.
	mine, err := f.bookings.ListForUser(ctx, alice, alice.Email)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.True(t, mine[0].HallRemoved)
	assert.Equal(t, model.StateRejected, mine[0].State)
}
