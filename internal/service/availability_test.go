package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/campus-hall-booking/internal/booking"
	"github.com/iliyamo/campus-hall-booking/internal/model"
)

func hallNames(hs []model.Hall) []string {
	out := make([]string, 0, len(hs))
	for _, h := range hs {
		out = append(out, h.Name)
	}
	return out
}

func TestListAvailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	all, err := f.avail.ListAvailable(ctx, tomorrow, "fn", "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Seminar Hall 1", "Seminar Hall 2", "Auditorium"}, hallNames(all))

	// Pending requests do not occupy a hall; confirmed ones do.
	b := f.submit(t, alice, "Seminar Hall 1", tomorrow, "fn")
	all, err = f.avail.ListAvailable(ctx, tomorrow, "fn", "")
	require.NoError(t, err)
	assert.Contains(t, hallNames(all), "Seminar Hall 1")

	_, err = f.bookings.Verify(ctx, admin, b.BookingID, "")
	require.NoError(t, err)
	require.NoError(t, f.store.Halls().SetBlockStatus(ctx, "Seminar Hall 2", true))

	blockA, err := f.avail.ListAvailable(ctx, tomorrow, "fn", "A")
	require.NoError(t, err)
	assert.Empty(t, blockA)
	assert.NotNil(t, blockA)

	other, err := f.avail.ListAvailable(ctx, tomorrow, "an", "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"Seminar Hall 1"}, hallNames(other))

	// An admin block frees the hall again.
	_, err = f.bookings.Block(ctx, admin, b.BookingID)
	require.NoError(t, err)
	blockA, err = f.avail.ListAvailable(ctx, tomorrow, "fn", "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"Seminar Hall 1"}, hallNames(blockA))
}

func TestListAvailableRejectsClosedSlots(t *testing.T) {
	f := newFixtureAt(t, time.Date(2026, 3, 2, 13, 0, 0, 0, ist))
	ctx := context.Background()

	_, err := f.avail.ListAvailable(ctx, today, "fn", "")
	assert.ErrorIs(t, err, booking.ErrSlotElapsed)

	_, err = f.avail.ListAvailable(ctx, "2026-03-01", "an", "")
	assert.ErrorIs(t, err, booking.ErrPastDate)

	_, err = f.avail.ListAvailable(ctx, today, "xx", "")
	assert.ErrorIs(t, err, booking.ErrInvalidSlot)

	halls, err := f.avail.ListAvailable(ctx, today, "an", "B")
	require.NoError(t, err)
	assert.Equal(t, []string{"Auditorium"}, hallNames(halls))
}

// Bookings far ahead are still queryable; the horizon only limits submission.
func TestListAvailableIgnoresHorizon(t *testing.T) {
	f := newFixture(t)
	halls, err := f.avail.ListAvailable(context.Background(), "2026-12-01", "an", "B")
	require.NoError(t, err)
	assert.Len(t, halls, 1)
}
