//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/iliyamo/campus-hall-booking/internal/booking"
	"github.com/iliyamo/campus-hall-booking/internal/database"
	"github.com/iliyamo/campus-hall-booking/internal/model"
	"github.com/iliyamo/campus-hall-booking/internal/repository"
	"github.com/iliyamo/campus-hall-booking/internal/service"
)

// setupMySQL starts a MySQL container, applies the schema and returns the
// booking and hall repositories.
func setupMySQL(t *testing.T) (*repository.BookingRepo, *repository.HallRepo) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mysql:8.0",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "test",
			"MYSQL_DATABASE":      "halls",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").
			WithStartupTimeout(120 * time.Second),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start MySQL container")
	t.Cleanup(func() {
		if err := c.Terminate(ctx); err != nil {
			t.Logf("failed to terminate MySQL container: %v", err)
		}
	})

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "3306")
	require.NoError(t, err)

	db, err := database.Open("root", "test", host, port.Port(), "halls")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(ctx, db))

	halls := repository.NewHallRepo(db)
	require.NoError(t, halls.Create(ctx, &model.Hall{Name: "Seminar Hall 1", Block: "A", Capacity: 120}))
	return repository.NewBookingRepo(db), halls
}

func pending(id int64, email string) *model.Booking {
	return &model.Booking{
		BookingID:     id,
		HallName:      "Seminar Hall 1",
		Date:          "2030-01-15",
		Slot:          model.SlotForenoon,
		BookingEmail:  email,
		State:         model.StatePending,
		EventName:     "Seminar",
		DateOfBooking: time.Now().UTC(),
	}
}

func TestMySQLConcurrentVerifyConfirmsOne(t *testing.T) {
	bookings, halls := setupMySQL(t)
	ctx := context.Background()

	const n = 8
	for i := 0; i < n; i++ {
		b := pending(int64(100+i), fmt.Sprintf("user%d@campus.edu", i))
		require.NoError(t, bookings.Create(ctx, b, func(mates []model.Booking) error {
			return booking.Admit(b.BookingEmail, mates)
		}))
	}

	svc := service.NewBookingService(bookings, halls, nil, nil, service.BookingOptions{})
	admin := service.Actor{Email: "admin@campus.edu", Role: model.RoleAdmin}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		confirmed int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			out, err := svc.Verify(ctx, admin, id, "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && out.Changed:
				confirmed++
			case booking.KindOf(err) == booking.KindConflict:
				conflicts++
			default:
				t.Errorf("verify %d: unexpected result %+v, %v", id, out, err)
			}
		}(int64(100 + i))
	}
	wg.Wait()

	assert.Equal(t, 1, confirmed)
	assert.Equal(t, n-1, conflicts)

	all, err := bookings.List(ctx, repository.BookingFilter{States: []model.BookingState{model.StateConfirmed}})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMySQLUnblockRefusedWhileSlotHeld(t *testing.T) {
	bookings, halls := setupMySQL(t)
	ctx := context.Background()
	svc := service.NewBookingService(bookings, halls, nil, nil, service.BookingOptions{})
	admin := service.Actor{Email: "admin@campus.edu", Role: model.RoleAdmin}

	require.NoError(t, bookings.Create(ctx, pending(1, "a@campus.edu"), nil))
	_, err := svc.Verify(ctx, admin, 1, "ok")
	require.NoError(t, err)
	_, err = svc.Block(ctx, admin, 1)
	require.NoError(t, err)

	require.NoError(t, bookings.Create(ctx, pending(2, "b@campus.edu"), nil))
	_, err = svc.Verify(ctx, admin, 2, "")
	require.NoError(t, err)

	_, err = svc.Unblock(ctx, admin, 1)
	assert.ErrorIs(t, err, booking.ErrUnblockConflict)

	b, err := bookings.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.StateCancelledByAdmin, b.State)
}

func TestMySQLDuplicateBookingID(t *testing.T) {
	bookings, _ := setupMySQL(t)
	ctx := context.Background()
	require.NoError(t, bookings.Create(ctx, pending(7, "a@campus.edu"), nil))
	err := bookings.Create(ctx, pending(7, "b@campus.edu"), nil)
	assert.ErrorIs(t, err, repository.ErrDuplicateBookingID)
}
