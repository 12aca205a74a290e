package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/campus-hall-booking/internal/booking"
	"github.com/iliyamo/campus-hall-booking/internal/model"
	"github.com/iliyamo/campus-hall-booking/internal/repository"
	"github.com/iliyamo/campus-hall-booking/internal/repository/memory"
)

var ist = mustLoad("Asia/Kolkata")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// clock is 09:00 on Monday 2 March 2026, campus time.
var clock = time.Date(2026, 3, 2, 9, 0, 0, 0, ist)

const (
	today    = "2026-03-02"
	tomorrow = "2026-03-03"
)

var (
	alice = Actor{Email: "alice@campus.edu", Role: model.RoleUser}
	bob   = Actor{Email: "bob@campus.edu", Role: model.RoleUser}
	carol = Actor{Email: "carol@campus.edu", Role: model.RoleUser}
	admin = Actor{Email: "admin@campus.edu", Role: model.RoleAdmin}
)

type sentMail struct{ To, Subject, Body string }

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMail
}

func (n *recordingNotifier) Notify(_ context.Context, to, subject, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMail{to, subject, body})
}

func (n *recordingNotifier) subjects(to string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, m := range n.sent {
		if m.To == to {
			out = append(out, m.Subject)
		}
	}
	return out
}

type directory map[string]model.User

func (d directory) GetByEmail(_ context.Context, email string) (model.User, error) {
	u, ok := d[strings.ToLower(email)]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (d directory) ListNotifiable(context.Context) ([]model.User, error) {
	var out []model.User
	for _, u := range d {
		if u.Role == model.RoleUser && u.IsActive && u.IsVerified {
			out = append(out, u)
		}
	}
	return out, nil
}

func newDirectory() directory {
	d := directory{}
	for _, a := range []Actor{alice, bob, carol} {
		d[a.Email] = model.User{Email: a.Email, FirstName: strings.Split(a.Email, "@")[0], Role: model.RoleUser, IsActive: true, IsVerified: true}
	}
	d[admin.Email] = model.User{Email: admin.Email, FirstName: "Admin", Role: model.RoleAdmin, IsActive: true, IsVerified: true, Manages: []string{"A", "B"}}
	return d
}

type fixture struct {
	store    *memory.Store
	dir      directory
	notifier *recordingNotifier
	bookings *BookingService
	avail    *AvailabilityService
	halls    *HallService
	anns     *AnnouncementService
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	return newFixtureAt(t, clock)
}

func newFixtureAt(t *testing.T, now time.Time) *fixture {
	t.Helper()
	f := &fixture{
		store:    memory.New("A", "B", "C"),
		dir:      newDirectory(),
		notifier: &recordingNotifier{},
		now:      now,
	}
	nowFn := func() time.Time { return f.now }
	cal := booking.NewCalendar(ist, 30)
	f.bookings = NewBookingService(f.store.Bookings(), f.store.Halls(), f.dir, f.notifier, BookingOptions{Calendar: cal, Now: nowFn})
	f.avail = NewAvailabilityService(f.store.Halls(), f.store.Bookings(), cal, nowFn)
	f.halls = NewHallService(f.store.Halls(), f.store.Blocks(), f.dir, f.notifier, nil)
	f.anns = NewAnnouncementService(f.store.Announcements(), f.dir, f.notifier, nowFn, nil)

	ctx := context.Background()
	for _, h := range []model.Hall{
		{Name: "Seminar Hall 1", Block: "A", Capacity: 120},
		{Name: "Seminar Hall 2", Block: "A", Capacity: 80},
		{Name: "Auditorium", Block: "B", Capacity: 500},
	} {
		h := h
		require.NoError(t, f.store.Halls().Create(ctx, &h))
	}
	return f
}

var nextID int64 = 1000

func (f *fixture) submit(t *testing.T, who Actor, hall, date, slot string) *model.Booking {
	t.Helper()
	nextID++
	b, err := f.bookings.Submit(context.Background(), who, SubmitRequest{
		BookingID: nextID, HallName: hall, Date: date, Slot: slot, EventName: "Talk",
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) state(t *testing.T, id int64) model.BookingState {
	t.Helper()
	b, err := f.store.Bookings().GetByID(context.Background(), id)
	require.NoError(t, err)
	return b.State
}
