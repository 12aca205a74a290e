// Package memory provides in-process stores with the same semantics as
// the MySQL repositories.  A single mutex makes every write, together
// with the checks it depends on, atomic.  The service tests and the
// HTTP handler tests run against it.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/iliyamo/campus-hall-booking/internal/booking"
	"github.com/iliyamo/campus-hall-booking/internal/model"
	"github.com/iliyamo/campus-hall-booking/internal/repository"
)

// Store holds halls, bookings, announcements and the block catalogue.
type Store struct {
	mu            sync.Mutex
	halls         map[string]model.Hall
	bookings      map[int64]model.Booking
	announcements map[uint64]model.Announcement
	blocks        []string
	nextAnnID     uint64
	users         map[string]model.User
	nextUserID    uint64
	tokens        map[string]refreshToken
}

// New returns an empty store seeded with the given blocks.
func New(blocks ...string) *Store {
	return &Store{
		halls:         map[string]model.Hall{},
		bookings:      map[int64]model.Booking{},
		announcements: map[uint64]model.Announcement{},
		blocks:        append([]string(nil), blocks...),
		users:         map[string]model.User{},
		tokens:        map[string]refreshToken{},
	}
}

// Each view below wraps one Store and is
// shaped like the matching MySQL repository.
type (
	Bookings      struct{ *Store }
	Halls         struct{ *Store }
	Announcements struct{ *Store }
	Blocks        struct{ *Store }
	Users         struct{ *Store }
	Tokens        struct{ *Store }
)

func (s *Store) Bookings() Bookings           { return Bookings{s} }
func (s *Store) Halls() Halls                 { return Halls{s} }
func (s *Store) Announcements() Announcements { return Announcements{s} }
func (s *Store) Blocks() Blocks               { return Blocks{s} }
func (s *Store) Users() Users                 { return Users{s} }
func (s *Store) Tokens() Tokens               { return Tokens{s} }

// ---- bookings ----

func (v Bookings) Create(_ context.Context, b *model.Booking, admit func([]model.Booking) error) error {
	s := v.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	mates := s.slotLocked(b.HallName, b.Date, b.Slot, 0)
	if admit != nil {
		if err := admit(mates); err != nil {
			return err
		}
	}
	if _, ok := s.bookings[b.BookingID]; ok {
		return repository.ErrDuplicateBookingID
	}
	if b.State == model.StateConfirmed && s.confirmedLocked(*b, 0) {
		return repository.ErrSlotTaken
	}
	s.bookings[b.BookingID] = *b
	return nil
}

func (v Bookings) Transition(_ context.Context, t booking.Transition) (*model.Booking, error) {
	s := v.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.bookings[t.ID]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	snapshot := cur
	if !t.Matches(cur.State) {
		return &snapshot, repository.ErrStateMismatch
	}
	if t.Guard != nil {
		if err := t.Guard(s.slotLocked(cur.HallName, cur.Date, cur.Slot, cur.BookingID)); err != nil {
			return &snapshot, err
		}
	}
	next := cur
	t.Apply(&next)
	if next.State == model.StateConfirmed && s.confirmedLocked(next, next.BookingID) {
		return &snapshot, repository.ErrSlotTaken
	}
	s.bookings[t.ID] = next
	return &next, nil
}

func (v Bookings) GetByID(_ context.Context, id int64) (*model.Booking, error) {
	s := v.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	b = s.decorateLocked(b)
	return &b, nil
}

func (v Bookings) ListBySlot(_ context.Context, hall, date string, slot model.Slot) ([]model.Booking, error) {
	s := v.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slotLocked(hall, date, slot, 0), nil
}

func (v Bookings) ListOccupiedHalls(_ context.Context, date string, slot model.Slot) ([]string, error) {
	s := v.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, b := range s.bookings {
		if b.Date == date && b.Slot == slot && b.State == model.StateConfirmed && !seen[b.HallName] {
			seen[b.HallName] = true
			out = append(out, b.HallName)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (v Bookings) List(_ context.Context, f repository.BookingFilter) ([]model.Booking, error) {
	s := v.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Booking
	for _, b := range s.bookings {
		if f.HallName != "" && b.HallName != f.HallName {
			continue
		}
		if f.Email != "" && !strings.EqualFold(b.BookingEmail, f.Email) {
			continue
		}
		if len(f.States) > 0 && !hasState(f.States, b.State) {
			continue
		}
		out = append(out, s.decorateLocked(b))
	}
	sortBookings(out)
	return out, nil
}

func (s *Store) slotLocked(hall, date string, slot model.Slot, exclude int64) []model.Booking {
	var out []model.Booking
	for _, b := range s.bookings {
		if b.HallName == hall && b.Date == date && b.Slot == slot && b.BookingID != exclude {
			out = append(out, b)
		}
	}
	sortBookings(out)
	return out
}

// confirmedLocked mirrors the unique confirmed_slot index.
func (s *Store) confirmedLocked(b model.Booking, exclude int64) bool {
	for _, o := range s.bookings {
		if o.BookingID != exclude && o.State == model.StateConfirmed && o.SameSlot(b) {
			return true
		}
	}
	return false
}

func (s *Store) decorateLocked(b model.Booking) model.Booking {
	_, ok := s.halls[b.HallName]
	b.HallRemoved = !ok
	return b
}

// ---- halls ----

func (v Halls) Create(_ context.Context, h *model.Hall) error {
	s := v.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.halls[h.Name]; ok {
		return repository.ErrHallExists
	}
	s.halls[h.Name] = *h
	return nil
}

func (v Halls) Get(_ context.Context, name string) (*model.Hall, error) {
	s := v.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.halls[name]
	if !ok {
		return nil, repository.ErrHallNotFound
	}
	return &h, nil
}

func (v Halls) List(_ context.Context, f repository.HallFilter) ([]model.Hall, error) {
	s := v.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Hall
	for _, h := range s.halls {
		if f.Block != "" && h.Block != f.Block {
			continue
		}
		if !f.IncludeBlocked && h.BlockStatus {
			continue
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Block != out[j].Block {
			return out[i].Block < out[j].Block
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (v Halls) Update(_ context.Context, h *model.Hall) error {
	s := v.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.halls[h.Name]
	if !ok {
		return repository.ErrHallNotFound
	}
	h.BlockStatus = cur.BlockStatus
	h.CreatedAt = cur.CreatedAt
	s.halls[h.Name] = *h
	return nil
}

func (v Halls) SetBlockStatus(_ context.Context, name string, blocked bool) error {
	s := v.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.halls[name]
	if !ok {
		return repository.ErrHallNotFound
	}
	h.BlockStatus = blocked
	s.halls[name] = h
	return nil
}

func (v Halls) Delete(_ context.Context, name string) error {
	s := v.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.halls[name]; !ok {
		return repository.ErrHallNotFound
	}
	for _, b := range s.bookings {
		if b.HallName != name {
			continue
		}
		switch b.State {
		case model.StatePending, model.StateConfirmed, model.StateCancelledByAdmin:
			return repository.ErrHallInUse
		}
	}
	delete(s.halls, name)
	return nil
}

// List returns the block catalogue.
func (v Blocks) List(context.Context) ([]string, error) {
	s := v.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.blocks...), nil
}

// ---- announcements ----

func (v Announcements) Create(_ context.Context, a *model.Announcement) error {
	s := v.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextAnnID++
	a.ID = s.nextAnnID
	s.announcements[a.ID] = *a
	return nil
}

func (v Announcements) Get(_ context.Context, id uint64) (*model.Announcement, error) {
	s := v.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.announcements[id]
	if !ok {
		return nil, repository.ErrAnnouncementNotFound
	}
	return &a, nil
}

func (v Announcements) List(context.Context) ([]model.Announcement, error) {
	s := v.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Announcement, 0, len(s.announcements))
	for _, a := range s.announcements {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (v Announcements) Delete(_ context.Context, id uint64) error {
	s := v.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.announcements[id]; !ok {
		return repository.ErrAnnouncementNotFound
	}
	delete(s.announcements, id)
	return nil
}

func hasState(states []model.BookingState, s model.BookingState) bool {
	for _, v := range states {
		if v == s {
			return true
		}
	}
	return false
}

func sortBookings(bs []model.Booking) {
	sort.Slice(bs, func(i, j int) bool {
		a, b := bs[i], bs[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Slot != b.Slot {
			// fn sorts before an
			return a.Slot == model.SlotForenoon
		}
		if !a.DateOfBooking.Equal(b.DateOfBooking) {
			return a.DateOfBooking.Before(b.DateOfBooking)
		}
		return a.BookingID < b.BookingID
	})
}
