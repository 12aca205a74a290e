// Package service holds the booking, hall and announcement use cases.
// Services depend on the small store interfaces below; the MySQL
// repositories and the in-memory stores both satisfy them.
package service

import (
	"context"
	"strings"

	"github.com/iliyamo/campus-hall-booking/internal/booking"
	"github.com/iliyamo/campus-hall-booking/internal/model"
	"github.com/iliyamo/campus-hall-booking/internal/repository"
)

// BookingStore is the booking system of record.  Create and Transition
// must be atomic with respect to the other bookings of the same slot.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking, admit func([]model.Booking) error) error
	Transition(ctx context.Context, t booking.Transition) (*model.Booking, error)
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	ListBySlot(ctx context.Context, hall, date string, slot model.Slot) ([]model.Booking, error)
	ListOccupiedHalls(ctx context.Context, date string, slot model.Slot) ([]string, error)
	List(ctx context.Context, f repository.BookingFilter) ([]model.Booking, error)
}

// HallStore persists halls.
type HallStore interface {
	Create(ctx context.Context, h *model.Hall) error
	Get(ctx context.Context, name string) (*model.Hall, error)
	List(ctx context.Context, f repository.HallFilter) ([]model.Hall, error)
	Update(ctx context.Context, h *model.Hall) error
	SetBlockStatus(ctx context.Context, name string, blocked bool) error
	Delete(ctx context.Context, name string) error
}

// BlockStore lists the administrative blocks.
type BlockStore interface {
	List(ctx context.Context) ([]string, error)
}

// AnnouncementStore persists announcements.
type AnnouncementStore interface {
	Create(ctx context.Context, a *model.Announcement) error
	Get(ctx context.Context, id uint64) (*model.Announcement, error)
	List(ctx context.Context) ([]model.Announcement, error)
	Delete(ctx context.Context, id uint64) error
}

// Directory resolves accounts for authorization and email greetings.
type Directory interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
	ListNotifiable(ctx context.Context) ([]model.User, error)
}

// Notifier delivers an email asynchronously.  Implementations must not
// block the caller and must swallow (and log) their own failures.
type Notifier interface {
	Notify(ctx context.Context, to, subject, body string)
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	Email string
	Role  string
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

// Is reports whether the actor owns the given email address.
func (a Actor) Is(email string) bool { return strings.EqualFold(a.Email, email) }

// Outcome is the result of a lifecycle operation.  Changed is false for
// informational no-ops such as verifying an already verified booking.
type Outcome struct {
	Booking *model.Booking
	Changed bool
	Message string
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, string, string) {}
