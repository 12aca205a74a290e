package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/campus-hall-booking/internal/booking"
	"github.com/iliyamo/campus-hall-booking/internal/metrics"
	"github.com/iliyamo/campus-hall-booking/internal/model"
	"github.com/iliyamo/campus-hall-booking/internal/repository"
)

// DefaultPosterMaxBytes bounds the data URL of a poster image.
const DefaultPosterMaxBytes = 5 * 1024 * 1024

// BookingOptions configures a BookingService.
type BookingOptions struct {
	Calendar       booking.Calendar
	PosterMaxBytes int
	Now            func() time.Time
	Logger         *zap.Logger
}

// BookingService implements submission, the advisory conflict check and
// every admin or owner transition of a booking.
type BookingService struct {
	store     BookingStore
	halls     HallStore
	mail      mailer
	cal       booking.Calendar
	now       func() time.Time
	posterMax int
	log       *zap.Logger
}

// NewBookingService wires a BookingService.  store and halls are
// required; notifier and dir may be nil.
func NewBookingService(store BookingStore, halls HallStore, dir Directory, notifier Notifier, opts BookingOptions) *BookingService {
	if store == nil || halls == nil {
		panic("nil store passed to NewBookingService")
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.PosterMaxBytes <= 0 {
		opts.PosterMaxBytes = DefaultPosterMaxBytes
	}
	if opts.Calendar.Loc == nil {
		opts.Calendar = booking.NewCalendar(nil, opts.Calendar.HorizonDays)
	}
	log := opts.Logger.Named("booking")
	return &BookingService{
		store:     store,
		halls:     halls,
		mail:      mailer{notify: notifier, dir: dir, log: log},
		cal:       opts.Calendar,
		now:       opts.Now,
		posterMax: opts.PosterMaxBytes,
		log:       log,
	}
}

// SubmitRequest is a booking candidate.  BookingID is caller supplied;
// zero lets the service derive one from the clock.
// maxDerivedIDAttempts bounds the id steps tried for a submission that
// did not carry its own bookingID.
const maxDerivedIDAttempts = 16

type SubmitRequest struct {
	BookingID        int64
	HallName         string
	Date             string
	Slot             string
	BookingEmail     string
	EventName        string
	EventDescription string
	PosterImage      string
}

type slotRef struct {
	hall string
	date time.Time
	slot model.Slot
}

func (s *BookingService) parseSlot(hall, date, slot string) (slotRef, error) {
	hall = strings.TrimSpace(hall)
	if hall == "" {
		return slotRef{}, booking.Validation("hall name, date and slot are required")
	}
	sl, err := booking.ParseSlot(slot)
	if err != nil {
		return slotRef{}, err
	}
	d, err := s.cal.ParseDate(date)
	if err != nil {
		return slotRef{}, err
	}
	return slotRef{hall: hall, date: d, slot: sl}, nil
}

func (s *BookingService) requireHall(ctx context.Context, name string) (*model.Hall, error) {
	h, err := s.halls.Get(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrHallNotFound) {
			return nil, booking.ErrHallNotFound
		}
		return nil, err
	}
	return h, nil
}

// CheckConflict answers whether (hall, date, slot) can currently take a
// new booking.  The answer is advisory: Submit and Verify re-derive it
// under lock.
func (s *BookingService) CheckConflict(ctx context.Context, hall, date, slot string) (booking.Conflict, error) {
	ref, err := s.parseSlot(hall, date, slot)
	if err != nil {
		return booking.Conflict{}, err
	}
	h, err := s.requireHall(ctx, ref.hall)
	if err != nil {
		return booking.Conflict{}, err
	}
	day := ref.date.Format(booking.DateLayout)
	if h.BlockStatus {
		return booking.HallBlocked(h.Name), nil
	}
	if err := s.cal.Open(ref.date, ref.slot, s.now()); err != nil {
		return booking.Elapsed(ref.hall, day, ref.slot), nil
	}
	mates, err := s.store.ListBySlot(ctx, ref.hall, day, ref.slot)
	if err != nil {
		return booking.Conflict{}, err
	}
	return booking.Classify(ref.hall, day, ref.slot, mates), nil
}

// Submit validates a candidate and creates it in the pending state when
// the admission rule accepts it against the slot's current bookings.
func (s *BookingService) Submit(ctx context.Context, actor Actor, req SubmitRequest) (*model.Booking, error) {
	if req.BookingEmail != "" && !actor.Is(req.BookingEmail) {
		return nil, booking.Forbidden("you can only submit bookings for your own account")
	}
	ref, err := s.parseSlot(req.HallName, req.Date, req.Slot)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.cal.Validate(ref.date, ref.slot, now); err != nil {
		return nil, err
	}
	if err := s.checkPoster(req.PosterImage); err != nil {
		return nil, err
	}
	h, err := s.requireHall(ctx, ref.hall)
	if err != nil {
		return nil, err
	}
	if h.BlockStatus {
		return nil, booking.ErrHallUnavailable
	}

	derived := req.BookingID == 0
	id := req.BookingID
	if derived {
		id = now.UnixMilli()
	}
	b := &model.Booking{
		HallName:         h.Name,
		Date:             ref.date.Format(booking.DateLayout),
		Slot:             ref.slot,
		BookingEmail:     strings.ToLower(actor.Email),
		State:            model.StatePending,
		EventName:        strings.TrimSpace(req.EventName),
		EventDescription: strings.TrimSpace(req.EventDescription),
		PosterImage:      req.PosterImage,
		DateOfBooking:    now.UTC(),
		FormattedDate:    booking.FormatDisplay(ref.date),
	}
	admit := func(mates []model.Booking) error { return booking.Admit(actor.Email, mates) }
	// A clock-derived id can collide with another submission in the same
	// millisecond; step past it instead of reporting a false conflict.
	for attempt := int64(0); ; attempt++ {
		b.BookingID = id + attempt
		err = s.store.Create(ctx, b, admit)
		if !derived || attempt+1 >= maxDerivedIDAttempts || !errors.Is(err, repository.ErrDuplicateBookingID) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateBookingID) {
			err = booking.ErrDuplicateBooking
		}
		if errors.Is(err, repository.ErrSlotTaken) {
			err = booking.ErrSlotBooked
		}
		s.record("submit", err)
		if booking.KindOf(err) == booking.KindConflict {
			metrics.SlotConflicts.WithLabelValues("submit").Inc()
		}
		return nil, err
	}
	s.record("submit", nil)
	s.log.Info("booking submitted",
		zap.Int64("booking_id", b.BookingID), zap.String("hall", b.HallName),
		zap.String("date", b.Date), zap.String("slot", string(b.Slot)), zap.String("email", b.BookingEmail))
	s.mail.booking(ctx, "received", b, "")
	return b, nil
}

func (s *BookingService) checkPoster(p string) error {
	if p == "" {
		return nil
	}
	if !strings.HasPrefix(p, "data:image/") {
		return booking.ErrInvalidPoster
	}
	if len(p) > s.posterMax {
		return booking.ErrPosterTooLarge
	}
	return nil
}

// Verify confirms a pending booking.  The write is refused when another
// booking of the same slot is already confirmed at that moment.
func (s *BookingService) Verify(ctx context.Context, actor Actor, id int64, note string) (Outcome, error) {
	note = strings.TrimSpace(note)
	t := booking.Transition{
		ID:    id,
		From:  []model.BookingState{model.StatePending},
		To:    model.StateConfirmed,
		Patch: booking.Patch{AcceptanceNote: optional(note), At: s.now().UTC()},
		Guard: booking.NoOtherConfirmed(id),
	}
	b, err := s.store.Transition(ctx, t)
	switch {
	case err == nil:
		s.record("verify", nil)
		s.log.Info("booking verified", zap.Int64("booking_id", id), zap.String("by", actor.Email))
		s.mail.booking(ctx, "confirmed", b, note)
		return Outcome{Booking: b, Changed: true, Message: "Booking verified successfully"}, nil
	case errors.Is(err, repository.ErrStateMismatch):
		if b.State == model.StateConfirmed {
			return s.noop("verify", b, "Booking has already been verified")
		}
		if b.State == model.StateRejected {
			return s.invalid("verify", "Booking has already been rejected")
		}
		return s.invalid("verify", "Booking has been deactivated")
	case errors.Is(err, repository.ErrSlotTaken), errors.Is(err, booking.ErrVerifiedByOther):
		metrics.SlotConflicts.WithLabelValues("verify").Inc()
		s.record("verify", booking.ErrVerifiedByOther)
		return Outcome{}, booking.ErrVerifiedByOther
	}
	return Outcome{}, s.fail("verify", id, err)
}

// Reject refuses a pending booking.
func (s *BookingService) Reject(ctx context.Context, actor Actor, id int64, note string) (Outcome, error) {
	note = strings.TrimSpace(note)
	b, err := s.store.Transition(ctx, booking.Transition{
		ID:    id,
		From:  []model.BookingState{model.StatePending},
		To:    model.StateRejected,
		Patch: booking.Patch{RejectionNote: optional(note), At: s.now().UTC()},
	})
	switch {
	case err == nil:
		s.record("reject", nil)
		s.log.Info("booking rejected", zap.Int64("booking_id", id), zap.String("by", actor.Email))
		s.mail.booking(ctx, "rejected", b, note)
		return Outcome{Booking: b, Changed: true, Message: "Booking rejected successfully"}, nil
	case errors.Is(err, repository.ErrStateMismatch):
		if b.State == model.StateRejected {
			return s.noop("reject", b, "Booking has already been rejected")
		}
		return s.invalid("reject", "Only pending bookings can be rejected")
	}
	return Outcome{}, s.fail("reject", id, err)
}

// Cancel withdraws a pending booking on behalf of its owner.  A
// non-blank note is mandatory.
func (s *BookingService) Cancel(ctx context.Context, actor Actor, id int64, note string) (Outcome, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return Outcome{}, booking.ErrNoteRequired
	}
	cur, err := s.store.GetByID(ctx, id)
	if err != nil {
		return Outcome{}, s.fail("cancel", id, err)
	}
	if !actor.Is(cur.BookingEmail) {
		s.record("cancel", booking.ErrNotOwner)
		return Outcome{}, booking.ErrNotOwner
	}
	by := strings.ToLower(actor.Email)
	b, err := s.store.Transition(ctx, booking.Transition{
		ID:    id,
		From:  []model.BookingState{model.StatePending},
		To:    model.StateCancelledByUser,
		Patch: booking.Patch{CancellationNote: &note, CancelledBy: &by, At: s.now().UTC()},
	})
	switch {
	case err == nil:
		s.record("cancel", nil)
		s.log.Info("booking cancelled", zap.Int64("booking_id", id), zap.String("by", by))
		s.mail.booking(ctx, "cancelled", b, note)
		return Outcome{Booking: b, Changed: true, Message: "Booking cancelled successfully"}, nil
	case errors.Is(err, repository.ErrStateMismatch):
		if b.State == model.StateCancelledByUser {
			return s.noop("cancel", b, "Booking has already been cancelled")
		}
		return s.invalid("cancel", "Only pending bookings can be cancelled")
	}
	return Outcome{}, s.fail("cancel", id, err)
}

// Block deactivates a confirmed booking and tells its owner.
func (s *BookingService) Block(ctx context.Context, actor Actor, id int64) (Outcome, error) {
	b, err := s.store.Transition(ctx, booking.Transition{
		ID:    id,
		From:  []model.BookingState{model.StateConfirmed},
		To:    model.StateCancelledByAdmin,
		Patch: booking.Patch{At: s.now().UTC()},
	})
	switch {
	case err == nil:
		s.record("block", nil)
		s.log.Info("booking blocked", zap.Int64("booking_id", id), zap.String("by", actor.Email))
		s.mail.booking(ctx, "blocked", b, "")
		return Outcome{Booking: b, Changed: true, Message: "Booking blocked successfully"}, nil
	case errors.Is(err, repository.ErrStateMismatch):
		if b.State == model.StateCancelledByAdmin {
			return s.noop("block", b, "Booking is already blocked")
		}
		return s.noop("block", b, "Booking status unchanged")
	}
	return Outcome{}, s.fail("block", id, err)
}

// Unblock restores an admin-blocked booking to confirmed.  It fails
// with a conflict while any other booking of the slot is confirmed or
// pending; the check and the write happen in one atomic step.
func (s *BookingService) Unblock(ctx context.Context, actor Actor, id int64) (Outcome, error) {
	b, err := s.store.Transition(ctx, booking.Transition{
		ID:    id,
		From:  []model.BookingState{model.StateCancelledByAdmin},
		To:    model.StateConfirmed,
		Patch: booking.Patch{At: s.now().UTC()},
		Guard: booking.NoOtherHolder(id),
	})
	switch {
	case err == nil:
		s.record("unblock", nil)
		s.log.Info("booking unblocked", zap.Int64("booking_id", id), zap.String("by", actor.Email))
		return Outcome{Booking: b, Changed: true, Message: "Booking unblocked successfully"}, nil
	case errors.Is(err, repository.ErrStateMismatch):
		if b.State == model.StateConfirmed {
			return s.noop("unblock", b, "Booking is already confirmed")
		}
		return s.noop("unblock", b, "Booking status unchanged")
	case errors.Is(err, repository.ErrSlotTaken), errors.Is(err, booking.ErrUnblockConflict):
		metrics.SlotConflicts.WithLabelValues("unblock").Inc()
		s.record("unblock", booking.ErrUnblockConflict)
		return Outcome{}, booking.ErrUnblockConflict
	}
	return Outcome{}, s.fail("unblock", id, err)
}

// ToggleBlock blocks a confirmed booking or unblocks an admin-blocked
// one.  Any other state is reported unchanged.
func (s *BookingService) ToggleBlock(ctx context.Context, actor Actor, id int64) (Outcome, error) {
	cur, err := s.store.GetByID(ctx, id)
	if err != nil {
		return Outcome{}, s.fail("block", id, err)
	}
	switch cur.State {
	case model.StateConfirmed:
		return s.Block(ctx, actor, id)
	case model.StateCancelledByAdmin:
		return s.Unblock(ctx, actor, id)
	}
	return s.noop("block", cur, "Booking status unchanged")
}

// ListForHall returns the confirmed bookings of a hall.  Admins also see
// the decided ones (rejected and admin-blocked).
func (s *BookingService) ListForHall(ctx context.Context, actor Actor, hall string) ([]model.Booking, error) {
	states := []model.BookingState{model.StateConfirmed}
	if actor.IsAdmin() {
		states = append(states, model.StateCancelledByAdmin, model.StateRejected)
	}
	return s.list(ctx, repository.BookingFilter{HallName: strings.TrimSpace(hall), States: states})
}

// ListForUser returns every booking of email.  Users may only list their
// own bookings.
func (s *BookingService) ListForUser(ctx context.Context, actor Actor, email string) ([]model.Booking, error) {
	if !actor.IsAdmin() && !actor.Is(email) {
		return nil, booking.Forbidden("you can only view your own bookings")
	}
	return s.list(ctx, repository.BookingFilter{Email: strings.ToLower(strings.TrimSpace(email))})
}

// ListConfirmed returns all confirmed bookings.
func (s *BookingService) ListConfirmed(ctx context.Context) ([]model.Booking, error) {
	return s.list(ctx, repository.BookingFilter{States: []model.BookingState{model.StateConfirmed}})
}

// ListAll returns every booking, optionally restricted to states.
func (s *BookingService) ListAll(ctx context.Context, states ...model.BookingState) ([]model.Booking, error) {
	for _, st := range states {
		if !booking.ValidState(st) {
			return nil, booking.Validation("unknown booking state " + string(st))
		}
	}
	return s.list(ctx, repository.BookingFilter{States: states})
}

func (s *BookingService) list(ctx context.Context, f repository.BookingFilter) ([]model.Booking, error) {
	out, err := s.store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Booking{}
	}
	return out, nil
}

func (s *BookingService) noop(op string, b *model.Booking, msg string) (Outcome, error) {
	metrics.BookingOperations.WithLabelValues(op, "noop").Inc()
	return Outcome{Booking: b, Message: msg}, nil
}

func (s *BookingService) invalid(op, msg string) (Outcome, error) {
	metrics.BookingOperations.WithLabelValues(op, "invalid").Inc()
	return Outcome{}, &booking.Error{Kind: booking.KindInvalidTransition, Msg: msg}
}

func (s *BookingService) fail(op string, id int64, err error) error {
	if errors.Is(err, repository.ErrBookingNotFound) {
		s.record(op, booking.ErrBookingNotFound)
		return booking.ErrBookingNotFound
	}
	s.record(op, err)
	if booking.KindOf(err) == 0 {
		s.log.Error("booking operation failed", zap.String("operation", op), zap.Int64("booking_id", id), zap.Error(err))
	}
	return err
}

func (s *BookingService) record(op string, err error) {
	result := "changed"
	switch booking.KindOf(err) {
	case 0:
		if err != nil {
			result = "error"
		}
	case booking.KindConflict:
		result = "conflict"
	case booking.KindInvalidTransition:
		result = "invalid"
	default:
		result = "rejected"
	}
	metrics.BookingOperations.WithLabelValues(op, result).Inc()
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
