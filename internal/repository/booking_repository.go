package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/campus-hall-booking/internal/booking"
	"github.com/iliyamo/campus-hall-booking/internal/model"
)

// BookingFilter narrows List.  Zero fields do not filter.
type BookingFilter struct {
	HallName string
	Email    string
	States   []model.BookingState
}

// BookingRepo stores bookings in MySQL.  Writes that depend on the other
// bookings of a slot lock that slot's index range with SELECT ... FOR
// UPDATE so concurrent writers to the same (hall, date, slot) serialize
// inside InnoDB.  The unique generated column confirmed_slot backs the
// single-confirmed-booking rule even if a caller forgets a guard.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo constructs a BookingRepo with the given DB handle.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying handle for callers that manage transactions.
func (r *BookingRepo) DB() *sql.DB { return r.db }

const bookingCols = `b.booking_id, b.hall_name, b.booking_date, b.slot, b.booking_email, b.state,
	b.event_name, b.event_description, b.poster_image,
	b.acceptance_note, b.acceptance_note_at, b.rejection_note, b.rejection_note_at,
	b.cancellation_note, b.cancelled_at, b.cancelled_by, b.created_at`

const maxTxAttempts = 3

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(s rowScanner, withHall bool) (*model.Booking, error) {
	var (
		b                                model.Booking
		date                             time.Time
		desc, poster                     sql.NullString
		accNote, rejNote, canNote, canBy sql.NullString
		accAt, rejAt, canAt              sql.NullTime
		hallRemoved                      bool
	)
	dest := []any{&b.BookingID, &b.HallName, &date, &b.Slot, &b.BookingEmail, &b.State,
		&b.EventName, &desc, &poster,
		&accNote, &accAt, &rejNote, &rejAt,
		&canNote, &canAt, &canBy, &b.DateOfBooking}
	if withHall {
		dest = append(dest, &hallRemoved)
	}
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	b.Date = date.Format(booking.DateLayout)
	b.FormattedDate = booking.FormatDisplay(date)
	b.EventDescription = desc.String
	b.PosterImage = poster.String
	b.AcceptanceNote = accNote.String
	b.AcceptanceNoteDate = timePtr(accAt)
	b.RejectionNote = rejNote.String
	b.RejectionNoteDate = timePtr(rejAt)
	b.CancellationNote = canNote.String
	b.CancellationDate = timePtr(canAt)
	b.CancelledBy = canBy.String
	b.HallRemoved = hallRemoved
	return &b, nil
}

// Create inserts b after admit accepted the bookings currently held for
// the same slot.  The check and the insert run in one transaction with
// the slot range locked, so two submissions for one slot cannot both
// pass a check that only one of them should.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking, admit func([]model.Booking) error) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		mates, err := r.lockSlotTx(ctx, tx, b.HallName, b.Date, b.Slot, 0)
		if err != nil {
			return err
		}
		if admit != nil {
			if err := admit(mates); err != nil {
				return err
			}
		}
		const q = `INSERT INTO bookings (booking_id, hall_name, booking_date, slot, booking_email, state,
		               event_name, event_description, poster_image, created_at)
		           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		_, err = tx.ExecContext(ctx, q, b.BookingID, b.HallName, b.Date, b.Slot, b.BookingEmail, b.State,
			b.EventName, nullStr(b.EventDescription), nullStr(b.PosterImage), b.DateOfBooking)
		if err != nil {
			if duplicateOn(err, "PRIMARY") {
				return ErrDuplicateBookingID
			}
			if duplicateOn(err, "uq_bookings_confirmed_slot") {
				return ErrSlotTaken
			}
			return err
		}
		return nil
	})
}

// Transition applies t as one conditional write.  The booking row is
// locked, its state compared against t.From, t.Guard run over the other
// locked bookings of the slot, and the UPDATE repeats the state
// predicate.  When the booking is not in an expected state the current
// record is returned with ErrStateMismatch.
func (r *BookingRepo) Transition(ctx context.Context, t booking.Transition) (*model.Booking, error) {
	var out *model.Booking
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		out = nil
		row := tx.QueryRowContext(ctx, `SELECT `+bookingCols+` FROM bookings b WHERE b.booking_id = ? FOR UPDATE`, t.ID)
		cur, err := scanBooking(row, false)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrBookingNotFound
			}
			return err
		}
		out = cur
		if !t.Matches(cur.State) {
			return ErrStateMismatch
		}
		if t.Guard != nil {
			mates, err := r.lockSlotTx(ctx, tx, cur.HallName, cur.Date, cur.Slot, cur.BookingID)
			if err != nil {
				return err
			}
			if err := t.Guard(mates); err != nil {
				return err
			}
		}

		next := *cur
		t.Apply(&next)
		args := []any{next.State,
			nullStr(next.AcceptanceNote), nullTime(next.AcceptanceNoteDate),
			nullStr(next.RejectionNote), nullTime(next.RejectionNoteDate),
			nullStr(next.CancellationNote), nullTime(next.CancellationDate),
			nullStr(next.CancelledBy), t.ID}
		q := `UPDATE bookings
		      SET state = ?, acceptance_note = ?, acceptance_note_at = ?, rejection_note = ?, rejection_note_at = ?,
		          cancellation_note = ?, cancelled_at = ?, cancelled_by = ?
		      WHERE booking_id = ? AND state IN (` + placeholders(len(t.From)) + `)`
		for _, s := range t.From {
			args = append(args, s)
		}
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			if duplicateOn(err, "uq_bookings_confirmed_slot") {
				return ErrSlotTaken
			}
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrStateMismatch
		}
		out = &next
		return nil
	})
	return out, err
}

// GetByID returns a single booking.
func (r *BookingRepo) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+bookingCols+`, h.name IS NULL FROM bookings b LEFT JOIN halls h ON h.name = b.hall_name WHERE b.booking_id = ?`, id)
	b, err := scanBooking(row, true)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

// ListBySlot returns every booking of a (hall, date, slot) triple.
// It is a plain read used for advisory checks.
func (r *BookingRepo) ListBySlot(ctx context.Context, hall, date string, slot model.Slot) ([]model.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings b
	           WHERE b.hall_name = ? AND b.booking_date = ? AND b.slot = ?
	           ORDER BY b.created_at`
	return r.query(ctx, q, false, hall, date, slot)
}

// ListOccupiedHalls returns the names of halls holding a confirmed
// booking for (date, slot).
func (r *BookingRepo) ListOccupiedHalls(ctx context.Context, date string, slot model.Slot) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT hall_name FROM bookings WHERE booking_date = ? AND slot = ? AND state = ?`,
		date, slot, model.StateConfirmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// List returns bookings matching f ordered by date and slot.
func (r *BookingRepo) List(ctx context.Context, f BookingFilter) ([]model.Booking, error) {
	var (
		where []string
		args  []any
	)
	if f.HallName != "" {
		where = append(where, "b.hall_name = ?")
		args = append(args, f.HallName)
	}
	if f.Email != "" {
		where = append(where, "b.booking_email = ?")
		args = append(args, strings.ToLower(f.Email))
	}
	if len(f.States) > 0 {
		where = append(where, "b.state IN ("+placeholders(len(f.States))+")")
		for _, s := range f.States {
			args = append(args, s)
		}
	}
	q := `SELECT ` + bookingCols + `, h.name IS NULL FROM bookings b LEFT JOIN halls h ON h.name = b.hall_name`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY b.booking_date, b.slot, b.created_at"
	return r.query(ctx, q, true, args...)
}

func (r *BookingRepo) lockSlotTx(ctx context.Context, tx *sql.Tx, hall, date string, slot model.Slot, exclude int64) ([]model.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings b
	           WHERE b.hall_name = ? AND b.booking_date = ? AND b.slot = ?
	           FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, hall, date, slot)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows, false)
		if err != nil {
			return nil, err
		}
		if b.BookingID != exclude {
			out = append(out, *b)
		}
	}
	return out, rows.Err()
}

func (r *BookingRepo) query(ctx context.Context, q string, withHall bool, args ...any) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows, withHall)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// withTx runs fn in a transaction and replays it when InnoDB aborts it
// with a deadlock or lock-wait timeout.  Concurrent inserts into the
// same locked gap resolve that way.
func (r *BookingRepo) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	var err error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err = runTx(ctx, r.db, fn)
		if !retryable(err) {
			return err
		}
	}
	return err
}

func runTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func placeholders(n int) string {
	if n <= 0 {
		return "NULL"
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
