package booking

import (
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/iliyamo/campus-hall-booking/internal/model"
)

// DateLayout is the wire and storage format of booking dates.
const DateLayout = "2006-01-02"

// Window is the local time span covered by a slot.
type Window struct {
	StartHour, StartMin int
	EndHour, EndMin     int
}

var windows = map[model.Slot]Window{
	model.SlotForenoon:  {StartHour: 10, StartMin: 0, EndHour: 13, EndMin: 0},
	model.SlotAfternoon: {StartHour: 13, StartMin: 40, EndHour: 16, EndMin: 40},
}

// ParseSlot normalizes and validates a slot identifier.
func ParseSlot(s string) (model.Slot, error) {
	slot := model.Slot(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := windows[slot]; !ok {
		return "", ErrInvalidSlot
	}
	return slot, nil
}

// WindowOf returns the time window of a valid slot.
func WindowOf(slot model.Slot) (Window, bool) {
	w, ok := windows[slot]
	return w, ok
}

// Calendar evaluates the date rules of the campus: the timezone used to
// decide what "today" is, and how far ahead bookings may be placed.
type Calendar struct {
	Loc         *time.Location
	HorizonDays int
}

// NewCalendar returns a Calendar for loc.  A nil location means UTC and
// a non-positive horizon disables the upper bound.
func NewCalendar(loc *time.Location, horizonDays int) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{Loc: loc, HorizonDays: horizonDays}
}

// ParseDate parses a YYYY-MM-DD date as local midnight.
func (c Calendar) ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), c.loc())
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// Today returns local midnight of the day containing now.
func (c Calendar) Today(now time.Time) time.Time {
	n := now.In(c.loc())
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, c.loc())
}

// SlotEnd returns the instant the slot ends on date.
func (c Calendar) SlotEnd(date time.Time, slot model.Slot) time.Time {
	w := windows[slot]
	return time.Date(date.Year(), date.Month(), date.Day(), w.EndHour, w.EndMin, 0, 0, c.loc())
}

// Elapsed reports whether the slot on date can no longer be booked
// because its end boundary has been reached.  Days before today are
// always elapsed.
func (c Calendar) Elapsed(date time.Time, slot model.Slot, now time.Time) bool {
	today := c.Today(now)
	if date.Before(today) {
		return true
	}
	if date.After(today) {
		return false
	}
	return !now.Before(c.SlotEnd(date, slot))
}

// Open reports why the slot can no longer be booked, or nil when it is
// still ahead of now.
func (c Calendar) Open(date time.Time, slot model.Slot, now time.Time) error {
	if date.Before(c.Today(now)) {
		return ErrPastDate
	}
	if c.Elapsed(date, slot, now) {
		return ErrSlotElapsed
	}
	return nil
}

// Validate applies the submission date rules in order: past dates, the
// booking horizon, then the same-day cutoff.
func (c Calendar) Validate(date time.Time, slot model.Slot, now time.Time) error {
	today := c.Today(now)
	if date.Before(today) {
		return ErrPastDate
	}
	if c.HorizonDays > 0 && date.After(today.AddDate(0, 0, c.HorizonDays)) {
		return ErrBeyondHorizon
	}
	return c.Open(date, slot, now)
}

// FormatDisplay renders a booking date as DD/MM/YYYY.
func FormatDisplay(date time.Time) string {
	return date.Format("02/01/2006")
}

func (c Calendar) loc() *time.Location {
	if c.Loc == nil {
		return time.UTC
	}
	return c.Loc
}
