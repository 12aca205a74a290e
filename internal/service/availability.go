package service

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/campus-hall-booking/internal/booking"
	"github.com/iliyamo/campus-hall-booking/internal/model"
	"github.com/iliyamo/campus-hall-booking/internal/repository"
)

// AvailabilityService answers which halls are free for a slot.  It is a
// pure read over the hall and booking stores.
type AvailabilityService struct {
	halls    HallStore
	bookings BookingStore
	cal      booking.Calendar
	now      func() time.Time
}

func NewAvailabilityService(halls HallStore, bookings BookingStore, cal booking.Calendar, now func() time.Time) *AvailabilityService {
	if now == nil {
		now = time.Now
	}
	if cal.Loc == nil {
		cal = booking.NewCalendar(nil, cal.HorizonDays)
	}
	return &AvailabilityService{halls: halls, bookings: bookings, cal: cal, now: now}
}

// ListAvailable returns the halls (optionally of one block) that are not
// administratively blocked and hold no confirmed booking for the slot.
// A slot that has already elapsed is a validation error; an empty result
// is not.
func (s *AvailabilityService) ListAvailable(ctx context.Context, date, slot, block string) ([]model.Hall, error) {
	sl, err := booking.ParseSlot(slot)
	if err != nil {
		return nil, err
	}
	d, err := s.cal.ParseDate(date)
	if err != nil {
		return nil, err
	}
	if err := s.cal.Open(d, sl, s.now()); err != nil {
		return nil, err
	}
	halls, err := s.halls.List(ctx, repository.HallFilter{Block: strings.TrimSpace(block)})
	if err != nil {
		return nil, err
	}
	occupied, err := s.bookings.ListOccupiedHalls(ctx, d.Format(booking.DateLayout), sl)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]bool, len(occupied))
	for _, name := range occupied {
		taken[name] = true
	}
	out := make([]model.Hall, 0, len(halls))
	for _, h := range halls {
		if !h.BlockStatus && !taken[h.Name] {
			out = append(out, h)
		}
	}
	return out, nil
}
