package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/campus-hall-booking/internal/booking"
	"github.com/iliyamo/campus-hall-booking/internal/model"
	"github.com/iliyamo/campus-hall-booking/internal/repository"
)

// AnnouncementService creates, lists and removes announcements.
type AnnouncementService struct {
	store AnnouncementStore
	mail  mailer
	now   func() time.Time
	log   *zap.Logger
}

func NewAnnouncementService(store AnnouncementStore, dir Directory, notifier Notifier, now func() time.Time, log *zap.Logger) *AnnouncementService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("announcement")
	return &AnnouncementService{store: store, mail: mailer{notify: notifier, dir: dir, log: log}, now: now, log: log}
}

// AnnouncementInput is a new announcement.  NotifyMail additionally
// emails every active user.
type AnnouncementInput struct {
	Title      string
	Message    string
	Validity   int
	NotifyMail bool
}

// Create stores an announcement valid for in.Validity hours.
func (s *AnnouncementService) Create(ctx context.Context, actor Actor, in AnnouncementInput) (*model.Announcement, error) {
	a := &model.Announcement{
		Title:     strings.TrimSpace(in.Title),
		Message:   strings.TrimSpace(in.Message),
		Validity:  in.Validity,
		CreatedBy: strings.ToLower(actor.Email),
		CreatedAt: s.now().UTC().Truncate(time.Second),
	}
	if a.Title == "" || a.Message == "" {
		return nil, booking.Validation("title and message are required")
	}
	if a.Validity <= 0 {
		return nil, booking.Validation("validity must be a positive number of hours")
	}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, err
	}
	s.log.Info("announcement created", zap.Uint64("id", a.ID), zap.Int("validity_hours", a.Validity), zap.Bool("notify_mail", in.NotifyMail))
	if in.NotifyMail {
		s.mail.broadcast(ctx, "announcement", "New Announcement: "+a.Title, mailData{Announcement: a})
	}
	return a, nil
}

// List returns every announcement, expired ones included; callers
// compute expiry from createdAt and validity.
func (s *AnnouncementService) List(ctx context.Context) ([]model.Announcement, error) {
	out, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Announcement{}
	}
	return out, nil
}

// Delete removes an expired announcement.  force removes it regardless.
func (s *AnnouncementService) Delete(ctx context.Context, id uint64, force bool) error {
	a, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAnnouncementNotFound) {
			return booking.NotFound("announcement not found")
		}
		return err
	}
	if !force && !a.Expired(s.now()) {
		return booking.ConflictErr("Announcement is still active; pass force=true to delete it")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrAnnouncementNotFound) {
			return booking.NotFound("announcement not found")
		}
		return err
	}
	s.log.Info("announcement deleted", zap.Uint64("id", id), zap.Bool("forced", force))
	return nil
}
