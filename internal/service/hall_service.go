package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/campus-hall-booking/internal/booking"
	"github.com/iliyamo/campus-hall-booking/internal/model"
	"github.com/iliyamo/campus-hall-booking/internal/repository"
)

// HallService manages halls.  Every mutation is authorized against the
// blocks the acting admin manages before the store is touched.
type HallService struct {
	halls  HallStore
	blocks BlockStore
	dir    Directory
	mail   mailer
	log    *zap.Logger
}

func NewHallService(halls HallStore, blocks BlockStore, dir Directory, notifier Notifier, log *zap.Logger) *HallService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("hall")
	return &HallService{halls: halls, blocks: blocks, dir: dir, mail: mailer{notify: notifier, dir: dir, log: log}, log: log}
}

// HallInput carries the editable attributes of a hall.
type HallInput struct {
	Name               string
	Block              string
	Capacity           int
	Location           string
	Description        string
	LaptopCharging     bool
	ProjectorAvailable bool
	ProjectorCount     int
	Image              string
}

func (in HallInput) hall() model.Hall {
	return model.Hall{
		Name:               strings.TrimSpace(in.Name),
		Block:              strings.TrimSpace(in.Block),
		Capacity:           in.Capacity,
		Location:           strings.TrimSpace(in.Location),
		Description:        strings.TrimSpace(in.Description),
		LaptopCharging:     in.LaptopCharging,
		ProjectorAvailable: in.ProjectorAvailable,
		ProjectorCount:     in.ProjectorCount,
		Image:              strings.TrimSpace(in.Image),
	}
}

// authorize checks the "manages" capability of the acting admin.
func (s *HallService) authorize(ctx context.Context, actor Actor, block, verb string) error {
	if !actor.IsAdmin() || s.dir == nil {
		return booking.Forbidden("admin access required")
	}
	u, err := s.dir.GetByEmail(ctx, actor.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return booking.Forbidden("admin access required")
		}
		return err
	}
	if !u.IsActive || !u.CanManage(block) {
		return booking.Forbidden("You can only " + verb + " halls in blocks you manage")
	}
	return nil
}

func (s *HallService) get(ctx context.Context, name string) (*model.Hall, error) {
	h, err := s.halls.Get(ctx, strings.TrimSpace(name))
	if errors.Is(err, repository.ErrHallNotFound) {
		return nil, booking.ErrHallNotFound
	}
	return h, err
}

// Get returns a single hall.
func (s *HallService) Get(ctx context.Context, name string) (*model.Hall, error) {
	return s.get(ctx, name)
}

// List returns halls of block (all blocks when empty).  Administratively
// blocked halls are included only when includeBlocked is set.
func (s *HallService) List(ctx context.Context, block string, includeBlocked bool) ([]model.Hall, error) {
	out, err := s.halls.List(ctx, repository.HallFilter{Block: strings.TrimSpace(block), IncludeBlocked: includeBlocked})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Hall{}
	}
	return out, nil
}

// Blocks returns the block catalogue.
func (s *HallService) Blocks(ctx context.Context) ([]string, error) {
	out, err := s.blocks.List(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// Create adds a hall and announces it to every active user.
func (s *HallService) Create(ctx context.Context, actor Actor, in HallInput) (*model.Hall, error) {
	h := in.hall()
	if h.Name == "" || h.Block == "" {
		return nil, booking.Validation("hall name and block are required")
	}
	if h.Capacity < 0 || h.ProjectorCount < 0 {
		return nil, booking.Validation("capacity and projector count cannot be negative")
	}
	if err := s.authorize(ctx, actor, h.Block, "add"); err != nil {
		return nil, err
	}
	if err := s.halls.Create(ctx, &h); err != nil {
		if errors.Is(err, repository.ErrHallExists) {
			return nil, booking.ConflictErr("A hall with this name already exists")
		}
		return nil, err
	}
	s.log.Info("hall created", zap.String("hall", h.Name), zap.String("block", h.Block), zap.String("by", actor.Email))
	s.mail.broadcast(ctx, "hall", subjects["hall"], mailData{Hall: &h})
	return &h, nil
}

// Update replaces the attributes of a hall.  Moving a hall to another
// block requires managing both blocks.
func (s *HallService) Update(ctx context.Context, actor Actor, name string, in HallInput) (*model.Hall, error) {
	cur, err := s.get(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, cur.Block, "update"); err != nil {
		return nil, err
	}
	h := in.hall()
	h.Name = cur.Name
	if h.Block == "" {
		h.Block = cur.Block
	}
	if h.Block != cur.Block {
		if err := s.authorize(ctx, actor, h.Block, "update"); err != nil {
			return nil, err
		}
	}
	if h.Capacity < 0 || h.ProjectorCount < 0 {
		return nil, booking.Validation("capacity and projector count cannot be negative")
	}
	h.BlockStatus = cur.BlockStatus
	h.CreatedAt = cur.CreatedAt
	if err := s.halls.Update(ctx, &h); err != nil {
		return nil, err
	}
	return s.get(ctx, h.Name)
}

// ToggleBlock flips the hall's blockStatus.
func (s *HallService) ToggleBlock(ctx context.Context, actor Actor, name string) (*model.Hall, error) {
	cur, err := s.get(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, cur.Block, "block"); err != nil {
		return nil, err
	}
	if err := s.halls.SetBlockStatus(ctx, cur.Name, !cur.BlockStatus); err != nil {
		return nil, err
	}
	s.log.Info("hall block status changed", zap.String("hall", cur.Name), zap.Bool("blocked", !cur.BlockStatus), zap.String("by", actor.Email))
	return s.get(ctx, cur.Name)
}

// Delete removes a hall with no live bookings.
func (s *HallService) Delete(ctx context.Context, actor Actor, name string) error {
	cur, err := s.get(ctx, name)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, actor, cur.Block, "delete"); err != nil {
		return err
	}
	if err := s.halls.Delete(ctx, cur.Name); err != nil {
		switch {
		case errors.Is(err, repository.ErrHallInUse):
			return booking.ConflictErr("Hall has pending or confirmed bookings and cannot be deleted")
		case errors.Is(err, repository.ErrHallNotFound):
			return booking.ErrHallNotFound
		}
		return err
	}
	s.log.Info("hall deleted", zap.String("hall", cur.Name), zap.String("by", actor.Email))
	return nil
}
