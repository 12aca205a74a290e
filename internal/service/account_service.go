package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/campus-hall-booking/internal/booking"
	"github.com/iliyamo/campus-hall-booking/internal/model"
	"github.com/iliyamo/campus-hall-booking/internal/repository"
	"github.com/iliyamo/campus-hall-booking/internal/utils"
)

// AccountStore persists user accounts.
type AccountStore interface {
	Directory
	Create(ctx context.Context, u model.User, password string, cost int) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	SetVerified(ctx context.Context, email string, verified bool) error
}

// Account errors surfaced by Authenticate.  They are deliberately
// distinct so the login handler can tell the user why.
var (
	ErrBadCredentials = booking.Validation("invalid credentials")
	ErrNotApproved    = booking.Forbidden("your account is awaiting admin approval")
	ErrAccountBlocked = booking.Forbidden("your account has been blocked")
)

// AccountService handles self registration, admin approval and password
// checks.  Token issuance stays in the auth handler.
type AccountService struct {
	store AccountStore
	cost  int
	mail  mailer
	log   *zap.Logger
}

func NewAccountService(store AccountStore, bcryptCost int, notifier Notifier, log *zap.Logger) *AccountService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("account")
	return &AccountService{store: store, cost: bcryptCost, mail: mailer{notify: notifier, dir: store, log: log}, log: log}
}

// RegisterInput is a self-registration request.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates an active, unverified USER account and emails the
// "awaiting approval" notice.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return model.User{}, booking.Validation("a valid email is required")
	}
	if len(in.Password) < 8 {
		return model.User{}, booking.Validation("password must be at least 8 characters")
	}
	u := model.User{
		Email:     email,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Role:      model.RoleUser,
		IsActive:  true,
	}
	id, err := s.store.Create(ctx, u, in.Password, s.cost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return model.User{}, booking.ConflictErr("email already exists")
		}
		return model.User{}, err
	}
	u.ID = id
	s.log.Info("user registered", zap.String("email", email))
	s.mail.account(ctx, "registered", u)
	return u, nil
}

// Authenticate checks a password and refuses blocked or unapproved
// accounts.  Admin accounts are always verified.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (model.User, error) {
	u, err := s.store.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.User{}, ErrBadCredentials
		}
		return model.User{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return model.User{}, ErrBadCredentials
	}
	if !u.IsActive {
		return model.User{}, ErrAccountBlocked
	}
	if !u.IsVerified {
		return model.User{}, ErrNotApproved
	}
	return u, nil
}

// Get returns the account with id.
func (s *AccountService) Get(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return model.User{}, booking.NotFound("user not found")
	}
	return u, err
}

// Approve marks a user as verified and tells them so.  Approving an
// already verified account is a no-op.
func (s *AccountService) Approve(ctx context.Context, actor Actor, email string) (model.User, error) {
	if !actor.IsAdmin() {
		return model.User{}, booking.Forbidden("admin access required")
	}
	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.User{}, booking.NotFound("user not found")
		}
		return model.User{}, err
	}
	if u.IsVerified {
		return u, nil
	}
	if err := s.store.SetVerified(ctx, u.Email, true); err != nil {
		return model.User{}, err
	}
	u.IsVerified = true
	s.log.Info("user approved", zap.String("email", u.Email), zap.String("by", actor.Email))
	s.mail.account(ctx, "approved", u)
	return u, nil
}
