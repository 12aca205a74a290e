package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/campus-hall-booking/internal/model"
	"github.com/iliyamo/campus-hall-booking/internal/repository"
	"github.com/iliyamo/campus-hall-booking/internal/utils"
)

type refreshToken struct {
	userID  uint64
	expires time.Time
	revoked bool
}

// ---- users ----

func (v Users) Create(_ context.Context, u model.User, password string, cost int) (uint64, error) {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	s := v.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if _, ok := s.users[u.Email]; ok {
		return 0, repository.ErrEmailExists
	}
	s.nextUserID++
	u.ID = s.nextUserID
	u.PasswordHash = hash
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	s.users[u.Email] = u
	return u.ID, nil
}

func (v Users) UpsertAdmin(ctx context.Context, u model.User, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	s := v.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(u.Email))
	cur, ok := s.users[email]
	if !ok {
		s.nextUserID++
		cur = model.User{ID: s.nextUserID, Email: email, CreatedAt: time.Now().UTC()}
	}
	cur.FirstName = u.FirstName
	if u.LastName != "" {
		cur.LastName = u.LastName
	}
	cur.PasswordHash = hash
	cur.Role = model.RoleAdmin
	cur.IsActive, cur.IsVerified = true, true
	cur.Manages = append([]string(nil), u.Manages...)
	cur.UpdatedAt = time.Now().UTC()
	s.users[email] = cur
	return nil
}

func (v Users) GetByEmail(_ context.Context, email string) (model.User, error) {
	s := v.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (v Users) GetByID(_ context.Context, id uint64) (model.User, error) {
	s := v.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (v Users) SetVerified(_ context.Context, email string, verified bool) error {
	return v.update(email, func(u *model.User) { u.IsVerified = verified })
}

func (v Users) SetActive(_ context.Context, email string, active bool) error {
	return v.update(email, func(u *model.User) { u.IsActive = active })
}

func (v Users) update(email string, fn func(*model.User)) error {
	s := v.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	u, ok := s.users[email]
	if !ok {
		return repository.ErrUserNotFound
	}
	fn(&u)
	u.UpdatedAt = time.Now().UTC()
	s.users[email] = u
	return nil
}

func (v Users) ListNotifiable(context.Context) ([]model.User, error) {
	s := v.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.User
	for _, u := range s.users {
		if u.Role == model.RoleUser && u.IsActive && u.IsVerified {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---- refresh tokens ----

func (v Tokens) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	s := v.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokenHash] = refreshToken{userID: userID, expires: exp}
	return nil
}

func (v Tokens) ValidateRefresh(_ context.Context, tokenHash string) (uint64, error) {
	s := v.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[tokenHash]
	if !ok || t.revoked || time.Now().UTC().After(t.expires) {
		return 0, repository.ErrRefreshInvalid
	}
	return t.userID, nil
}

func (v Tokens) RevokeByHash(_ context.Context, tokenHash string) error {
	s := v.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[tokenHash]; ok {
		t.revoked = true
		s.tokens[tokenHash] = t
	}
	return nil
}

func (v Tokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	s := v.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	for h, t := range s.tokens {
		if t.userID == userID {
			t.revoked = true
			s.tokens[h] = t
		}
	}
	return nil
}

func (v Tokens) PurgeExpired(_ context.Context, cutoff time.Time) (int64, error) {
	s := v.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for h, t := range s.tokens {
		if t.revoked || t.expires.Before(cutoff) {
			delete(s.tokens, h)
			n++
		}
	}
	return n, nil
}
