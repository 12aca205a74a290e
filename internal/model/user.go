package model

import "time"

// Roles carried in the access token's "role" claim.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User represents an account row in the `users` table.  Regular users
// register themselves and must be approved by an admin before they can
// sign in.  Admin accounts are created out of band and carry the list
// of hall blocks they manage.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Email        – unique, lower-cased email address.
//	FirstName    – display name used in notification emails.
//	LastName     – optional surname.
//	PasswordHash – bcrypt hashed password.
//	Role         – USER or ADMIN.
//	IsActive     – false once an admin blocks the account.
//	IsVerified   – true once an admin approves the account.
//	Manages      – hall blocks an admin may modify (empty for users).
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	FirstName    string    // users.first_name
	LastName     string    // users.last_name
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsActive     bool      // users.is_active
	IsVerified   bool      // users.is_verified
	Manages      []string  // users.manages (comma separated in storage)
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// CanManage reports whether the account may modify halls of the given block.
func (u User) CanManage(block string) bool {
	if u.Role != RoleAdmin {
		return false
	}
	for _, b := range u.Manages {
		if b == block {
			return true
		}
	}
	return false
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only
// the SHA-256 hash of the token is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
