package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/rand"   // secure random number generation
	"crypto/sha256" // SHA‑256 hashing for refresh tokens
	"encoding/hex"  // hex encoding and decoding functions
	"errors"        // sentinel for malformed claims
	"fmt"           // formats the numeric subject claim
	"strconv"       // parses the numeric subject claim
	"time"          // time utilities for generating expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// ErrInvalidToken is returned by ParseAccessToken for any token that is
// malformed, expired, signed with another key or missing a claim.
var ErrInvalidToken = errors.New("invalid token")

// AccessToken represents a signed JWT access token along with its expiry.
// Access tokens are short‑lived; the browser receives them in the
// accessToken cookie and API clients in the Authorization header.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// RefreshToken represents a long‑lived token used to obtain new access tokens.
// In the database only a SHA‑256 hash of Raw is stored.
type RefreshToken struct {
	Raw string    // raw token string returned to the client
	Exp time.Time // UTC expiration time
}

// Claims is the identity carried by an access token.
type Claims struct {
	UserID uint64 // sub
	Email  string // email
	Role   string // role (USER or ADMIN)
}

// NewAccessToken builds and signs an HS256 JWT.  The token carries the
// subject (user id as a decimal string), email, role, exp and iat.
func NewAccessToken(secret string, c Claims, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":   fmt.Sprint(c.UserID),
		"email": c.Email,
		"role":  c.Role,
		"exp":   exp.Unix(),
		"iat":   now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies raw against secret and returns its claims.
// Only HMAC signatures are accepted.
func ParseAccessToken(secret, raw string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Reject "none" and asymmetric algorithms outright.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return Claims{}, ErrInvalidToken
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	var c Claims
	switch sub := mc["sub"].(type) {
	case string:
		c.UserID, err = strconv.ParseUint(sub, 10, 64)
		if err != nil {
			return Claims{}, ErrInvalidToken
		}
	case float64:
		// Tokens minted before the subject became a string.
		c.UserID = uint64(sub)
	default:
		return Claims{}, ErrInvalidToken
	}
	c.Email, _ = mc["email"].(string)
	c.Role, _ = mc["role"].(string)
	if c.Role == "" {
		return Claims{}, ErrInvalidToken
	}
	return c, nil
}

// NewRefreshToken returns a cryptographically secure random token (raw) and
// its expiration time.  The ttlDays parameter controls how many days the
// refresh token is valid.
func NewRefreshToken(ttlDays int) (RefreshToken, error) {
	// Generate a random 48‑byte string and encode it as hex (96 characters).
	raw, err := randomHex(48)
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{
		Raw: raw,
		Exp: time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
	}, nil
}

// HashRefreshRaw returns the SHA‑256 hash of the raw refresh token as a hex
// string.  Storing only the hash means a leaked table cannot be replayed.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// randomHex returns a hex‑encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
