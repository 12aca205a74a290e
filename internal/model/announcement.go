package model

import "time"

// Announcement is an admin notice shown to every user until it expires.
// Expiry is computed at read time from CreatedAt and Validity; rows are
// only removed by an explicit admin action.
type Announcement struct {
	ID        uint64    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Validity  int       `json:"validity"` // hours
	CreatedBy string    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ExpiresAt returns the instant after which the announcement is stale.
func (a Announcement) ExpiresAt() time.Time {
	return a.CreatedAt.Add(time.Duration(a.Validity) * time.Hour)
}

// Expired reports whether now is past the announcement's validity window.
func (a Announcement) Expired(now time.Time) bool {
	return now.After(a.ExpiresAt())
}
