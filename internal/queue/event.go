// Package queue carries outgoing email notifications over RabbitMQ.  The
// HTTP path enqueues into a Publisher without blocking; a Consumer drains
// the queue and hands each message to a mail sender, retrying through a
// delay queue until the attempt budget is spent.
package queue

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// NotificationEvent is a single email waiting for delivery.
type NotificationEvent struct {
	ID        string    `json:"id"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Attempt   int       `json:"attempt"`
	CreatedAt time.Time `json:"created_at"`
}

// NewNotificationEvent stamps a fresh event with a random id.
func NewNotificationEvent(to, subject, body string) NotificationEvent {
	return NotificationEvent{
		ID:        uuid.NewString(),
		To:        to,
		Subject:   subject,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
}

func (e NotificationEvent) encode() ([]byte, error) { return json.Marshal(e) }

func decodeEvent(body []byte) (NotificationEvent, error) {
	var ev NotificationEvent
	err := json.Unmarshal(body, &ev)
	return ev, err
}
