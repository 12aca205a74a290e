package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/campus-hall-booking/internal/config"
)

type stubSender struct {
	err   error
	calls int
}

func (s *stubSender) Send(context.Context, string, string, string) error {
	s.calls++
	return s.err
}

func TestEventRoundTrip(t *testing.T) {
	ev := NewNotificationEvent("a@campus.edu", "Hello", "<p>hi</p>")
	require.NotEmpty(t, ev.ID)
	body, err := ev.encode()
	require.NoError(t, err)
	got, err := decodeEvent(body)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, "a@campus.edu", got.To)
	assert.Zero(t, got.Attempt)
}

func TestNotifyDropsWhenBufferFull(t *testing.T) {
	p := NewPublisher(config.QueueConfig{Queue: "q", Buffer: 1}, nil)
	assert.True(t, p.enqueue(NewNotificationEvent("a", "s", "b")))
	assert.False(t, p.enqueue(NewNotificationEvent("b", "s", "b")))
	p.Notify(context.Background(), "c", "s", "b") // must not block
	assert.Len(t, p.buf, 1)
}

func TestProcessRetriesUntilBudgetSpent(t *testing.T) {
	s := &stubSender{err: errors.New("smtp down")}
	c := NewConsumer(config.QueueConfig{Queue: "q", MaxAttempts: 3}, s, nil)
	ev := NewNotificationEvent("a", "s", "b")

	assert.Equal(t, outcomeRetry, c.process(context.Background(), ev))
	ev.Attempt = 1
	assert.Equal(t, outcomeRetry, c.process(context.Background(), ev))
	ev.Attempt = 2
	assert.Equal(t, outcomeDead, c.process(context.Background(), ev))
	assert.Equal(t, 3, s.calls)
}

func TestProcessDelivered(t *testing.T) {
	s := &stubSender{}
	c := NewConsumer(config.QueueConfig{Queue: "q", MaxAttempts: 1}, s, nil)
	assert.Equal(t, outcomeDelivered, c.process(context.Background(), NewNotificationEvent("a", "s", "b")))
}

func TestRetryQueueName(t *testing.T) {
	assert.Equal(t, "hall.notifications.retry", retryQueue("hall.notifications"))
}
