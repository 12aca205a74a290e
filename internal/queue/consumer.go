package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/campus-hall-booking/internal/config"
	"github.com/iliyamo/campus-hall-booking/internal/metrics"
)

// Sender delivers one rendered email.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Consumer drains the notification queue into a Sender.
type Consumer struct {
	url         string
	queue       string
	maxAttempts int
	retryDelay  time.Duration
	sender      Sender
	log         *zap.Logger
}

func NewConsumer(cfg config.QueueConfig, sender Sender, log *zap.Logger) *Consumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{
		url:         cfg.URL,
		queue:       cfg.Queue,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		sender:      sender,
		log:         log.Named("notify-consumer"),
	}
}

// Run connects to RabbitMQ and consumes until ctx is cancelled, redialling
// whenever the connection drops.
func (c *Consumer) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("dial broker failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if err == nil {
			return
		}
		c.log.Warn("consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("set QoS failed", zap.Error(err))
	}
	if err := declare(ch, c.queue, c.retryDelay); err != nil {
		return err
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.handle(ctx, ch, d)
		}
	}
}

// handle acknowledges every delivery exactly once.  Failed sends are
// republished to the retry queue with Attempt incremented; once the
// budget is spent, or the payload is unreadable, the message is rejected
// without requeue.
func (c *Consumer) handle(ctx context.Context, ch *amqp.Channel, d amqp.Delivery) {
	ev, err := decodeEvent(d.Body)
	if err != nil {
		c.log.Error("undecodable notification", zap.Error(err))
		metrics.Notifications.WithLabelValues("deliver", "invalid").Inc()
		_ = d.Nack(false, false)
		return
	}
	switch c.process(ctx, ev) {
	case outcomeDelivered:
		_ = d.Ack(false)
	case outcomeRetry:
		ev.Attempt++
		body, _ := ev.encode()
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := ch.PublishWithContext(pctx, "", retryQueue(c.queue), false, false, persistent(body))
		cancel()
		if err != nil {
			c.log.Warn("schedule retry failed, requeueing", zap.String("id", ev.ID), zap.Error(err))
			_ = d.Nack(false, true)
			return
		}
		_ = d.Ack(false)
	default:
		_ = d.Nack(false, false)
	}
}

type outcome int

const (
	outcomeDelivered outcome = iota
	outcomeRetry
	outcomeDead
)

func (c *Consumer) process(ctx context.Context, ev NotificationEvent) outcome {
	sctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	err := c.sender.Send(sctx, ev.To, ev.Subject, ev.Body)
	if err == nil {
		metrics.Notifications.WithLabelValues("deliver", "ok").Inc()
		c.log.Info("notification delivered", zap.String("id", ev.ID), zap.String("to", ev.To), zap.Int("attempt", ev.Attempt+1))
		return outcomeDelivered
	}
	if ev.Attempt+1 < c.maxAttempts {
		metrics.Notifications.WithLabelValues("deliver", "retry").Inc()
		c.log.Warn("notification failed, will retry", zap.String("id", ev.ID), zap.Int("attempt", ev.Attempt+1), zap.Error(err))
		return outcomeRetry
	}
	metrics.Notifications.WithLabelValues("deliver", "dead").Inc()
	c.log.Error("notification abandoned", zap.String("id", ev.ID), zap.String("to", ev.To), zap.Int("attempts", ev.Attempt+1), zap.Error(err))
	return outcomeDead
}
