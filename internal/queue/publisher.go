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

// Publisher buffers notification events in memory and publishes them to
// RabbitMQ from a single goroutine.  Notify never blocks: when the buffer
// is full the event is dropped and counted.
type Publisher struct {
	url        string
	queue      string
	retryDelay time.Duration
	buf        chan NotificationEvent
	log        *zap.Logger
}

// NewPublisher creates a Publisher.  Call Run to start draining.
func NewPublisher(cfg config.QueueConfig, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{
		url:        cfg.URL,
		queue:      cfg.Queue,
		retryDelay: cfg.RetryDelay,
		buf:        make(chan NotificationEvent, cfg.Buffer),
		log:        log.Named("notify-publisher"),
	}
}

// Notify enqueues an email.  It satisfies service.Notifier.
func (p *Publisher) Notify(_ context.Context, to, subject, body string) {
	p.enqueue(NewNotificationEvent(to, subject, body))
}

func (p *Publisher) enqueue(ev NotificationEvent) bool {
	select {
	case p.buf <- ev:
		metrics.Notifications.WithLabelValues("enqueue", "ok").Inc()
		return true
	default:
		metrics.Notifications.WithLabelValues("enqueue", "dropped").Inc()
		p.log.Warn("notification buffer full, dropping", zap.String("id", ev.ID), zap.String("to", ev.To))
		return false
	}
}

// Run dials the broker and publishes buffered events until ctx is done.
// Connection failures are retried with exponential backoff capped at 30s;
// the event being published when the channel broke is retried on the next
// connection.
func (p *Publisher) Run(ctx context.Context) {
	var pending *NotificationEvent
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		conn, err := amqp.Dial(p.url)
		if err != nil {
			p.log.Warn("dial broker failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second
		pending, err = p.publishLoop(ctx, conn, pending)
		_ = conn.Close()
		if err == nil {
			return
		}
		p.log.Warn("publish loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return
		}
	}
}

func (p *Publisher) publishLoop(ctx context.Context, conn *amqp.Connection, pending *NotificationEvent) (*NotificationEvent, error) {
	ch, err := conn.Channel()
	if err != nil {
		return pending, fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()
	if err := declare(ch, p.queue, p.retryDelay); err != nil {
		return pending, err
	}
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))

	for {
		if pending == nil {
			select {
			case <-ctx.Done():
				return nil, nil
			case amqpErr := <-closed:
				return nil, fmt.Errorf("connection closed: %v", amqpErr)
			case ev := <-p.buf:
				pending = &ev
			}
		}
		if err := p.publish(ctx, ch, *pending); err != nil {
			metrics.Notifications.WithLabelValues("publish", "error").Inc()
			return pending, err
		}
		metrics.Notifications.WithLabelValues("publish", "ok").Inc()
		pending = nil
	}
}

func (p *Publisher) publish(ctx context.Context, ch *amqp.Channel, ev NotificationEvent) error {
	body, err := ev.encode()
	if err != nil {
		// Unencodable events can never succeed.
		p.log.Error("encode notification", zap.String("id", ev.ID), zap.Error(err))
		return nil
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := ch.PublishWithContext(pctx, "", p.queue, false, false, persistent(body)); err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
