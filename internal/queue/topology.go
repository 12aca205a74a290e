package queue

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// retryQueue names the delay queue paired with queue.  Messages parked
// there dead-letter back into queue once their TTL runs out.
func retryQueue(queue string) string { return queue + ".retry" }

// declare makes both queues exist (idempotent).  Both are durable so
// pending mail survives a broker restart.
func declare(ch *amqp.Channel, queue string, delay time.Duration) error {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare %s: %w", queue, err)
	}
	args := amqp.Table{
		"x-message-ttl":             delay.Milliseconds(),
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": queue,
	}
	if _, err := ch.QueueDeclare(retryQueue(queue), true, false, false, false, args); err != nil {
		return fmt.Errorf("queue declare %s: %w", retryQueue(queue), err)
	}
	return nil
}

func persistent(body []byte) amqp.Publishing {
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
}
