// internal/common/bus/consumer.go
package bus

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"reminder-workers/internal/common/config"
	stderrors "reminder-workers/internal/common/errors"
	"reminder-workers/internal/common/logger"
)

// Handler consumes one named domain event. Handle must be safe to re-run:
// the bus delivers at-least-once and a nacked message comes back.
type Handler interface {
	EventName() string
	Handle(ctx context.Context, data json.RawMessage) error
}

// Consumer subscribes the registered handlers to the domain-events topic
// exchange, one binding per event name, with manual acknowledgement.
type Consumer struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	cfg      config.BusConfig
	handlers map[string]Handler
	logger   logger.Logger
}

func NewConsumer(cfg config.BusConfig, log logger.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}

	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set prefetch: %w", err)
	}

	return &Consumer{
		conn:     conn,
		channel:  ch,
		cfg:      cfg,
		handlers: make(map[string]Handler),
		logger:   log.WithFields(map[string]interface{}{"component": "event-bus"}),
	}, nil
}

// Register binds a handler to its event name. Must be called before Start.
func (c *Consumer) Register(h Handler) {
	c.handlers[h.EventName()] = h
}

// Start declares the queue, binds every registered event name, and
// consumes until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	queue, err := c.channel.QueueDeclare(c.cfg.QueueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", c.cfg.QueueName, err)
	}

	for name := range c.handlers {
		if err := c.channel.QueueBind(queue.Name, name, c.cfg.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind %s: %w", name, err)
		}
	}

	deliveries, err := c.channel.Consume(queue.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.Info("event bus consumer started", map[string]interface{}{
		"queue":  queue.Name,
		"events": len(c.handlers),
	})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				c.dispatch(ctx, d)
			}
		}
	}()
	return nil
}

// dispatch routes one delivery. Poison messages (unknown event, schema
// violation) are rejected without requeue; retryable handler errors go
// back on the queue for the substrate's at-least-once retry.
func (c *Consumer) dispatch(ctx context.Context, d amqp.Delivery) {
	eventName := d.RoutingKey
	log := c.logger.WithFields(map[string]interface{}{"event": eventName})

	handler, ok := c.handlers[eventName]
	if !ok {
		log.Warn("no handler for event, dropping", nil)
		_ = d.Nack(false, false)
		return
	}

	if err := ValidateEvent(eventName, d.Body); err != nil {
		log.WithError(err).Error("event failed schema validation", nil)
		_ = d.Nack(false, false)
		return
	}

	if err := handler.Handle(ctx, d.Body); err != nil {
		requeue := stderrors.IsRetryable(err)
		log.WithError(err).Error("event handler failed", map[string]interface{}{
			"requeue": requeue,
		})
		_ = d.Nack(false, requeue)
		return
	}

	_ = d.Ack(false)
}

func (c *Consumer) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
