package rabbitmq

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	amqp "github.com/streadway/amqp"
)

// DefaultQueue receives ingestion events.
const DefaultQueue = "ingest_events"

// Event is the JSON envelope of every published message.
type Event struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	log     logrus.FieldLogger

	// amqp channels are not safe for concurrent publishing.
	mu sync.Mutex
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL   string
	Queue string
}

// NewClient connects to RabbitMQ, opens a channel and declares the queue.
func NewClient(cfg Config, log logrus.FieldLogger) (*Client, error) {
	if cfg.Queue == "" {
		cfg.Queue = DefaultQueue
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := declare(ch, cfg.Queue); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare %s: %w", cfg.Queue, err)
	}

	log.WithField("queue", cfg.Queue).Info("RabbitMQ client connected")
	return &Client{
		conn:    conn,
		channel: ch,
		queue:   cfg.Queue,
		log:     log,
	}, nil
}

// declare creates the durable queue if it does not exist.
func declare(ch *amqp.Channel, name string) (amqp.Queue, error) {
	return ch.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
}

// Close closes the RabbitMQ channel and connection.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred during RabbitMQ client close: %v", errs)
	}
	return nil
}

// Encode wraps payload in an Event envelope.
func Encode(eventType string, payload interface{}, at time.Time) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return json.Marshal(Event{Type: eventType, OccurredAt: at.UTC(), Data: data})
}

// PublishEvent publishes a persistent JSON event to the client's queue.
func (c *Client) PublishEvent(eventType string, payload interface{}) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}
	now := time.Now()
	body, err := Encode(eventType, payload, now)
	if err != nil {
		return err
	}

	c.mu.Lock()
	err = c.channel.Publish(
		"",      // default exchange
		c.queue, // routing key: the queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         eventType,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    now,
		})
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.log.WithFields(logrus.Fields{"queue": c.queue, "type": eventType}).Debug("Event published")
	return nil
}

// ConsumeEvents delivers every event on the queue to handler until the
// channel closes. A handler error requeues the message once; a message that
// fails again after redelivery, or cannot be decoded, is dropped.
func (c *Client) ConsumeEvents(handler func(Event) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	queue, err := declare(c.channel, c.queue)
	if err != nil {
		return fmt.Errorf("failed to declare queue for consuming: %w", err)
	}

	msgs, err := c.channel.Consume(
		queue.Name,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	for msg := range msgs {
		log := c.log.WithField("delivery_tag", msg.DeliveryTag)
		var ev Event
		if err := json.Unmarshal(msg.Body, &ev); err != nil {
			log.WithError(err).Warn("Undecodable event dropped")
			if err := msg.Nack(false, false); err != nil {
				log.WithError(err).Error("Nack failed")
			}
			continue
		}
		if err := handler(ev); err != nil {
			log.WithError(err).Warn("Event handler failed")
			if err := msg.Nack(false, !msg.Redelivered); err != nil {
				log.WithError(err).Error("Nack failed")
			}
			continue
		}
		if err := msg.Ack(false); err != nil {
			log.WithError(err).Error("Ack failed")
		}
	}
	return nil
}
