// Package kafka wraps the segmentio writer used to relay outbox events.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/smartcanteen/canteen-backend/pkg/config"
	"github.com/smartcanteen/canteen-backend/pkg/logger"
)

// Message is the transport-neutral record handed to Publish.
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
	Time    time.Time
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type dialFunc func(ctx context.Context, network, address string) (*kafka.Conn, error)

// Client publishes synchronously so the outbox only marks rows published after
// every replica acknowledged the write.
type Client struct {
	writer  messageWriter
	brokers []string
	dial    dialFunc
	timeout time.Duration
}

// New builds a writer that routes each message by its own topic.
func New(cfg config.KafkaConfig, logg *logger.Logger) (*Client, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		WriteTimeout:           cfg.WriteTimeout,
		AllowAutoTopicCreation: false,
	}
	if logg != nil {
		logg.Info(logg.WithField(context.Background(), "brokers", cfg.Brokers), "kafka writer configured")
	}
	return newClient(writer, cfg.Brokers, cfg.WriteTimeout, kafka.DialContext), nil
}

func newClient(w messageWriter, brokers []string, timeout time.Duration, dial dialFunc) *Client {
	return &Client{writer: w, brokers: brokers, dial: dial, timeout: timeout}
}

// Publish writes one message and waits for the broker acknowledgement.
func (c *Client) Publish(ctx context.Context, msg Message) error {
	if c == nil || c.writer == nil {
		return errors.New("kafka client not initialized")
	}
	if msg.Topic == "" {
		return errors.New("topic is required")
	}
	if msg.Time.IsZero() {
		msg.Time = time.Now().UTC()
	}
	headers := make([]kafka.Header, 0, len(msg.Headers))
	for k, v := range msg.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	err := c.writer.WriteMessages(ctx, kafka.Message{
		Topic:   msg.Topic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
		Time:    msg.Time,
	})
	if err != nil {
		return fmt.Errorf("write to %s: %w", msg.Topic, err)
	}
	return nil
}

// Ping opens and closes a connection to the first reachable broker.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.dial == nil {
		return errors.New("kafka client not initialized")
	}
	var errs []error
	for _, broker := range c.brokers {
		conn, err := c.dial(ctx, "tcp", broker)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		return conn.Close()
	}
	return fmt.Errorf("no kafka broker reachable: %w", errors.Join(errs...))
}

// Close flushes and closes the writer.
func (c *Client) Close() error {
	if c == nil || c.writer == nil {
		return nil
	}
	return c.writer.Close()
}
