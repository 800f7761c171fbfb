package rabbitmq

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"datamart/config"
	"datamart/pkg/logger"
)

// Handler processes one message body. A nil return acks the delivery.
type Handler func(ctx context.Context, body []byte) error

// PermanentError marks a message that can never succeed. It is rejected without
// requeue instead of being redelivered.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err as a PermanentError. A nil err stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  config.RabbitMQConfig
}

func NewConsumer(cfg config.RabbitMQConfig) (*Consumer, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := channel.Qos(cfg.PrefetchCount, 0, false); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	return &Consumer{
		conn:    conn,
		channel: channel,
		config:  cfg,
	}, nil
}

func (c *Consumer) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}

// ConsumeQueue declares queueName as durable and feeds its deliveries to handler until
// ctx is cancelled or the channel closes.
func (c *Consumer) ConsumeQueue(ctx context.Context, queueName string, handler Handler) error {
	_, err := c.channel.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	msgs, err := c.channel.Consume(
		queueName,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	logger.WithModule("rabbitmq").WithField("queue", queueName).Info("started consuming")
	return Deliver(ctx, queueName, msgs, handler)
}

// Deliver runs handler over msgs in order and settles each delivery: ack on success,
// reject on a PermanentError, nack with requeue otherwise. It returns nil when msgs is
// closed and ctx.Err() when ctx is done.
func Deliver(ctx context.Context, queueName string, msgs <-chan amqp.Delivery, handler Handler) error {
	log := logger.WithModule("rabbitmq").WithField("queue", queueName)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				log.Warn("delivery channel closed")
				return nil
			}
			settle(ctx, log, msg, handler)
		}
	}
}

func settle(ctx context.Context, log *logrus.Entry, msg amqp.Delivery, handler Handler) {
	entry := log.WithField("delivery_tag", msg.DeliveryTag)

	err := handler(ctx, msg.Body)
	switch {
	case err == nil:
		if ackErr := msg.Ack(false); ackErr != nil {
			entry.WithError(ackErr).Error("failed to ack message")
		}
	case IsPermanent(err):
		entry.WithError(err).Error("dropping message")
		if rejErr := msg.Reject(false); rejErr != nil {
			entry.WithError(rejErr).Error("failed to reject message")
		}
	default:
		entry.WithError(err).WithField("redelivered", msg.Redelivered).Warn("message failed, requeueing")
		if nackErr := msg.Nack(false, true); nackErr != nil {
			entry.WithError(nackErr).Error("failed to nack message")
		}
	}
}
