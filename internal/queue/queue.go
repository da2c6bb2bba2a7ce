package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/intellicase/backend/internal/util"
	"github.com/intellicase/backend/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

const (
	// IngestQueue carries IngestBatchMsg messages.
	IngestQueue = "ingest_queue"
	// EventExchange is the topic exchange batch outcomes are published on.
	EventExchange = "pubsub_exchange"
	// TopicIngestCompleted is the routing key of IngestCompletedEvent.
	TopicIngestCompleted = "ingest.completed"

	retryTTL = int32(10000)
)

// Queues lists every work queue the worker consumes.
var Queues = []string{IngestQueue}

func connURL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		util.GetEnv("RABBITMQ_USER"),
		util.GetEnv("RABBITMQ_PASSWORD"),
		util.GetEnv("RABBITMQ_HOST"),
		util.GetEnvString("RABBITMQ_PORT", "5672"),
	)
}

// Connect dials RabbitMQ, retrying while the broker is starting up.
func Connect(ctx context.Context) (*amqp091.Connection, error) {
	url := connURL()
	return util.RetryWithContext(ctx, 10, 2*time.Second, func(ctx context.Context) (*amqp091.Connection, error) {
		conn, err := amqp091.Dial(url)
		if err != nil {
			logger.Warn("[Queue] RabbitMQ not reachable yet", "err", err)
		}
		return conn, err
	})
}

// SetupQueues declares every queue together with its _retry queue, which
// dead-letters back after a delay, and its _dlq.
func SetupQueues(ch *amqp091.Channel, queueNames []string) error {
	err := ch.ExchangeDeclare(
		EventExchange,
		"topic",
		false,
		true,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("exchange declare failed: %w", err)
	}

	for _, name := range queueNames {
		_, err := ch.QueueDeclare(
			name,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,   // args
		)
		if err != nil {
			return fmt.Errorf("queue declare %s failed: %w", name, err)
		}

		dlqName := name + "_dlq"
		_, err = ch.QueueDeclare(dlqName, true, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue declare %s failed: %w", dlqName, err)
		}

		retryName := name + "_retry"
		_, err = ch.QueueDeclare(
			retryName,
			true,
			false,
			false,
			false,
			amqp091.Table{
				"x-message-ttl":             retryTTL,
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": name,
			},
		)
		if err != nil {
			return fmt.Errorf("queue declare %s failed: %w", retryName, err)
		}
	}

	return nil
}

func PublishFIFO(ch *amqp091.Channel, queueName string, data []byte) error {
	q, err := ch.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	return ch.Publish(
		"",
		q.Name,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         data,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
		},
	)
}

func PublishTopic(ch *amqp091.Channel, topic string, data []byte) error {
	return ch.Publish(
		EventExchange,
		topic,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         data,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
		},
	)
}

// RetryCount reads the x-retries header set by the worker.
func RetryCount(headers amqp091.Table) int {
	switch v := headers["x-retries"].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
