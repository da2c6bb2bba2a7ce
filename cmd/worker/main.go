package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/intellicase/backend/internal/db"
	"github.com/intellicase/backend/internal/queue"
	"github.com/intellicase/backend/internal/storage"
	"github.com/intellicase/backend/internal/util"
	"github.com/intellicase/backend/pkg/graph"
	"github.com/intellicase/backend/pkg/leaselock"
	"github.com/intellicase/backend/pkg/logger"
	"github.com/intellicase/backend/pkg/logger/console"
	pgxstore "github.com/intellicase/backend/pkg/store/pgx"

	amqp "github.com/rabbitmq/amqp091-go"
)

const maxRetries = 10

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  util.GetEnvBool("DEBUG", false),
		Format: util.GetEnv("LOG_FORMAT"),
	})
	logger.Init(consoleLogger)

	// Init s3 client
	client, err := storage.NewS3Client(ctx)
	if err != nil {
		logger.Fatal("Could not create s3 client", "err", err)
	}
	batches := storage.NewBatchStore(client, util.GetEnv("S3_BUCKET"))

	// Init pgx client
	pgConn, err := db.Connect(ctx, util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pgConn.Close()

	graphStore := pgxstore.NewGraphDBStorageWithConnection(pgConn)
	defer graphStore.Close()
	policy, err := graph.ParseLinkPolicy(util.GetEnv("LINK_POLICY"))
	if err != nil {
		logger.Fatal("Invalid link policy", "err", err)
	}
	engine, err := graph.NewMergeEngine(graph.NewMergeEngineParams{
		Store:      graphStore,
		LinkPolicy: policy,
		Parallel:   util.GetEnvInt("INGEST_PARALLEL", 4),
	})
	if err != nil {
		logger.Fatal("Could not create merge engine", "err", err)
	}

	// Init rabbitmq
	conn, err := queue.Connect(ctx)
	if err != nil {
		logger.Fatal("Failed to connect to rabbitmq", "err", err)
	}
	defer conn.Close()

	// Init rabbitmq queues if not exist
	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, queue.Queues); err != nil {
		logger.Fatal("Failed to declare queues", "err", err)
	}

	ingestor := &queue.Ingestor{
		Objects: batches,
		Locks:   leaselock.New(pgConn),
		Merger:  engine,
		PublishQueue: func(name string, data []byte) error {
			return queue.PublishFIFO(ch, name, data)
		},
		PublishTopic: func(topic string, data []byte) error {
			return queue.PublishTopic(ch, topic, data)
		},
	}

	staleAfter := time.Duration(util.GetEnvInt("STALE_BATCH_MINUTES", 60)) * time.Minute
	if err := ingestor.RecoverStaleBatches(ctx, staleAfter); err != nil {
		logger.Error("Failed to recover stale batches", "err", err)
	}

	logger.Info("Listening for messages")

	// Create a single consumer channel with prefetch=1
	// This ensures only ONE message is delivered at a time across all queues
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	err = consumerCh.Qos(1, 0, true)
	if err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	type queuedMessage struct {
		msg       amqp.Delivery
		queueName string
	}

	messageChan := make(chan queuedMessage)

	for _, queueName := range queue.Queues {
		go func(qName string) {
			consumerTag := fmt.Sprintf("%s_consumer", qName)
			msgs, err := consumerCh.Consume(
				qName,
				consumerTag,
				false, // autoAck
				false, // exclusive
				false, // noLocal
				false, // noWait
				nil,   // args
			)
			if err != nil {
				logger.Fatal("Failed to start consuming", "queue", qName, "err", err)
			}

			for {
				select {
				case <-ctx.Done():
					logger.Info("Stopping consumer", "queue", qName)
					return
				case msg, ok := <-msgs:
					if !ok {
						logger.Info("Message channel closed", "queue", qName)
						return
					}
					messageChan <- queuedMessage{msg: msg, queueName: qName}
				}
			}
		}(queueName)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping message processor")
				return
			case qm := <-messageChan:
				startTime := time.Now()
				logger.Info("Received message", "queue", qm.queueName)

				var processingErr error
				switch qm.queueName {
				case queue.IngestQueue:
					processingErr = ingestor.ProcessIngestMessage(ctx, qm.msg.Body)
				default:
					processingErr = fmt.Errorf("no handler for queue %s", qm.queueName)
				}

				// If there was an error send to retry or dead-letter, otherwise ack the message
				if processingErr != nil {
					logger.Error("Error processing message", "queue", qm.queueName, "err", processingErr)
					handleProcessingError(consumerCh, qm.msg, qm.queueName)
				} else {
					err := qm.msg.Ack(false)
					if err != nil {
						logger.Error("Failed to ack message", "err", err)
					}
					logger.Info("Message processed successfully", "queue", qm.queueName)
				}

				processingDuration := time.Since(startTime)
				hours := int(processingDuration.Hours())
				minutes := int(processingDuration.Minutes()) % 60
				seconds := int(processingDuration.Seconds()) % 60
				logger.Info(
					"Processing time",
					"duration", fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds),
				)
				logger.Info("Waiting for next message")
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
}

func handleProcessingError(ch *amqp.Channel, msg amqp.Delivery, queueName string) {
	retries := queue.RetryCount(msg.Headers)

	// If message has been retried too often, send to dead-letter
	if retries >= maxRetries {
		dlqName := queueName + "_dlq"
		logger.Info("Sending message to DLQ", "dlq", dlqName)
		pubErr := ch.Publish(
			"",
			dlqName,
			false,
			false,
			amqp.Publishing{
				ContentType: "application/json",
				Body:        msg.Body,
				Headers:     msg.Headers,
			},
		)
		if pubErr != nil {
			logger.Error("Failed to publish to DLQ", "dlq", dlqName, "err", pubErr)
			msg.Nack(false, true)
			return
		}
		msg.Ack(false)
		return
	}

	retryName := queueName + "_retry"
	headers := msg.Headers
	if headers == nil {
		headers = amqp.Table{}
	}
	headers["x-retries"] = int32(retries + 1)

	pubErr := ch.Publish(
		"",
		retryName,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        msg.Body,
			Headers:     headers,
		},
	)
	if pubErr != nil {
		logger.Error("Failed to publish to retry queue", "retry_queue", retryName, "err", pubErr)
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}
