package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"alert-notification-service/internal/logging"
	"alert-notification-service/internal/metrics"
	"alert-notification-service/internal/utils"
)

// Outcome is what the consumer does with a message after its handler returns.
type Outcome int

const (
	// Ack commits the offset.
	Ack Outcome = iota
	// DeadLetter copies the message to the dead-letter topic, then commits.
	// The message is never redelivered from its original topic.
	DeadLetter
)

func (o Outcome) String() string {
	switch o {
	case Ack:
		return "ack"
	case DeadLetter:
		return "dead_letter"
	default:
		return "unknown"
	}
}

// Policy classifies a non-nil handler error.
type Policy func(err error) Outcome

// AlwaysAck is the policy of consumers whose failures must never block the stream.
func AlwaysAck(error) Outcome { return Ack }

// Reader is the subset of *kafka.Reader the consumer uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// DeadLetterer receives messages the policy rejected.
type DeadLetterer interface {
	DeadLetter(ctx context.Context, msg kafka.Message, cause error) error
}

type Handler interface {
	Handle(ctx context.Context, msg kafka.Message) error
}

type HandlerFunc func(ctx context.Context, msg kafka.Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg kafka.Message) error { return f(ctx, msg) }

type ConsumerConfig struct {
	Name    string
	Brokers []string
	GroupID string
	Topics  []string
	Workers int
}

// NewReader builds a consumer-group reader over several topics with manual commits.
func NewReader(cfg ConsumerConfig) (*kafka.Reader, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers cannot be empty")
	}
	if cfg.GroupID == "" {
		return nil, fmt.Errorf("groupID cannot be empty")
	}
	if len(cfg.Topics) == 0 {
		return nil, fmt.Errorf("topics cannot be empty")
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.FirstOffset,
	}), nil
}

// Consumer fetches from a Reader and hands messages to a worker pool. Messages of
// one partition always go to the same worker so commits stay in offset order.
type Consumer struct {
	name    string
	reader  Reader
	handler Handler
	policy  Policy
	dlq     DeadLetterer
	workers int
	logger  *logging.Logger
	metrics *metrics.Metrics

	// dlqBackoff paces dead-letter retries while the partition is held.
	dlqBackoff utils.Backoff
}

func NewConsumer(name string, reader Reader, handler Handler, policy Policy, dlq DeadLetterer, workers int, logger *logging.Logger, m *metrics.Metrics) *Consumer {
	if workers < 1 {
		workers = 1
	}
	if policy == nil {
		policy = AlwaysAck
	}
	return &Consumer{
		name:    name,
		reader:  reader,
		handler: handler,
		policy:  policy,
		dlq:     dlq,
		workers: workers,
		logger:  logger,
		metrics: m,

		dlqBackoff: utils.Backoff{BaseDelay: 500 * time.Millisecond, MaxDelay: 30 * time.Second},
	}
}

// Start runs the fetch loop and workers until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context, wg *sync.WaitGroup) {
	queues := make([]chan kafka.Message, c.workers)
	for i := range queues {
		queues[i] = make(chan kafka.Message, 100)
		wg.Add(1)
		go c.worker(ctx, i, queues[i], wg)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			for _, q := range queues {
				close(q)
			}
		}()
		c.logger.Infof("Kafka consumer %s started with %d workers", c.name, c.workers)

		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, context.Canceled) {
					c.logger.Infof("Kafka consumer %s stopping", c.name)
					return
				}
				c.logger.Errorf("Consumer %s fetch failed: %v", c.name, err)
				continue
			}
			q := queues[msg.Partition%c.workers]
			select {
			case q <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (c *Consumer) worker(ctx context.Context, id int, queue <-chan kafka.Message, wg *sync.WaitGroup) {
	defer wg.Done()
	for msg := range queue {
		if _, err := c.Process(ctx, msg); err != nil && ctx.Err() != nil {
			// A later commit would cover the unsettled offset.
			c.logger.Warnf("Consumer %s worker %d stopped on unsettled %s[%d]@%d", c.name, id, msg.Topic, msg.Partition, msg.Offset)
			return
		}
	}
	c.logger.Debugf("Consumer %s worker %d stopped", c.name, id)
}

// Process runs the handler on one message and settles it per the policy. It
// returns the applied outcome. A dead-letter write is retried until it succeeds
// or ctx ends; in the latter case the offset is left uncommitted.
func (c *Consumer) Process(ctx context.Context, msg kafka.Message) (Outcome, error) {
	correlationID := CorrelationID(msg)
	log := c.logger.WithCorrelation(correlationID)

	outcome := Ack
	err := c.handler.Handle(ctx, msg)
	if err != nil {
		outcome = c.policy(err)
		log.Warnf("Consumer %s handler failed on %s[%d]@%d (%s): %v", c.name, msg.Topic, msg.Partition, msg.Offset, outcome, err)
	}

	if outcome == DeadLetter {
		if dlqErr := c.deadLetter(ctx, msg, err); dlqErr != nil {
			log.Errorf("Consumer %s could not dead-letter %s@%d, leaving uncommitted: %v", c.name, msg.Topic, msg.Offset, dlqErr)
			c.metrics.ConsumerMessage(c.name, "uncommitted")
			return outcome, dlqErr
		}
	}

	if cErr := c.reader.CommitMessages(ctx, msg); cErr != nil {
		log.Errorf("Consumer %s commit failed for %s@%d: %v", c.name, msg.Topic, msg.Offset, cErr)
		c.metrics.ConsumerMessage(c.name, "uncommitted")
		return outcome, cErr
	}
	c.metrics.ConsumerMessage(c.name, outcome.String())
	return outcome, nil
}

// deadLetter holds the partition until msg reaches the dead-letter topic.
func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message, cause error) error {
	for attempt := 1; ; attempt++ {
		err := c.dlq.DeadLetter(ctx, msg, cause)
		if err == nil {
			return nil
		}
		c.logger.Errorf("Consumer %s dead-letter attempt %d for %s@%d failed: %v", c.name, attempt, msg.Topic, msg.Offset, err)
		if sErr := utils.Sleep(ctx, c.dlqBackoff.Delay(attempt)); sErr != nil {
			return fmt.Errorf("dead-letter abandoned after %d attempts: %w", attempt, errors.Join(err, sErr))
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
