package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"storefront/internal/config"
	"storefront/internal/events"
	"storefront/internal/logger"
	"storefront/internal/worker/processors"

	"github.com/cenkalti/backoff"
	"github.com/segmentio/kafka-go"
	"gorm.io/gorm"
)

// MessageSource is the part of a kafka consumer group reader the worker uses.
type MessageSource interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EventHandler handles one decoded order event.
type EventHandler interface {
	Process(ctx context.Context, event events.Event) error
}

type Worker struct {
	config   *config.Config
	logger   *logger.Logger
	source   MessageSource
	handler  EventHandler
	retryMin time.Duration
	retryMax time.Duration
}

func New(cfg *config.Config, logger *logger.Logger, db *gorm.DB) *Worker {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers(),
		GroupID:        cfg.WorkerGroupID,
		Topic:          cfg.OrderEventsTopic,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: 0,
	})

	return NewWithSource(cfg, logger, reader, processors.NewEventProcessor(db, logger))
}

func NewWithSource(cfg *config.Config, logger *logger.Logger, source MessageSource, handler EventHandler) *Worker {
	return &Worker{
		config:   cfg,
		logger:   logger,
		source:   source,
		handler:  handler,
		retryMin: 200 * time.Millisecond,
		retryMax: 30 * time.Second,
	}
}

// Start consumes order events until ctx is cancelled. A message is committed
// only once it has been handled; a failing event is retried in place so later
// commits never skip past it.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Worker started, listening for %s events...", w.config.OrderEventsTopic)

	for {
		message, err := w.source.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			w.logger.Error("Failed to read message: %v", err)
			time.Sleep(time.Second)
			continue
		}

		if err := w.handle(ctx, message); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (w *Worker) handle(ctx context.Context, message kafka.Message) error {
	w.logger.Debug("Received message: %s", string(message.Value))

	var event events.Event
	if err := json.Unmarshal(message.Value, &event); err != nil {
		// poison message: commit past it
		w.logger.Error("Failed to parse event at offset %d: %v", message.Offset, err)
		return w.commit(ctx, message)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = w.retryMin
	policy.MaxInterval = w.retryMax
	policy.MaxElapsedTime = 0

	err := backoff.RetryNotify(
		func() error { return w.handler.Process(ctx, event) },
		backoff.WithContext(policy, ctx),
		func(err error, wait time.Duration) {
			w.logger.Error("Failed to process event %s for order %s, retrying in %s: %v", event.Type, event.OrderID, wait, err)
		},
	)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	w.logger.Debug("Event %s for order %s processed", event.Type, event.OrderID)
	return w.commit(ctx, message)
}

func (w *Worker) commit(ctx context.Context, message kafka.Message) error {
	if err := w.source.CommitMessages(ctx, message); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.logger.Error("Failed to commit offset %d: %v", message.Offset, err)
		return err
	}
	return nil
}

func (w *Worker) Stop() error {
	w.logger.Info("Stopping worker...")
	return w.source.Close()
}
