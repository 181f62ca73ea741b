// Package events carries order lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"storefront/internal/logger"
	"storefront/internal/models"

	"github.com/segmentio/kafka-go"
)

const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
)

type Event struct {
	Type      string                 `json:"type"`
	OrderID   string                 `json:"order_id"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// OrderCreated builds the event emitted once an order is committed.
func OrderCreated(order *models.Order) Event {
	return Event{
		Type:    TypeOrderCreated,
		OrderID: order.ID,
		Data: map[string]interface{}{
			"order_number":   order.OrderNumber,
			"status":         string(order.Status),
			"customer_email": order.CustomerEmail,
			"customer_name":  order.CustomerName,
			"total":          order.Total.StringFixed(2),
			"payment_method": string(order.PaymentMethod),
		},
		Timestamp: time.Now().UTC(),
	}
}

func StatusChanged(order *models.Order, from models.OrderStatus) Event {
	return Event{
		Type:    TypeOrderStatusChanged,
		OrderID: order.ID,
		Data: map[string]interface{}{
			"order_number":   order.OrderNumber,
			"customer_email": order.CustomerEmail,
			"from":           string(from),
			"to":             string(order.Status),
		},
		Timestamp: time.Now().UTC(),
	}
}

// Publisher delivers events. Publishing is best-effort; callers log failures.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type KafkaPublisher struct {
	writer *kafka.Writer
	logger *logger.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			WriteTimeout:           10 * time.Second,
			AllowAutoTopicCreation: true,
		},
		logger: logger,
	}
}

// Publish keys messages by order id so one order's events stay ordered.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OrderID),
		Value: value,
		Time:  event.Timestamp,
	})
	if err != nil {
		return err
	}
	p.logger.Debug("Published %s for order %s", event.Type, event.OrderID)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops events; used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *Recorder) Close() error { return nil }
