package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/example/foodorder/internal/models"
)

const (
	EventOrderPlaced        = "order.placed"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderEvent is published after an order transaction commits.
type OrderEvent struct {
	Type        string             `json:"type"`
	OrderID     uuid.UUID          `json:"order_id"`
	UserID      uuid.UUID          `json:"user_id"`
	OrderType   models.OrderType   `json:"order_type"`
	Status      models.OrderStatus `json:"status"`
	BranchID    *uuid.UUID         `json:"branch_id,omitempty"`
	Total       int64              `json:"total"`
	Discount    int64              `json:"discount"`
	BonusUsed   int64              `json:"bonus_used"`
	BonusEarned int64              `json:"bonus_earned"`
	PromoCode   string             `json:"promo_code,omitempty"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

func newOrderEvent(kind string, order *models.Order, at time.Time) OrderEvent {
	return OrderEvent{
		Type:        kind,
		OrderID:     order.ID,
		UserID:      order.UserID,
		OrderType:   order.Type,
		Status:      order.Status,
		BranchID:    order.BranchID,
		Total:       order.Total,
		Discount:    order.Discount,
		BonusUsed:   order.BonusUsed,
		BonusEarned: order.BonusEarned,
		PromoCode:   order.PromoCode,
		OccurredAt:  at,
	}
}

// Publisher delivers order events to downstream consumers such as analytics.
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, OrderEvent) error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher writes events keyed by order id so one order's events stay ordered.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher wraps a kafka writer.
func NewKafkaPublisher(writer messageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

// NewKafkaWriter builds the writer used by NewKafkaPublisher.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OrderID.String()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	})
}
