package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"roomclean/internal/domain"
)

// Publisher sends one message to the broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload []byte) error
	Close() error
}

type RabbitPublisher struct {
	conn     *amqp.Connection
	exchange string
}

// NewRabbitPublisher dials url and declares a durable topic exchange.
func NewRabbitPublisher(url, exchange string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &RabbitPublisher{conn: conn, exchange: exchange}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	return ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         payload,
	})
}

func (p *RabbitPublisher) Close() error {
	return p.conn.Close()
}

// Event is the broker payload of a notification.
type Event struct {
	ID             int64                   `json:"id"`
	Kind           domain.NotificationKind `json:"kind"`
	RecipientID    int64                   `json:"recipient_id"`
	RecipientRole  domain.UserRole         `json:"recipient_role"`
	Title          string                  `json:"title"`
	Message        string                  `json:"message"`
	RelatedOrderID *int64                  `json:"related_order_id,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
}

// BrokerDeliverer fans notifications out to the broker, routed by kind.
type BrokerDeliverer struct {
	pub Publisher
}

func NewBrokerDeliverer(pub Publisher) *BrokerDeliverer {
	return &BrokerDeliverer{pub: pub}
}

func (b *BrokerDeliverer) Name() string { return "amqp" }

func (b *BrokerDeliverer) Deliver(ctx context.Context, n domain.Notification) error {
	payload, err := json.Marshal(Event{
		ID:             n.ID,
		Kind:           n.Kind,
		RecipientID:    n.RecipientID,
		RecipientRole:  n.RecipientRole,
		Title:          n.Title,
		Message:        n.Message,
		RelatedOrderID: n.RelatedOrderID,
		CreatedAt:      n.CreatedAt,
	})
	if err != nil {
		return err
	}
	return b.pub.Publish(ctx, RoutingKey(n), payload)
}

// RoutingKey is "notification.<role>.<kind>".
func RoutingKey(n domain.Notification) string {
	return fmt.Sprintf("notification.%s.%s", n.RecipientRole, n.Kind)
}
