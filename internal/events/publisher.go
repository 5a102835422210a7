package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"

	applog "walletwatch/internal/log"
	"walletwatch/internal/model"
)

// EventNotificationRecorded is the event name carried in every message.
const EventNotificationRecorded = "notification.recorded"

// NotificationEvent is the JSON body published after a notification is stored.
type NotificationEvent struct {
	Event          string    `json:"event"`
	NotificationID uint      `json:"notificationId"`
	UserID         uint      `json:"userId"`
	Type           string    `json:"type"`
	Message        string    `json:"message"`
	SentAt         time.Time `json:"sentAt"`
}

func newNotificationEvent(n model.Notification) NotificationEvent {
	return NotificationEvent{
		Event:          EventNotificationRecorded,
		NotificationID: n.ID,
		UserID:         n.UserID,
		Type:           string(n.Type),
		Message:        n.Message,
		SentAt:         n.SentAt,
	}
}

// RoutingKey is notification.<type>, so consumers can bind to one kind.
func RoutingKey(t model.NotificationType) string {
	return "notification." + string(t)
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// AMQPPublisher publishes notification events to a durable topic exchange.
type AMQPPublisher struct {
	conn     *amqp091.Connection
	channel  channel
	exchange string
	logger   *slog.Logger
}

func NewAMQPPublisher(url, exchange string, logger *slog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &AMQPPublisher{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		logger:   applog.WithComponent(logger, applog.ComponentAMQP),
	}, nil
}

func (p *AMQPPublisher) PublishNotification(ctx context.Context, n model.Notification) error {
	body, err := json.Marshal(newNotificationEvent(n))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,         // exchange
		RoutingKey(n.Type), // routing key
		false,              // mandatory
		false,              // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	p.logger.DebugContext(ctx, "Published notification event",
		"notification_id", n.ID,
		applog.FieldUserID, n.UserID,
		"exchange", p.exchange)
	return nil
}

func (p *AMQPPublisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
