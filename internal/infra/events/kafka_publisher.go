package events

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	sharedBus "github.com/davicafu/jobberlab/internal/shared/infra/platform/bus"
)

// TopicFor traduce exchange + routing key a un topic de Kafka:
// direct -> "<exchange>.<routingKey>", fanout -> "<exchange>".
func TopicFor(exchange string, kind sharedBus.ExchangeKind, routingKey string) string {
	if kind == sharedBus.Fanout || routingKey == "" {
		return exchange
	}
	return exchange + "." + routingKey
}

// MessageWriter es la parte de *kafka.Writer que usa el publisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewKafkaWriter crea un writer sin topic fijo: cada mensaje lleva el suyo.
func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

type KafkaPublisher struct {
	writer MessageWriter
	log    *zap.Logger
}

func NewKafkaPublisher(writer MessageWriter, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, log: log}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt sharedBus.DomainEvent) error {
	if err := evt.Validate(); err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: TopicFor(evt.Exchange, evt.Kind, evt.RoutingKey),
		Key:   []byte(evt.RoutingKey),
		Value: evt.Payload,
		Headers: []kafka.Header{
			{Key: "message-id", Value: []byte(uuid.NewString())},
			{Key: "correlation-id", Value: []byte(evt.CorrelationHint)},
			{Key: "exchange", Value: []byte(evt.Exchange)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("Error publishing to Kafka", zap.String("topic", msg.Topic), zap.Error(err))
		return fmt.Errorf("%w: %w", sharedBus.ErrPublish, err)
	}

	p.log.Debug("Event published successfully", zap.String("topic", msg.Topic))
	return nil
}

// Verificación estática
var _ sharedBus.Publisher = (*KafkaPublisher)(nil)
