package events

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	sharedEvents "github.com/davicafu/jobberlab/internal/shared/events"
	sharedBus "github.com/davicafu/jobberlab/internal/shared/infra/platform/bus"
)

// MessageReader es la parte de *kafka.Reader que usa el suscriptor.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ReaderFactory crea un reader para un topic y un consumer group.
type ReaderFactory func(topic, groupID string) MessageReader

// NewKafkaReaderFactory crea readers reales. El nombre de la cola es el group id,
// así cada cola enlazada a un fanout recibe todos los mensajes.
func NewKafkaReaderFactory(brokers []string) ReaderFactory {
	return func(topic, groupID string) MessageReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 10e6, // 10MB
		})
	}
}

// KafkaSubscriber implementa sharedBus.Subscriber sobre consumer groups.
// Kafka no tiene requeue: un Requeue se reintenta una vez en proceso marcado como
// redistribuido, y un DeadLetter se publica en el topic "<cola>.dead" antes de confirmar.
type KafkaSubscriber struct {
	readers ReaderFactory
	dead    MessageWriter
	timeout time.Duration
	log     *zap.Logger
}

func NewKafkaSubscriber(readers ReaderFactory, dead MessageWriter, handlerTimeout time.Duration, log *zap.Logger) *KafkaSubscriber {
	return &KafkaSubscriber{readers: readers, dead: dead, timeout: handlerTimeout, log: log}
}

func (s *KafkaSubscriber) Consume(ctx context.Context, b sharedBus.Binding, h sharedBus.MessageHandler) error {
	if err := b.Validate(); err != nil {
		return err
	}

	topic := TopicFor(b.Exchange, b.Kind, b.RoutingKey)
	reader := s.readers(topic, b.Queue)
	dispatcher := sharedBus.NewDispatcher(b.Queue, h, s.timeout, s.log)

	s.log.Info("🎧 Iniciando consumidor de Kafka...",
		zap.String("topic", topic),
		zap.String("group", b.Queue),
	)

	go s.run(ctx, b, reader, dispatcher)
	return nil
}

func (s *KafkaSubscriber) run(ctx context.Context, b sharedBus.Binding, reader MessageReader, d *sharedBus.Dispatcher) {
	defer reader.Close()

	for {
		// FetchMessage es bloqueante y no confirma el offset.
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				s.log.Info("Consumidor de Kafka detenido.", zap.String("queue", b.Queue))
				return
			}
			s.log.Error("Error al leer mensaje de Kafka", zap.String("queue", b.Queue), zap.Error(err))
			continue
		}

		delivery := sharedBus.Delivery{
			Body:       msg.Value,
			MessageID:  header(msg, "message-id"),
			Exchange:   b.Exchange,
			RoutingKey: string(msg.Key),
		}

		outcome := d.Dispatch(ctx, delivery)
		if outcome == sharedBus.Requeue {
			// Tras un fallo en la entrega redistribuida el Dispatcher devuelve Ack o DeadLetter.
			delivery.Redelivered = true
			outcome = d.Dispatch(ctx, delivery)
		}

		if outcome == sharedBus.DeadLetter && s.dead != nil {
			deadMsg := kafka.Message{Topic: sharedEvents.DeadLetterQueue(b.Queue), Key: msg.Key, Value: msg.Value, Headers: msg.Headers}
			if err := s.dead.WriteMessages(ctx, deadMsg); err != nil {
				// Sin confirmar: el grupo lo volverá a leer tras un rebalanceo.
				s.log.Error("No se pudo enviar a dead-letter", zap.String("queue", b.Queue), zap.Error(err))
				continue
			}
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			s.log.Warn("Failed to commit Kafka offset", zap.String("queue", b.Queue), zap.Error(err))
		}
	}
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

var _ sharedBus.Subscriber = (*KafkaSubscriber)(nil)
