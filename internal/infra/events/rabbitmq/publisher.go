package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	sharedBus "github.com/davicafu/jobberlab/internal/shared/infra/platform/bus"
)

const defaultAcquireTimeout = 5 * time.Second

// ChannelProvider reparte canales. Lo implementa ConnectionManager.
type ChannelProvider interface {
	AcquireChannel(ctx context.Context) (Channel, error)
	NewChannel(ctx context.Context) (Channel, error)
}

// Publisher publica DomainEvents en RabbitMQ. Declara el exchange (durable, idempotente)
// antes de cada publicación y nunca declara colas.
type Publisher struct {
	conns          ChannelProvider
	acquireTimeout time.Duration
	log            *zap.Logger

	turn chan struct{} // el canal compartido se usa de forma serializada
}

func NewPublisher(conns ChannelProvider, log *zap.Logger) *Publisher {
	return &Publisher{conns: conns, acquireTimeout: defaultAcquireTimeout, log: log, turn: make(chan struct{}, 1)}
}

func (p *Publisher) Publish(ctx context.Context, evt sharedBus.DomainEvent) error {
	if err := evt.Validate(); err != nil {
		return err
	}

	// Con el broker caído no se bloquea al llamador más que acquireTimeout.
	acquireCtx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	defer cancel()

	select {
	case p.turn <- struct{}{}:
	case <-acquireCtx.Done():
		return fmt.Errorf("%w: %w: %w", sharedBus.ErrPublish, sharedBus.ErrConnection, acquireCtx.Err())
	}
	defer func() { <-p.turn }()

	ch, err := p.conns.AcquireChannel(acquireCtx)
	if err != nil {
		return fmt.Errorf("%w: %w", sharedBus.ErrPublish, err)
	}

	if err := ch.ExchangeDeclare(evt.Exchange, string(evt.Kind), true, false, false, false, nil); err != nil {
		return fmt.Errorf("%w: declare exchange %s: %w", sharedBus.ErrPublish, evt.Exchange, err)
	}

	msg := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     uuid.NewString(),
		CorrelationId: evt.CorrelationHint,
		Timestamp:     time.Now().UTC(),
		Body:          evt.Payload,
	}
	if err := ch.PublishWithContext(ctx, evt.Exchange, evt.RoutingKey, false, false, msg); err != nil {
		return fmt.Errorf("%w: %w", sharedBus.ErrPublish, err)
	}

	p.log.Debug("Event published",
		zap.String("exchange", evt.Exchange),
		zap.String("routing_key", evt.RoutingKey),
		zap.String("message_id", msg.MessageId),
	)
	return nil
}

var _ sharedBus.Publisher = (*Publisher)(nil)
