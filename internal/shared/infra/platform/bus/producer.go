package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	sharedDomain "github.com/davicafu/jobberlab/internal/shared/domain"
	"github.com/davicafu/jobberlab/internal/shared/infra/metrics"
)

// Producer envuelve un Publisher con la política de los servicios:
// si la publicación falla se registra, se cuenta y el evento se guarda en el outbox
// para que el relayer lo reenvíe. Solo devuelve error si el evento se pierde.
type Producer struct {
	publisher Publisher
	outbox    sharedDomain.OutboxRepository
	log       *zap.Logger
}

// NewProducer crea un Producer. outbox puede ser nil (sin reintento diferido).
func NewProducer(publisher Publisher, outbox sharedDomain.OutboxRepository, log *zap.Logger) *Producer {
	return &Producer{publisher: publisher, outbox: outbox, log: log}
}

// PublishJSON serializa payload y lo emite en ex.
func (p *Producer) PublishJSON(ctx context.Context, ex Exchange, routingKey string, payload any, logMessage string) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: marshal payload: %v", ErrPublish, err)
	}
	return p.Emit(ctx, NewEvent(ex, routingKey, data, logMessage), logMessage)
}

func (p *Producer) Emit(ctx context.Context, evt DomainEvent, logMessage string) error {
	if err := evt.Validate(); err != nil {
		return err
	}

	err := p.publisher.Publish(ctx, evt)
	if err == nil {
		metrics.IncPublished(evt.Exchange, true)
		p.log.Info(logMessage,
			zap.String("exchange", evt.Exchange),
			zap.String("routing_key", evt.RoutingKey),
		)
		return nil
	}

	metrics.IncPublished(evt.Exchange, false)
	p.log.Warn("⚠️ Publicación fallida, se deriva al outbox",
		zap.String("exchange", evt.Exchange),
		zap.String("routing_key", evt.RoutingKey),
		zap.Error(err),
	)

	if p.outbox == nil {
		return err
	}

	stored := sharedDomain.OutboxEvent{
		ID:         uuid.New(),
		Exchange:   evt.Exchange,
		Kind:       string(evt.Kind),
		RoutingKey: evt.RoutingKey,
		Payload:    evt.Payload,
		Hint:       evt.CorrelationHint,
		CreatedAt:  time.Now().UTC(),
		Attempts:   1,
		LastError:  sharedDomain.FailureText(err),
	}
	if saveErr := p.outbox.Enqueue(context.WithoutCancel(ctx), stored); saveErr != nil {
		p.log.Error("Evento perdido: no se pudo guardar en el outbox",
			zap.String("exchange", evt.Exchange),
			zap.Error(saveErr),
		)
		return fmt.Errorf("%w: %w (outbox: %v)", ErrPublish, err, saveErr)
	}
	return nil
}

// FromOutbox reconstruye el sobre de un evento guardado.
func FromOutbox(evt sharedDomain.OutboxEvent) DomainEvent {
	return DomainEvent{
		Exchange:        evt.Exchange,
		Kind:            ExchangeKind(evt.Kind),
		RoutingKey:      evt.RoutingKey,
		Payload:         evt.Payload,
		CorrelationHint: evt.Hint,
	}
}
