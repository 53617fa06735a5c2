package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	sharedBus "github.com/davicafu/jobberlab/internal/shared/infra/platform/bus"
)

type memQueue struct {
	name     string
	exchange string
	key      string
	ch       chan sharedBus.Delivery
}

// InMemoryEventBus emula exchanges direct/fanout con canales de Go.
// Una cola existe desde que alguien la consume; publicar en un exchange sin colas enlazadas
// descarta el mensaje, como hace el broker.
type InMemoryEventBus struct {
	mu         sync.RWMutex
	queues     map[string]*memQueue
	dead       map[string][]sharedBus.Delivery
	bufferSize int
	timeout    time.Duration
	log        *zap.Logger
}

func NewInMemoryEventBus(bufferSize int, handlerTimeout time.Duration, log *zap.Logger) *InMemoryEventBus {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &InMemoryEventBus{
		queues:     make(map[string]*memQueue),
		dead:       make(map[string][]sharedBus.Delivery),
		bufferSize: bufferSize,
		timeout:    handlerTimeout,
		log:        log,
	}
}

// Publish entrega una copia a cada cola enlazada: todas en un fanout, solo las de la misma
// routing key en un direct.
func (b *InMemoryEventBus) Publish(ctx context.Context, evt sharedBus.DomainEvent) error {
	if err := evt.Validate(); err != nil {
		return err
	}

	b.mu.RLock()
	var targets []*memQueue
	for _, q := range b.queues {
		if q.exchange != evt.Exchange {
			continue
		}
		if evt.Kind == sharedBus.Direct && q.key != evt.RoutingKey {
			continue
		}
		targets = append(targets, q)
	}
	b.mu.RUnlock()

	msgID := uuid.NewString()
	for _, q := range targets {
		d := sharedBus.Delivery{
			Body:       append([]byte(nil), evt.Payload...),
			MessageID:  msgID,
			Exchange:   evt.Exchange,
			RoutingKey: evt.RoutingKey,
		}
		select {
		case q.ch <- d:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Consume declara la cola (si no existe) y arranca un consumidor secuencial.
func (b *InMemoryEventBus) Consume(ctx context.Context, binding sharedBus.Binding, h sharedBus.MessageHandler) error {
	if err := binding.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	q, ok := b.queues[binding.Queue]
	if !ok {
		q = &memQueue{
			name:     binding.Queue,
			exchange: binding.Exchange,
			key:      binding.RoutingKey,
			ch:       make(chan sharedBus.Delivery, b.bufferSize),
		}
		b.queues[binding.Queue] = q
	}
	b.mu.Unlock()

	d := sharedBus.NewDispatcher(binding.Queue, h, b.timeout, b.log)
	go b.run(ctx, q, d)
	return nil
}

func (b *InMemoryEventBus) run(ctx context.Context, q *memQueue, d *sharedBus.Dispatcher) {
	for {
		select {
		case <-ctx.Done():
			b.log.Info("In-memory consumer stopped", zap.String("queue", q.name))
			return
		case msg := <-q.ch:
			switch d.Dispatch(ctx, msg) {
			case sharedBus.Requeue:
				msg.Redelivered = true
				go func() {
					select {
					case q.ch <- msg:
					case <-ctx.Done():
					}
				}()
			case sharedBus.DeadLetter:
				b.mu.Lock()
				b.dead[q.name] = append(b.dead[q.name], msg)
				b.mu.Unlock()
			}
		}
	}
}

// DeadLetters devuelve los mensajes descartados de una cola.
func (b *InMemoryEventBus) DeadLetters(queue string) []sharedBus.Delivery {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]sharedBus.Delivery(nil), b.dead[queue]...)
}

var (
	_ sharedBus.Publisher  = (*InMemoryEventBus)(nil)
	_ sharedBus.Subscriber = (*InMemoryEventBus)(nil)
)
