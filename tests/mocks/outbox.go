package mocks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	sharedDomain "github.com/davicafu/jobberlab/internal/shared/domain"
	sharedBus "github.com/davicafu/jobberlab/internal/shared/infra/platform/bus"
)

// MockOutboxRepository simula el repositorio de outbox.
type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Enqueue(ctx context.Context, evt sharedDomain.OutboxEvent) error {
	return m.Called(ctx, evt).Error(0)
}

func (m *MockOutboxRepository) Pending(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]sharedDomain.OutboxEvent), args.Error(1)
}

func (m *MockOutboxRepository) MarkSent(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, cause error) error {
	return m.Called(ctx, id, cause).Error(0)
}

// MockPublisher simula un publisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, evt sharedBus.DomainEvent) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

var ErrBrokerDown = errors.New("broker unavailable")

// RecordingPublisher guarda todo lo publicado. Si Err no es nil, falla cada publicación.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []sharedBus.DomainEvent
	Err    error
}

func (p *RecordingPublisher) Publish(ctx context.Context, evt sharedBus.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, evt)
	return nil
}

func (p *RecordingPublisher) Events() []sharedBus.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]sharedBus.DomainEvent, len(p.events))
	copy(out, p.events)
	return out
}

// ByExchange filtra lo publicado en un exchange (y routing key si no está vacía).
func (p *RecordingPublisher) ByExchange(exchange, routingKey string) []sharedBus.DomainEvent {
	var out []sharedBus.DomainEvent
	for _, e := range p.Events() {
		if e.Exchange == exchange && (routingKey == "" || e.RoutingKey == routingKey) {
			out = append(out, e)
		}
	}
	return out
}

// InMemoryOutbox es un outbox en memoria para tests de servicios.
type InMemoryOutbox struct {
	mu     sync.Mutex
	events []sharedDomain.OutboxEvent
}

func (o *InMemoryOutbox) Enqueue(_ context.Context, evt sharedDomain.OutboxEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, evt)
	return nil
}

func (o *InMemoryOutbox) Pending(_ context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []sharedDomain.OutboxEvent
	for _, e := range o.events {
		if len(out) == limit {
			break
		}
		if !e.Sent() {
			out = append(out, e)
		}
	}
	return out, nil
}

func (o *InMemoryOutbox) MarkSent(_ context.Context, id uuid.UUID) error {
	return o.with(id, func(e *sharedDomain.OutboxEvent) {
		now := time.Now()
		e.SentAt = &now
	})
}

func (o *InMemoryOutbox) MarkFailed(_ context.Context, id uuid.UUID, cause error) error {
	return o.with(id, func(e *sharedDomain.OutboxEvent) {
		e.Attempts++
		e.LastError = sharedDomain.FailureText(cause)
	})
}

func (o *InMemoryOutbox) with(id uuid.UUID, fn func(*sharedDomain.OutboxEvent)) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.events {
		if o.events[i].ID == id {
			fn(&o.events[i])
			return nil
		}
	}
	return sharedDomain.ErrOutboxEventNotFound
}

var (
	_ sharedDomain.OutboxRepository = (*MockOutboxRepository)(nil)
	_ sharedDomain.OutboxRepository = (*InMemoryOutbox)(nil)
	_ sharedBus.Publisher           = (*MockPublisher)(nil)
	_ sharedBus.Publisher           = (*RecordingPublisher)(nil)
)
