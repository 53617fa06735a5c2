package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrOutboxEventNotFound = errors.New("outbox event not found")

// OutboxEvent es un mensaje que el broker rechazó y queda pendiente de reenvío.
// Lleva el sobre completo para poder republicarlo sin conocer el payload.
type OutboxEvent struct {
	ID         uuid.UUID  `json:"id"`
	Exchange   string     `json:"exchange"`
	Kind       string     `json:"kind"` // direct | fanout
	RoutingKey string     `json:"routingKey"`
	Payload    []byte     `json:"payload"`
	Hint       string     `json:"hint"`
	CreatedAt  time.Time  `json:"createdAt"`
	Attempts   int        `json:"attempts"`
	LastError  string     `json:"lastError,omitempty"`
	SentAt     *time.Time `json:"sentAt,omitempty"`
}

func (e OutboxEvent) Sent() bool { return e.SentAt != nil }

// OutboxRepository lo usan el Producer (Enqueue) y el relayer (el resto).
// Pending devuelve los no enviados por orden de llegada.
type OutboxRepository interface {
	Enqueue(ctx context.Context, evt OutboxEvent) error
	Pending(ctx context.Context, limit int) ([]OutboxEvent, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause error) error
}

// FailureText recorta el error guardado en LastError.
func FailureText(cause error) string {
	const max = 512
	if cause == nil {
		return ""
	}
	msg := cause.Error()
	if len(msg) > max {
		msg = msg[:max]
	}
	return msg
}
