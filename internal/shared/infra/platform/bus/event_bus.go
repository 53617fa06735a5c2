package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ExchangeKind es el contrato de enrutado de un exchange. No es un detalle de implementación:
// direct = punto a punto por routing key, fanout = difusión a todas las colas enlazadas.
type ExchangeKind string

const (
	Direct ExchangeKind = "direct"
	Fanout ExchangeKind = "fanout"
)

var (
	ErrConnection = errors.New("broker connection error")
	ErrPublish    = errors.New("publish error")
	ErrHandler    = errors.New("handler error")
	ErrDecode     = errors.New("decode error")
	ErrTopology   = errors.New("invalid topology")
)

// Exchange identifica un exchange y su tipo.
type Exchange struct {
	Name string
	Kind ExchangeKind
}

// DomainEvent es el sobre opaco que viaja por el broker. El payload es JSON sin versión.
type DomainEvent struct {
	Exchange        string
	Kind            ExchangeKind
	RoutingKey      string
	Payload         []byte
	CorrelationHint string
}

// NewEvent construye un evento para ex. En un fanout la routing key se ignora.
func NewEvent(ex Exchange, routingKey string, payload []byte, correlationHint string) DomainEvent {
	if ex.Kind == Fanout {
		routingKey = ""
	}
	return DomainEvent{
		Exchange:        ex.Name,
		Kind:            ex.Kind,
		RoutingKey:      routingKey,
		Payload:         payload,
		CorrelationHint: correlationHint,
	}
}

func (e DomainEvent) Validate() error {
	if e.Exchange == "" {
		return fmt.Errorf("%w: empty exchange", ErrTopology)
	}
	return validateKind(e.Kind, e.RoutingKey)
}

// Binding describe el lado consumidor: exchange + cola durable + routing key ("" en fanout).
type Binding struct {
	Exchange   string
	Kind       ExchangeKind
	Queue      string
	RoutingKey string
}

func NewBinding(ex Exchange, queue, routingKey string) Binding {
	if ex.Kind == Fanout {
		routingKey = ""
	}
	return Binding{Exchange: ex.Name, Kind: ex.Kind, Queue: queue, RoutingKey: routingKey}
}

func (b Binding) Validate() error {
	if b.Exchange == "" || b.Queue == "" {
		return fmt.Errorf("%w: exchange and queue are required", ErrTopology)
	}
	return validateKind(b.Kind, b.RoutingKey)
}

func validateKind(kind ExchangeKind, routingKey string) error {
	switch kind {
	case Direct:
		if routingKey == "" {
			return fmt.Errorf("%w: direct exchange needs a routing key", ErrTopology)
		}
	case Fanout:
		if routingKey != "" {
			return fmt.Errorf("%w: fanout exchange takes no routing key", ErrTopology)
		}
	default:
		return fmt.Errorf("%w: unknown exchange kind %q", ErrTopology, kind)
	}
	return nil
}

// Delivery es un mensaje recibido, independiente del broker.
type Delivery struct {
	Body        []byte
	Redelivered bool
	MessageID   string
	Exchange    string
	RoutingKey  string
}

// Publisher publica eventos. Declara el exchange (idempotente) pero nunca colas.
type Publisher interface {
	Publish(ctx context.Context, evt DomainEvent) error
}

// MessageHandler procesa un mensaje ya validado como JSON.
// Debe ser idempotente: el mismo mensaje puede llegar más de una vez.
type MessageHandler interface {
	HandleMessage(ctx context.Context, d Delivery) error
}

type HandlerFunc func(ctx context.Context, d Delivery) error

func (f HandlerFunc) HandleMessage(ctx context.Context, d Delivery) error { return f(ctx, d) }

// JSONHandler decodifica el cuerpo en T antes de llamar a fn. Los campos desconocidos se ignoran.
func JSONHandler[T any](fn func(ctx context.Context, msg T) error) MessageHandler {
	return HandlerFunc(func(ctx context.Context, d Delivery) error {
		var msg T
		if err := json.Unmarshal(d.Body, &msg); err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return fn(ctx, msg)
	})
}

// Subscriber declara exchange, cola y binding y empieza a consumir en segundo plano
// hasta que ctx se cancele. Devuelve error si la topología no se pudo declarar.
type Subscriber interface {
	Consume(ctx context.Context, b Binding, h MessageHandler) error
}
