package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/davicafu/jobberlab/internal/shared/infra/metrics"
)

// Outcome es la decisión de acuse tras procesar un mensaje.
type Outcome int

const (
	Ack Outcome = iota
	Requeue
	DeadLetter
)

func (o Outcome) String() string {
	switch o {
	case Ack:
		return "ack"
	case Requeue:
		return "requeue"
	case DeadLetter:
		return "dead_letter"
	default:
		return "unknown"
	}
}

const defaultHandlerTimeout = 5 * time.Second

// Dispatcher aplica un handler a cada entrega y decide el acuse:
//   - JSON inválido o payload que no decodifica: DeadLetter (mensaje venenoso).
//   - handler sin error: Ack.
//   - handler con error en la primera entrega: Requeue (una redistribución).
//   - handler con error en una entrega ya redistribuida: DeadLetter.
//
// Cada llamada al handler está acotada por timeout.
type Dispatcher struct {
	queue   string
	handler MessageHandler
	timeout time.Duration
	log     *zap.Logger
}

func NewDispatcher(queue string, handler MessageHandler, timeout time.Duration, log *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultHandlerTimeout
	}
	return &Dispatcher{queue: queue, handler: handler, timeout: timeout, log: log}
}

func (d *Dispatcher) Queue() string { return d.queue }

func (d *Dispatcher) Dispatch(ctx context.Context, msg Delivery) Outcome {
	start := time.Now()
	outcome := d.decide(ctx, msg)
	metrics.ObserveHandler(d.queue, time.Since(start))
	metrics.IncConsumed(d.queue, outcome.String())
	return outcome
}

func (d *Dispatcher) decide(ctx context.Context, msg Delivery) Outcome {
	if !json.Valid(msg.Body) {
		d.log.Warn("Discarding non-JSON message",
			zap.String("queue", d.queue),
			zap.String("message_id", msg.MessageID),
		)
		return DeadLetter
	}

	hctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	err := d.invoke(hctx, msg)
	switch {
	case err == nil:
		return Ack
	case errors.Is(err, ErrDecode):
		d.log.Warn("Message payload does not match handler contract",
			zap.String("queue", d.queue),
			zap.String("message_id", msg.MessageID),
			zap.Error(err),
		)
		return DeadLetter
	case msg.Redelivered:
		d.log.Error("Handler failed on redelivered message, dead-lettering",
			zap.String("queue", d.queue),
			zap.String("message_id", msg.MessageID),
			zap.Error(err),
		)
		return DeadLetter
	default:
		d.log.Warn("Handler failed, requeueing message",
			zap.String("queue", d.queue),
			zap.String("message_id", msg.MessageID),
			zap.Error(err),
		)
		return Requeue
	}
}

// invoke llama al handler convirtiendo un panic en ErrHandler.
func (d *Dispatcher) invoke(ctx context.Context, msg Delivery) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrHandler, r)
		}
	}()
	if err := d.handler.HandleMessage(ctx, msg); err != nil {
		return fmt.Errorf("%w: %w", ErrHandler, err)
	}
	return nil
}
