package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/davicafu/jobberlab/internal/shared/events"
	sharedBus "github.com/davicafu/jobberlab/internal/shared/infra/platform/bus"
	"github.com/davicafu/jobberlab/internal/shared/infra/utils"
)

// Consumer implementa sharedBus.Subscriber. Cada cola consume en su propio canal
// y en su propia goroutine; si el canal de entregas se cierra vuelve a suscribirse.
type Consumer struct {
	conns    ChannelProvider
	prefetch int
	timeout  time.Duration
	backoff  utils.Backoff
	log      *zap.Logger
}

func NewConsumer(conns ChannelProvider, prefetch int, handlerTimeout, minDelay, maxDelay time.Duration, log *zap.Logger) *Consumer {
	if prefetch <= 0 {
		prefetch = 1
	}
	return &Consumer{
		conns:    conns,
		prefetch: prefetch,
		timeout:  handlerTimeout,
		backoff:  utils.Backoff{Min: minDelay, Max: maxDelay},
		log:      log,
	}
}

// Consume declara la topología y arranca el bucle de consumo en segundo plano.
// Devuelve error solo si la primera declaración falla.
func (c *Consumer) Consume(ctx context.Context, b sharedBus.Binding, h sharedBus.MessageHandler) error {
	if err := b.Validate(); err != nil {
		return err
	}

	ch, deliveries, err := c.subscribe(ctx, b)
	if err != nil {
		return err
	}

	dispatcher := sharedBus.NewDispatcher(b.Queue, h, c.timeout, c.log)
	c.log.Info("🎧 Consumidor RabbitMQ iniciado",
		zap.String("exchange", b.Exchange),
		zap.String("queue", b.Queue),
		zap.String("routing_key", b.RoutingKey),
	)

	go c.run(ctx, b, dispatcher, ch, deliveries)
	return nil
}

func (c *Consumer) run(ctx context.Context, b sharedBus.Binding, d *sharedBus.Dispatcher, ch Channel, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			_ = ch.Close()
			c.log.Info("🛑 Consumidor detenido", zap.String("queue", b.Queue))
			return

		case msg, ok := <-deliveries:
			if ok {
				c.handle(ctx, d, msg)
				continue
			}

			c.log.Warn("⚠️ Canal de entregas cerrado, re-suscribiendo", zap.String("queue", b.Queue))
			_ = ch.Close()
			err := utils.RetryForever(ctx, c.backoff, func(attempt int, err error, wait time.Duration) {
				c.log.Warn("🔄 Reintentando suscripción",
					zap.String("queue", b.Queue),
					zap.Int("attempt", attempt),
					zap.Duration("wait", wait),
					zap.Error(err),
				)
			}, func() error {
				var err error
				ch, deliveries, err = c.subscribe(ctx, b)
				return err
			})
			if err != nil {
				c.log.Info("🛑 Consumidor detenido", zap.String("queue", b.Queue))
				return
			}
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d *sharedBus.Dispatcher, msg amqp.Delivery) {
	outcome := d.Dispatch(ctx, sharedBus.Delivery{
		Body:        msg.Body,
		Redelivered: msg.Redelivered,
		MessageID:   msg.MessageId,
		Exchange:    msg.Exchange,
		RoutingKey:  msg.RoutingKey,
	})

	var err error
	switch outcome {
	case sharedBus.Ack:
		err = msg.Ack(false)
	case sharedBus.Requeue:
		err = msg.Nack(false, true)
	default:
		// Sin requeue: el broker lo enruta a <cola>.dlx
		err = msg.Nack(false, false)
	}
	if err != nil {
		c.log.Warn("Failed to acknowledge delivery",
			zap.String("queue", d.Queue()),
			zap.String("outcome", outcome.String()),
			zap.Error(err),
		)
	}
}

// subscribe abre un canal dedicado, declara la topología y empieza a consumir.
func (c *Consumer) subscribe(ctx context.Context, b sharedBus.Binding) (Channel, <-chan amqp.Delivery, error) {
	ch, err := c.conns.NewChannel(ctx)
	if err != nil {
		return nil, nil, err
	}

	if err := declareTopology(ch, b); err != nil {
		_ = ch.Close()
		return nil, nil, err
	}
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("%w: qos: %w", sharedBus.ErrConnection, err)
	}

	deliveries, err := ch.Consume(b.Queue, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("%w: consume %s: %w", sharedBus.ErrConnection, b.Queue, err)
	}
	return ch, deliveries, nil
}

// declareTopology: exchange, exchange de mensajes muertos, cola muerta y la cola durable enlazada.
func declareTopology(ch Channel, b sharedBus.Binding) error {
	dlx := events.DeadLetterExchange(b.Queue)
	dead := events.DeadLetterQueue(b.Queue)

	steps := []struct {
		what string
		fn   func() error
	}{
		{"exchange " + b.Exchange, func() error {
			return ch.ExchangeDeclare(b.Exchange, string(b.Kind), true, false, false, false, nil)
		}},
		{"exchange " + dlx, func() error {
			return ch.ExchangeDeclare(dlx, string(sharedBus.Fanout), true, false, false, false, nil)
		}},
		{"queue " + dead, func() error {
			_, err := ch.QueueDeclare(dead, true, false, false, false, nil)
			return err
		}},
		{"binding " + dead, func() error {
			return ch.QueueBind(dead, "", dlx, false, nil)
		}},
		{"queue " + b.Queue, func() error {
			_, err := ch.QueueDeclare(b.Queue, true, false, false, false, amqp.Table{"x-dead-letter-exchange": dlx})
			return err
		}},
		{"binding " + b.Queue, func() error {
			return ch.QueueBind(b.Queue, b.RoutingKey, b.Exchange, false, nil)
		}},
	}

	for _, step := range steps {
		if err := step.fn(); err != nil {
			return fmt.Errorf("%w: declare %s: %w", sharedBus.ErrTopology, step.what, err)
		}
	}
	return nil
}

var _ sharedBus.Subscriber = (*Consumer)(nil)
