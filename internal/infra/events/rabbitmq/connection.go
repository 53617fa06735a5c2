package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/davicafu/jobberlab/internal/shared/infra/metrics"
	sharedBus "github.com/davicafu/jobberlab/internal/shared/infra/platform/bus"
	"github.com/davicafu/jobberlab/internal/shared/infra/utils"
)

// Channel es el subconjunto de *amqp.Channel que usan el publisher y los consumidores.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// Connection abstrae *amqp.Connection para poder sustituirla en tests.
type Connection interface {
	Channel() (Channel, error)
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
	IsClosed() bool
	Close() error
}

// Dialer abre una conexión nueva contra url.
type Dialer func(url string) (Connection, error)

type amqpConnection struct {
	*amqp.Connection
}

func (c amqpConnection) Channel() (Channel, error) {
	ch, err := c.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// DialAMQP es el Dialer real.
func DialAMQP(url string) (Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return amqpConnection{conn}, nil
}

// ConnectionManager mantiene una conexión al broker y reparte canales.
// Si la conexión cae (NotifyClose) se descarta y la siguiente petición reconecta
// con backoff exponencial y jitter, sin límite de intentos.
// mu solo protege el estado; el dial y las esperas ocurren fuera de él.
type ConnectionManager struct {
	url     string
	dial    Dialer
	backoff utils.Backoff
	log     *zap.Logger

	dialing chan struct{} // un único dial en vuelo

	mu     sync.Mutex
	conn   Connection
	pubCh  Channel
	closed bool
}

var errManagerClosed = errors.New("connection manager closed")

type Option func(*ConnectionManager)

func WithDialer(d Dialer) Option {
	return func(m *ConnectionManager) { m.dial = d }
}

func NewConnectionManager(url string, minDelay, maxDelay time.Duration, log *zap.Logger, opts ...Option) *ConnectionManager {
	m := &ConnectionManager{
		url:     url,
		dial:    DialAMQP,
		backoff: utils.Backoff{Min: minDelay, Max: maxDelay},
		log:     log,
		dialing: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AcquireChannel devuelve el canal compartido de publicación, reconectando si hace falta.
// Bloquea hasta conseguirlo o hasta que ctx se cancele (ErrConnection).
func (m *ConnectionManager) AcquireChannel(ctx context.Context) (Channel, error) {
	if ch := m.livePublishChannel(); ch != nil {
		return ch, nil
	}

	ch, err := m.openChannel(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		_ = ch.Close()
		return nil, fmt.Errorf("%w: %w", sharedBus.ErrConnection, errManagerClosed)
	}
	if m.pubCh != nil && !m.pubCh.IsClosed() {
		// Otro llamador lo abrió mientras tanto.
		_ = ch.Close()
		return m.pubCh, nil
	}
	m.pubCh = ch
	return ch, nil
}

func (m *ConnectionManager) livePublishChannel() Channel {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pubCh != nil && !m.pubCh.IsClosed() {
		return m.pubCh
	}
	return nil
}

// NewChannel abre un canal dedicado (uno por consumidor de larga duración).
func (m *ConnectionManager) NewChannel(ctx context.Context) (Channel, error) {
	return m.openChannel(ctx)
}

func (m *ConnectionManager) openChannel(ctx context.Context) (Channel, error) {
	var ch Channel
	err := utils.RetryForever(ctx, m.backoff, m.logRetry, func() error {
		conn, err := m.connection(ctx)
		if err != nil {
			return err
		}
		ch, err = conn.Channel()
		if err != nil {
			// Conexión inutilizable: se descarta para redial en el siguiente intento.
			m.drop(conn)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sharedBus.ErrConnection, err)
	}
	return ch, nil
}

// current devuelve la conexión viva, nil si hay que marcar, o un error permanente si se cerró el manager.
func (m *ConnectionManager) current() (Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, utils.Permanent(errManagerClosed)
	}
	if m.conn != nil && !m.conn.IsClosed() {
		return m.conn, nil
	}
	return nil, nil
}

// connection devuelve la conexión viva o marca una nueva.
// Los llamadores concurrentes esperan al dial en curso sin ignorar ctx.
func (m *ConnectionManager) connection(ctx context.Context) (Connection, error) {
	if conn, err := m.current(); conn != nil || err != nil {
		return conn, err
	}

	select {
	case m.dialing <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-m.dialing }()

	if conn, err := m.current(); conn != nil || err != nil {
		return conn, err
	}

	conn, err := m.dial(m.url)
	if err != nil {
		return nil, err
	}
	notify := conn.NotifyClose(make(chan *amqp.Error, 1))

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = conn.Close()
		return nil, utils.Permanent(errManagerClosed)
	}
	m.conn = conn
	m.mu.Unlock()

	go m.watch(conn, notify)
	m.log.Info("✅ Conectado a RabbitMQ")
	return conn, nil
}

func (m *ConnectionManager) watch(conn Connection, notify chan *amqp.Error) {
	amqpErr, ok := <-notify

	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return
	}
	m.drop(conn)

	if ok && amqpErr != nil {
		m.log.Warn("⚠️ Conexión con RabbitMQ perdida", zap.String("reason", amqpErr.Reason), zap.Int("code", amqpErr.Code))
	} else {
		m.log.Warn("⚠️ Conexión con RabbitMQ cerrada")
	}
}

// drop olvida conn (y su canal de publicación) si sigue siendo la actual.
func (m *ConnectionManager) drop(conn Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != conn {
		return
	}
	m.conn = nil
	m.pubCh = nil
}

func (m *ConnectionManager) logRetry(attempt int, err error, wait time.Duration) {
	metrics.IncReconnect()
	m.log.Warn("🔄 Reintentando conexión con RabbitMQ",
		zap.Int("attempt", attempt),
		zap.Duration("wait", wait),
		zap.Error(err),
	)
}

// Close cierra el canal de publicación y la conexión.
func (m *ConnectionManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	if m.pubCh != nil {
		_ = m.pubCh.Close()
		m.pubCh = nil
	}
	if m.conn != nil {
		err := m.conn.Close()
		m.conn = nil
		return err
	}
	return nil
}
