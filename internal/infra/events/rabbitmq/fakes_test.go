package rabbitmq

import (
	"context"
	"errors"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

type declaredExchange struct {
	name, kind string
	durable    bool
}

type declaredQueue struct {
	name       string
	durable    bool
	autoDelete bool
	args       amqp.Table
}

type queueBinding struct {
	queue, key, exchange string
}

type publishedMsg struct {
	exchange, key string
	msg           amqp.Publishing
}

// fakeChannel registra todo lo que se declara/publica y entrega lo que el test mete en deliveries.
type fakeChannel struct {
	mu         sync.Mutex
	conn       *fakeConn
	exchanges  []declaredExchange
	queues     []declaredQueue
	bindings   []queueBinding
	published  []publishedMsg
	prefetch   int
	deliveries chan amqp.Delivery
	closed     bool
	publishErr error
}

func newFakeChannel(conn *fakeConn) *fakeChannel {
	return &fakeChannel{conn: conn, deliveries: make(chan amqp.Delivery, 16)}
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exchanges = append(c.exchanges, declaredExchange{name: name, kind: kind, durable: durable})
	return nil
}

func (c *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queues = append(c.queues, declaredQueue{name: name, durable: durable, autoDelete: autoDelete, args: args})
	return amqp.Queue{Name: name}, nil
}

func (c *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings = append(c.bindings, queueBinding{queue: name, key: key, exchange: exchange})
	return nil
}

func (c *fakeChannel) Qos(prefetchCount, prefetchSize int, global bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prefetch = prefetchCount
	return nil
}

func (c *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	if autoAck {
		return nil, errors.New("autoAck not allowed")
	}
	return c.deliveries, nil
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, publishedMsg{exchange: exchange, key: key, msg: msg})
	return nil
}

func (c *fakeChannel) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed || (c.conn != nil && c.conn.IsClosed())
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type fakeConn struct {
	mu       sync.Mutex
	closed   bool
	notify   []chan *amqp.Error
	channels []*fakeChannel
}

func (c *fakeConn) Channel() (Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, amqp.ErrClosed
	}
	ch := newFakeChannel(c)
	c.channels = append(c.channels, ch)
	return ch, nil
}

func (c *fakeConn) NotifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notify = append(c.notify, receiver)
	return receiver
}

func (c *fakeConn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) Close() error {
	c.drop(nil)
	return nil
}

// drop simula la caída de la conexión (o un cierre limpio si reason es nil).
func (c *fakeConn) drop(reason *amqp.Error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for _, n := range c.notify {
		if reason != nil {
			n <- reason
		}
		close(n)
	}
}

// fakeDialer falla las primeras failures veces y luego entrega conexiones nuevas.
type fakeDialer struct {
	mu       sync.Mutex
	failures int
	calls    int
	conns    []*fakeConn
}

func (d *fakeDialer) Dial(url string) (Connection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.failures > 0 {
		d.failures--
		return nil, errors.New("dial tcp: connection refused")
	}
	conn := &fakeConn{}
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *fakeDialer) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *fakeDialer) Last() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

// fakeAcker registra las decisiones de acuse.
type fakeAcker struct {
	mu      sync.Mutex
	acks    []uint64
	requeue []uint64
	dead    []uint64
	done    chan struct{}
}

func newFakeAcker() *fakeAcker { return &fakeAcker{done: make(chan struct{}, 16)} }

func (a *fakeAcker) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	a.acks = append(a.acks, tag)
	a.mu.Unlock()
	a.done <- struct{}{}
	return nil
}

func (a *fakeAcker) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	if requeue {
		a.requeue = append(a.requeue, tag)
	} else {
		a.dead = append(a.dead, tag)
	}
	a.mu.Unlock()
	a.done <- struct{}{}
	return nil
}

func (a *fakeAcker) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *fakeAcker) snapshot() (acks, requeue, dead []uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]uint64(nil), a.acks...), append([]uint64(nil), a.requeue...), append([]uint64(nil), a.dead...)
}
