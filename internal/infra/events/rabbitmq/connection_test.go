package rabbitmq

import (
	"context"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	sharedBus "github.com/davicafu/jobberlab/internal/shared/infra/platform/bus"
)

func newTestManager(d *fakeDialer) *ConnectionManager {
	return NewConnectionManager("amqp://test", time.Millisecond, 5*time.Millisecond, zap.NewNop(), WithDialer(d.Dial))
}

func TestConnectionManager_RetriesUntilBrokerIsUp(t *testing.T) {
	dialer := &fakeDialer{failures: 3}
	m := newTestManager(dialer)

	ch, err := m.AcquireChannel(context.Background())

	require.NoError(t, err)
	require.NotNil(t, ch)
	assert.Equal(t, 4, dialer.Calls())
}

func TestConnectionManager_ReusesChannel(t *testing.T) {
	dialer := &fakeDialer{}
	m := newTestManager(dialer)
	ctx := context.Background()

	first, err := m.AcquireChannel(ctx)
	require.NoError(t, err)
	second, err := m.AcquireChannel(ctx)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, dialer.Calls())
}

func TestConnectionManager_ReconnectsAfterConnectionLoss(t *testing.T) {
	dialer := &fakeDialer{}
	m := newTestManager(dialer)
	ctx := context.Background()

	before, err := m.AcquireChannel(ctx)
	require.NoError(t, err)

	// El broker se cae y tarda dos intentos en volver.
	dialer.mu.Lock()
	dialer.failures = 2
	dialer.mu.Unlock()
	dialer.Last().drop(&amqp.Error{Code: amqp.ConnectionForced, Reason: "broker restart"})
	assert.True(t, before.IsClosed())

	after, err := m.AcquireChannel(ctx)

	require.NoError(t, err)
	assert.NotSame(t, before, after)
	assert.False(t, after.IsClosed())
	assert.Equal(t, 4, dialer.Calls())
}

func TestConnectionManager_NewChannelIsDedicated(t *testing.T) {
	dialer := &fakeDialer{}
	m := newTestManager(dialer)
	ctx := context.Background()

	a, err := m.NewChannel(ctx)
	require.NoError(t, err)
	b, err := m.NewChannel(ctx)
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Equal(t, 1, dialer.Calls(), "channels share one connection")
}

func TestConnectionManager_GivesUpWhenContextIsCancelled(t *testing.T) {
	dialer := &fakeDialer{failures: 1 << 30}
	m := newTestManager(dialer)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := m.AcquireChannel(ctx)

	assert.ErrorIs(t, err, sharedBus.ErrConnection)
	assert.Greater(t, dialer.Calls(), 1)
}

func TestConnectionManager_Close(t *testing.T) {
	dialer := &fakeDialer{}
	m := newTestManager(dialer)

	_, err := m.AcquireChannel(context.Background())
	require.NoError(t, err)
	require.NoError(t, m.Close())

	assert.True(t, dialer.Last().IsClosed())
	_, err = m.AcquireChannel(context.Background())
	assert.ErrorIs(t, err, sharedBus.ErrConnection)
}

func TestConnectionManager_ConcurrentReconnectsShareOneConnection(t *testing.T) {
	dialer := &fakeDialer{failures: 5}
	m := newTestManager(dialer)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	chans := make([]Channel, 3)
	errs := make([]error, 3)
	for i := range chans {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			chans[i], errs[i] = m.NewChannel(ctx)
		}(i)
	}
	wg.Wait()

	for i := range chans {
		require.NoError(t, errs[i])
		require.NotNil(t, chans[i])
	}
	assert.NotSame(t, chans[0], chans[1])
	dialer.mu.Lock()
	defer dialer.mu.Unlock()
	assert.Len(t, dialer.conns, 1, "un único dial con éxito")
}

func TestConnectionManager_CloseStopsPendingReconnect(t *testing.T) {
	dialer := &fakeDialer{failures: 1 << 30}
	m := newTestManager(dialer)

	done := make(chan error, 1)
	go func() {
		_, err := m.NewChannel(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return dialer.Calls() > 1 }, time.Second, time.Millisecond)

	require.NoError(t, m.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, sharedBus.ErrConnection)
	case <-time.After(time.Second):
		t.Fatal("NewChannel sigue reintentando tras Close")
	}
}
