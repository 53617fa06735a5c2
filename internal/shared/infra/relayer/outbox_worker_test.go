package relayer

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	sharedDomain "github.com/davicafu/jobberlab/internal/shared/domain"
	sharedBus "github.com/davicafu/jobberlab/internal/shared/infra/platform/bus"
	"github.com/davicafu/jobberlab/tests/mocks"
)

func cancelledOrder(id uuid.UUID) sharedDomain.OutboxEvent {
	return sharedDomain.OutboxEvent{
		ID:         id,
		Exchange:   "jobber-seller-update",
		Kind:       "direct",
		RoutingKey: "user-seller",
		Payload:    []byte(`{"type":"cancel-order","sellerId":"s1"}`),
		Attempts:   1,
	}
}

func reviewFanout(id uuid.UUID) sharedDomain.OutboxEvent {
	return sharedDomain.OutboxEvent{ID: id, Exchange: "jobber-review", Kind: "fanout", Payload: []byte(`{"gigId":"g1"}`)}
}

func TestProcessBatch_PublishesAndMarks(t *testing.T) {
	store := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockPublisher)
	id := uuid.New()

	store.On("Pending", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{cancelledOrder(id)}, nil).Once()
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(evt sharedBus.DomainEvent) bool {
		return evt.Exchange == "jobber-seller-update" && evt.Kind == sharedBus.Direct && evt.RoutingKey == "user-seller"
	})).Return(nil).Once()
	store.On("MarkSent", mock.Anything, id).Return(nil).Once()

	r := NewOutboxWorker(store, publisher, 0, 10, zap.NewNop()).ProcessBatch(context.Background())

	assert.Equal(t, Report{Fetched: 1, Sent: 1}, r)
	store.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestProcessBatch_BrokerDownStallsTheBatch(t *testing.T) {
	store := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockPublisher)
	first, second := uuid.New(), uuid.New()
	down := errors.New("rabbitmq is down")

	store.On("Pending", mock.Anything, 10).
		Return([]sharedDomain.OutboxEvent{cancelledOrder(first), reviewFanout(second)}, nil).Once()
	publisher.On("Publish", mock.Anything, mock.Anything).Return(down).Once()
	store.On("MarkFailed", mock.Anything, first, down).Return(nil).Once()

	r := NewOutboxWorker(store, publisher, 0, 10, zap.NewNop()).ProcessBatch(context.Background())

	assert.Equal(t, Report{Fetched: 2, Stalled: true}, r)
	store.AssertExpectations(t)
	publisher.AssertNumberOfCalls(t, "Publish", 1)
	store.AssertNotCalled(t, "MarkSent", mock.Anything, mock.Anything)
}

func TestProcessBatch_InvalidTopologyIsDiscarded(t *testing.T) {
	store := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockPublisher)
	bad, good := uuid.New(), uuid.New()

	store.On("Pending", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{
		{ID: bad, Exchange: "jobber-review", Kind: "topic", Payload: []byte(`{}`)},
		reviewFanout(good),
	}, nil).Once()
	store.On("MarkSent", mock.Anything, bad).Return(nil).Once()
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()
	store.On("MarkSent", mock.Anything, good).Return(nil).Once()

	r := NewOutboxWorker(store, publisher, 0, 10, zap.NewNop()).ProcessBatch(context.Background())

	assert.Equal(t, Report{Fetched: 2, Sent: 1, Discarded: 1}, r)
	store.AssertExpectations(t)
}

func TestProcessBatch_StoreUnavailable(t *testing.T) {
	store := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockPublisher)
	store.On("Pending", mock.Anything, 10).Return([]sharedDomain.OutboxEvent(nil), errors.New("db down")).Once()

	r := NewOutboxWorker(store, publisher, 0, 10, zap.NewNop()).ProcessBatch(context.Background())

	assert.Zero(t, r)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestProcessBatch_DrainsInMemoryOutbox(t *testing.T) {
	ctx := context.Background()
	store := &mocks.InMemoryOutbox{}
	publisher := &mocks.RecordingPublisher{Err: mocks.ErrBrokerDown}
	for i := 0; i < 3; i++ {
		_ = store.Enqueue(ctx, reviewFanout(uuid.New()))
	}
	w := NewOutboxWorker(store, publisher, 0, 2, zap.NewNop())

	assert.True(t, w.ProcessBatch(ctx).Stalled)
	pending, _ := store.Pending(ctx, 10)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Equal(t, mocks.ErrBrokerDown.Error(), pending[0].LastError)

	publisher.Err = nil
	assert.Equal(t, 2, w.ProcessBatch(ctx).Sent)
	assert.Equal(t, 1, w.ProcessBatch(ctx).Sent)
	assert.Len(t, publisher.Events(), 3)
}
