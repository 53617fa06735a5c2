package bus_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	sharedDomain "github.com/davicafu/jobberlab/internal/shared/domain"
	sharedBus "github.com/davicafu/jobberlab/internal/shared/infra/platform/bus"
	"github.com/davicafu/jobberlab/tests/mocks"
)

var sellerUpdate = sharedBus.Exchange{Name: "jobber-seller-update", Kind: sharedBus.Direct}

func TestProducer_PublishJSON_Success(t *testing.T) {
	pub := &mocks.RecordingPublisher{}
	outbox := new(mocks.MockOutboxRepository)
	producer := sharedBus.NewProducer(pub, outbox, zap.NewNop())

	err := producer.PublishJSON(context.Background(), sellerUpdate, "user-seller",
		map[string]any{"type": "create-order", "sellerId": "s1"}, "Seller details sent")

	require.NoError(t, err)
	events := pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "user-seller", events[0].RoutingKey)
	assert.JSONEq(t, `{"type":"create-order","sellerId":"s1"}`, string(events[0].Payload))
	outbox.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
}

func TestProducer_PublishFailure_GoesToOutbox(t *testing.T) {
	pub := &mocks.RecordingPublisher{Err: errors.New("connection refused")}
	outbox := new(mocks.MockOutboxRepository)
	outbox.On("Enqueue", mock.Anything, mock.MatchedBy(func(evt sharedDomain.OutboxEvent) bool {
		return evt.Exchange == "jobber-seller-update" && evt.Kind == "direct" && evt.RoutingKey == "user-seller" &&
			evt.Attempts == 1 && evt.LastError == "connection refused"
	})).Return(nil).Once()

	producer := sharedBus.NewProducer(pub, outbox, zap.NewNop())
	err := producer.PublishJSON(context.Background(), sellerUpdate, "user-seller", map[string]any{"x": 1}, "msg")

	assert.NoError(t, err)
	outbox.AssertExpectations(t)
}

func TestProducer_PublishFailure_WithoutOutboxReturnsError(t *testing.T) {
	pub := &mocks.RecordingPublisher{Err: sharedBus.ErrPublish}
	producer := sharedBus.NewProducer(pub, nil, zap.NewNop())

	err := producer.PublishJSON(context.Background(), sellerUpdate, "user-seller", map[string]any{}, "msg")

	assert.ErrorIs(t, err, sharedBus.ErrPublish)
}

func TestProducer_OutboxFailure_ReturnsError(t *testing.T) {
	pub := &mocks.RecordingPublisher{Err: errors.New("down")}
	outbox := new(mocks.MockOutboxRepository)
	outbox.On("Enqueue", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()

	producer := sharedBus.NewProducer(pub, outbox, zap.NewNop())
	err := producer.PublishJSON(context.Background(), sellerUpdate, "user-seller", map[string]any{}, "msg")

	assert.ErrorIs(t, err, sharedBus.ErrPublish)
}

func TestProducer_RejectsInvalidTopology(t *testing.T) {
	pub := &mocks.RecordingPublisher{}
	producer := sharedBus.NewProducer(pub, nil, zap.NewNop())

	err := producer.PublishJSON(context.Background(), sellerUpdate, "", map[string]any{}, "msg")

	assert.ErrorIs(t, err, sharedBus.ErrTopology)
	assert.Empty(t, pub.Events())
}
