package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type reviewMsg struct {
	GigID  string `json:"gigId"`
	Rating int    `json:"rating"`
}

func TestDispatcher_AckOnSuccess(t *testing.T) {
	var got reviewMsg
	h := JSONHandler(func(ctx context.Context, m reviewMsg) error {
		got = m
		return nil
	})
	d := NewDispatcher("gig-review-queue", h, time.Second, zap.NewNop())

	outcome := d.Dispatch(context.Background(), Delivery{Body: []byte(`{"gigId":"g1","rating":5,"extra":true}`)})

	assert.Equal(t, Ack, outcome)
	assert.Equal(t, reviewMsg{GigID: "g1", Rating: 5}, got, "los campos desconocidos se toleran")
}

func TestDispatcher_InvalidJSONIsDeadLettered(t *testing.T) {
	called := false
	h := HandlerFunc(func(ctx context.Context, d Delivery) error {
		called = true
		return nil
	})
	d := NewDispatcher("q", h, time.Second, zap.NewNop())

	outcome := d.Dispatch(context.Background(), Delivery{Body: []byte(`not-json`)})

	assert.Equal(t, DeadLetter, outcome)
	assert.False(t, called)
}

func TestDispatcher_DecodeMismatchIsDeadLettered(t *testing.T) {
	h := JSONHandler(func(ctx context.Context, m reviewMsg) error { return nil })
	d := NewDispatcher("q", h, time.Second, zap.NewNop())

	outcome := d.Dispatch(context.Background(), Delivery{Body: []byte(`{"rating":"five"}`)})

	assert.Equal(t, DeadLetter, outcome)
}

func TestDispatcher_FailureRequeuesOnceThenDeadLetters(t *testing.T) {
	h := HandlerFunc(func(ctx context.Context, d Delivery) error { return errors.New("mongo down") })
	d := NewDispatcher("q", h, time.Second, zap.NewNop())

	assert.Equal(t, Requeue, d.Dispatch(context.Background(), Delivery{Body: []byte(`{}`)}))
	assert.Equal(t, DeadLetter, d.Dispatch(context.Background(), Delivery{Body: []byte(`{}`), Redelivered: true}))
}

func TestDispatcher_HandlerIsBoundedByTimeout(t *testing.T) {
	h := HandlerFunc(func(ctx context.Context, d Delivery) error {
		<-ctx.Done()
		return ctx.Err()
	})
	d := NewDispatcher("q", h, 10*time.Millisecond, zap.NewNop())

	start := time.Now()
	outcome := d.Dispatch(context.Background(), Delivery{Body: []byte(`{}`)})

	assert.Equal(t, Requeue, outcome)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDispatcher_PanicBecomesHandlerError(t *testing.T) {
	h := HandlerFunc(func(ctx context.Context, d Delivery) error { panic("nil map") })
	d := NewDispatcher("q", h, time.Second, zap.NewNop())

	assert.Equal(t, Requeue, d.Dispatch(context.Background(), Delivery{Body: []byte(`{}`)}))
}

func TestDomainEvent_Validate(t *testing.T) {
	review := Exchange{Name: "jobber-review", Kind: Fanout}
	seller := Exchange{Name: "jobber-seller-update", Kind: Direct}

	assert.NoError(t, NewEvent(review, "ignored", nil, "").Validate())
	assert.Equal(t, "", NewEvent(review, "ignored", nil, "").RoutingKey)
	assert.NoError(t, NewEvent(seller, "user-seller", nil, "").Validate())
	assert.ErrorIs(t, NewEvent(seller, "", nil, "").Validate(), ErrTopology)
	assert.ErrorIs(t, DomainEvent{Exchange: "x", Kind: "topic", RoutingKey: "a"}.Validate(), ErrTopology)
	assert.ErrorIs(t, NewBinding(seller, "", "user-seller").Validate(), ErrTopology)
}
