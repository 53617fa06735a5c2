package application

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	orderDomain "github.com/davicafu/jobberlab/internal/order/domain"
	sharedEvents "github.com/davicafu/jobberlab/internal/shared/events"
	sharedBus "github.com/davicafu/jobberlab/internal/shared/infra/platform/bus"
	"github.com/davicafu/jobberlab/tests/mocks"
)

type orderFixture struct {
	service       *OrderService
	repo          *mocks.InMemoryOrderRepo
	notifications *mocks.InMemoryNotificationRepo
	publisher     *mocks.RecordingPublisher
	outbox        *mocks.InMemoryOutbox
	analytics     *mocks.RecordingAnalytics
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	f := &orderFixture{
		repo:          mocks.NewInMemoryOrderRepo(),
		notifications: &mocks.InMemoryNotificationRepo{},
		publisher:     &mocks.RecordingPublisher{},
		outbox:        &mocks.InMemoryOutbox{},
		analytics:     &mocks.RecordingAnalytics{},
	}
	producer := sharedBus.NewProducer(f.publisher, f.outbox, zap.NewNop())
	f.service = NewOrderService(f.repo, NewNotificationService(f.notifications, zap.NewNop()), producer, f.analytics, "http://client/", zap.NewNop())
	return f
}

func sampleOrder() *orderDomain.Order {
	return &orderDomain.Order{
		OrderID:        "o1",
		InvoiceID:      "inv-1",
		GigID:          "g1",
		SellerID:       "s1",
		SellerUsername: "Alice",
		BuyerID:        "b1",
		BuyerUsername:  "Bob",
		Price:          20,
		ServiceFee:     1.5,
		Requirements:   "logo",
		Offer: orderDomain.Offer{
			GigTitle:        "Logo design",
			Description:     "A logo",
			DeliveryInDays:  3,
			NewDeliveryDate: "2024-05-04",
		},
	}
}

func (f *orderFixture) create(t *testing.T) {
	t.Helper()
	_, err := f.service.CreateOrder(context.Background(), sampleOrder())
	require.NoError(t, err)
}

func decode[T any](t *testing.T, evt sharedBus.DomainEvent) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(evt.Payload, &v))
	return v
}

func TestCreateOrder_PublishesSellerUpdateAndEmail(t *testing.T) {
	f := newOrderFixture(t)

	o, err := f.service.CreateOrder(context.Background(), sampleOrder())

	require.NoError(t, err)
	assert.Equal(t, orderDomain.StatusPlaced, o.Status)
	assert.Contains(t, o.Events, orderDomain.EventPlaceOrder)

	sellerMsgs := f.publisher.ByExchange(sharedEvents.SellerUpdateExchange.Name, sharedEvents.UserSellerKey)
	require.Len(t, sellerMsgs, 1)
	su := decode[sharedEvents.SellerUpdate](t, sellerMsgs[0])
	assert.Equal(t, sharedEvents.CreateOrderType, su.Type)
	assert.Equal(t, "s1", su.SellerID)
	assert.Equal(t, 1, su.OngoingJobs)
	assert.Equal(t, "o1", su.OrderID)

	emails := f.publisher.ByExchange(sharedEvents.OrderNotificationExchange.Name, sharedEvents.OrderEmailKey)
	require.Len(t, emails, 1)
	email := decode[sharedEvents.OrderEmail](t, emails[0])
	assert.Equal(t, sharedEvents.OrderPlacedTemplate, email.Template)
	assert.Equal(t, "alice", email.SellerUsername)
	assert.Equal(t, "bob", email.BuyerUsername)
	assert.Equal(t, "21.5", email.Total)
	assert.Equal(t, "http://client/orders/o1/activities", email.OrderURL)

	notes, _ := f.notifications.ListByUserTo(context.Background(), "Alice")
	require.Len(t, notes, 1)
	assert.Equal(t, "placed an order for your gig.", notes[0].Message)
	assert.Len(t, f.analytics.Entries, 1)
}

func TestCreateOrder_RejectsMissingIdentifiers(t *testing.T) {
	f := newOrderFixture(t)
	o := sampleOrder()
	o.OrderID = ""

	_, err := f.service.CreateOrder(context.Background(), o)

	assert.ErrorIs(t, err, orderDomain.ErrInvalidOrder)
	assert.Empty(t, f.publisher.Events())
}

func TestCancelOrder_PublishesOneUpdateEachAndBlocksApprove(t *testing.T) {
	f := newOrderFixture(t)
	f.create(t)
	before := len(f.publisher.Events())

	o, err := f.service.CancelOrder(context.Background(), "o1", CancelOrderInput{SellerID: "s1", BuyerID: "b1"})
	require.NoError(t, err)
	assert.Equal(t, orderDomain.StatusCancelled, o.Status)
	assert.True(t, o.Cancelled)

	published := f.publisher.Events()[before:]
	require.Len(t, published, 2)
	assert.Equal(t, sharedEvents.SellerUpdateExchange.Name, published[0].Exchange)
	assert.Equal(t, sharedEvents.BuyerUpdateExchange.Name, published[1].Exchange)
	bu := decode[sharedEvents.BuyerUpdate](t, published[1])
	assert.Equal(t, sharedEvents.CancelOrderType, bu.Type)
	assert.Equal(t, "b1", bu.BuyerID)

	_, err = f.service.ApproveOrder(context.Background(), "o1", ApproveOrderInput{SellerID: "s1", BuyerID: "b1"})
	assert.ErrorIs(t, err, orderDomain.ErrInvalidTransition)
	assert.Len(t, f.publisher.Events(), before+2, "rejected transition publishes nothing")

	stored, _ := f.repo.GetByOrderID(context.Background(), "o1")
	assert.Equal(t, orderDomain.StatusCancelled, stored.Status)
	assert.False(t, stored.Approved)
}

func TestTerminalOrders_RejectEveryTransition(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	f.create(t)
	_, err := f.service.ApproveOrder(ctx, "o1", ApproveOrderInput{OngoingJobs: -1, CompletedJobs: 1, TotalEarnings: 20})
	require.NoError(t, err)

	_, err = f.service.CancelOrder(ctx, "o1", CancelOrderInput{})
	assert.ErrorIs(t, err, orderDomain.ErrInvalidTransition)
	_, err = f.service.SellerDeliverOrder(ctx, "o1", orderDomain.DeliveredWork{Message: "late"})
	assert.ErrorIs(t, err, orderDomain.ErrInvalidTransition)
	_, err = f.service.RequestDeliveryDateExtension(ctx, "o1", orderDomain.ExtensionRequest{NewDate: "x", Days: 1})
	assert.ErrorIs(t, err, orderDomain.ErrInvalidTransition)
	_, err = f.service.RejectDeliveryDate(ctx, "o1")
	assert.ErrorIs(t, err, orderDomain.ErrInvalidTransition)
}

func TestTransitions_UnknownOrder(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.service.SellerDeliverOrder(context.Background(), "missing", orderDomain.DeliveredWork{})

	assert.ErrorIs(t, err, orderDomain.ErrOrderNotFound)
	assert.Empty(t, f.publisher.Events())
}

func TestSellerDeliverOrder_AppendsWorkAndNotifiesBuyer(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	f.create(t)

	_, err := f.service.SellerDeliverOrder(ctx, "o1", orderDomain.DeliveredWork{Message: "first"})
	require.NoError(t, err)
	o, err := f.service.SellerDeliverOrder(ctx, "o1", orderDomain.DeliveredWork{Message: "second"})
	require.NoError(t, err)

	assert.Equal(t, orderDomain.StatusDelivered, o.Status)
	assert.True(t, o.Delivered)
	require.Len(t, o.DeliveredWork, 2)
	assert.Equal(t, "first", o.DeliveredWork[0].Message)

	notes, _ := f.notifications.ListByUserTo(ctx, "Bob")
	require.Len(t, notes, 2)
	assert.Equal(t, "delivered your order.", notes[0].Message)
}

func TestDeliveryDateExtension_ClearedAfterApproveOrReject(t *testing.T) {
	ctx := context.Background()
	empty := orderDomain.ExtensionRequest{OriginalDate: "", NewDate: "", Days: 0, Reason: ""}
	req := orderDomain.ExtensionRequest{OriginalDate: "2024-05-04", NewDate: "2024-05-10", Days: 6, Reason: "scope"}

	t.Run("approve", func(t *testing.T) {
		f := newOrderFixture(t)
		f.create(t)
		o, err := f.service.RequestDeliveryDateExtension(ctx, "o1", req)
		require.NoError(t, err)
		assert.Equal(t, req, o.RequestExtension)

		at := time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC)
		o, err = f.service.ApproveDeliveryDate(ctx, "o1", DeliveryDateInput{NewDate: "2024-05-10", Days: 6, Reason: "scope", DeliveryDateUpdate: at})
		require.NoError(t, err)

		assert.Equal(t, empty, o.RequestExtension)
		assert.Equal(t, 6, o.Offer.DeliveryInDays)
		assert.Equal(t, "2024-05-10", o.Offer.NewDeliveryDate)
		assert.Equal(t, at, o.Events[orderDomain.EventDeliveryDateUpdate])

		emails := f.publisher.ByExchange(sharedEvents.OrderNotificationExchange.Name, sharedEvents.OrderEmailKey)
		last := decode[sharedEvents.OrderEmail](t, emails[len(emails)-1])
		assert.Equal(t, sharedEvents.OrderExtensionApprovalTemplate, last.Template)
		assert.Equal(t, "accepted", last.Type)
	})

	t.Run("reject", func(t *testing.T) {
		f := newOrderFixture(t)
		f.create(t)
		_, err := f.service.RequestDeliveryDateExtension(ctx, "o1", req)
		require.NoError(t, err)

		o, err := f.service.RejectDeliveryDate(ctx, "o1")
		require.NoError(t, err)

		assert.Equal(t, empty, o.RequestExtension)
		assert.Equal(t, "2024-05-04", o.Offer.NewDeliveryDate, "offer is untouched")
		notes, _ := f.notifications.ListByUserTo(ctx, "Alice")
		assert.Equal(t, "rejected your order delivery date extension request.", notes[len(notes)-1].Message)
	})

	t.Run("reject without pending request", func(t *testing.T) {
		f := newOrderFixture(t)
		f.create(t)

		o, err := f.service.RejectDeliveryDate(ctx, "o1")
		require.NoError(t, err)
		assert.Equal(t, empty, o.RequestExtension)
	})
}

func TestApproveOrder_PublishesSellerAndBuyerStats(t *testing.T) {
	f := newOrderFixture(t)
	f.create(t)

	o, err := f.service.ApproveOrder(context.Background(), "o1", ApproveOrderInput{
		SellerID: "s1", BuyerID: "b1", OngoingJobs: -1, CompletedJobs: 1, TotalEarnings: 20, PurchasedGigs: "g1",
	})
	require.NoError(t, err)
	assert.Equal(t, orderDomain.StatusCompleted, o.Status)
	assert.True(t, o.Approved)
	assert.NotNil(t, o.ApprovedAt)

	sellerMsgs := f.publisher.ByExchange(sharedEvents.SellerUpdateExchange.Name, "")
	su := decode[sharedEvents.SellerUpdate](t, sellerMsgs[len(sellerMsgs)-1])
	assert.Equal(t, sharedEvents.ApproveOrderType, su.Type)
	assert.Equal(t, 1, su.CompletedJobs)
	assert.Equal(t, 20.0, su.TotalEarnings)
	assert.NotNil(t, su.RecentDelivery)

	buyerMsgs := f.publisher.ByExchange(sharedEvents.BuyerUpdateExchange.Name, sharedEvents.UserBuyerKey)
	require.Len(t, buyerMsgs, 1)
	bu := decode[sharedEvents.BuyerUpdate](t, buyerMsgs[0])
	assert.Equal(t, sharedEvents.PurchasedGigsType, bu.Type)
	assert.Equal(t, "g1", bu.PurchasedGigs)
}

func TestUpdateOrderReview_OverwriteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	f.create(t)
	created := time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)
	msg := sharedEvents.ReviewMessage{GigID: "g1", OrderID: "o1", Rating: 5, Review: "great", Type: sharedEvents.BuyerReview, CreatedAt: created}

	_, err := f.service.UpdateOrderReview(ctx, msg)
	require.NoError(t, err)
	o, err := f.service.UpdateOrderReview(ctx, msg)
	require.NoError(t, err)

	assert.Equal(t, &orderDomain.OrderReview{Rating: 5, Review: "great", Created: created}, o.BuyerReview)
	assert.Equal(t, created, o.Events[orderDomain.EventBuyerReview])
	assert.Nil(t, o.SellerReview)

	notes, _ := f.notifications.ListByUserTo(ctx, "Alice")
	assert.Equal(t, "left you a 5 star review", notes[len(notes)-1].Message)
}

func TestUpdateOrderReview_SellerReviewNotifiesBuyer(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	f.create(t)

	o, err := f.service.UpdateOrderReview(ctx, sharedEvents.ReviewMessage{OrderID: "o1", Rating: 4, Type: sharedEvents.SellerReview})
	require.NoError(t, err)

	assert.Equal(t, 4, o.SellerReview.Rating)
	notes, _ := f.notifications.ListByUserTo(ctx, "Bob")
	require.Len(t, notes, 1)
	assert.Equal(t, "left you a 4 star review", notes[0].Message)
}

func TestUpdateOrderReview_InvalidType(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.service.UpdateOrderReview(context.Background(), sharedEvents.ReviewMessage{OrderID: "o1", Type: "gig-review"})

	assert.ErrorIs(t, err, orderDomain.ErrInvalidReviewType)
}

func TestPublishFailure_DoesNotFailTransition(t *testing.T) {
	f := newOrderFixture(t)
	f.publisher.Err = errors.New("broker down")

	_, err := f.service.CreateOrder(context.Background(), sampleOrder())

	require.NoError(t, err)
	pending, _ := f.outbox.Pending(context.Background(), 10)
	assert.Len(t, pending, 2, "seller update and email wait in the outbox")
}

func TestAnalyticsFailure_IsIgnored(t *testing.T) {
	f := newOrderFixture(t)
	f.analytics.Err = errors.New("clickhouse down")

	_, err := f.service.CreateOrder(context.Background(), sampleOrder())

	assert.NoError(t, err)
}

func TestQueries(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	f.create(t)

	o, err := f.service.GetOrderByOrderID(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "g1", o.GigID)

	bySeller, _ := f.service.GetOrdersBySellerID(ctx, "s1")
	byBuyer, _ := f.service.GetOrdersByBuyerID(ctx, "b1")
	assert.Len(t, bySeller, 1)
	assert.Len(t, byBuyer, 1)

	_, err = f.service.GetOrderByOrderID(ctx, "nope")
	assert.ErrorIs(t, err, orderDomain.ErrOrderNotFound)
}
