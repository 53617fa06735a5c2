package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	orderDomain "github.com/davicafu/jobberlab/internal/order/domain"
	sharedEvents "github.com/davicafu/jobberlab/internal/shared/events"
	sharedBus "github.com/davicafu/jobberlab/internal/shared/infra/platform/bus"
	sharedUtils "github.com/davicafu/jobberlab/internal/shared/infra/utils"
)

// EventProducer es la parte del bus.Producer que usan los servicios.
type EventProducer interface {
	PublishJSON(ctx context.Context, ex sharedBus.Exchange, routingKey string, payload any, logMessage string) error
}

const analyticsTimeout = 2 * time.Second

// CancelOrderInput llega del servicio de pagos con el reembolso ya aprobado.
type CancelOrderInput struct {
	SellerID      string
	BuyerID       string
	PurchasedGigs string
}

// ApproveOrderInput lleva los incrementos de estadísticas que calcula el cliente.
type ApproveOrderInput struct {
	SellerID      string
	BuyerID       string
	OngoingJobs   int
	CompletedJobs int
	TotalEarnings float64
	PurchasedGigs string
}

// DeliveryDateInput es la ampliación aprobada por el comprador.
type DeliveryDateInput struct {
	NewDate            string
	Days               int
	Reason             string
	DeliveryDateUpdate time.Time
}

// OrderService implementa el ciclo de vida del pedido. La escritura del pedido es la fuente de
// verdad: los eventos y notificaciones posteriores son best effort y nunca revierten la transición.
type OrderService struct {
	repo          orderDomain.OrderRepository
	notifications *NotificationService
	producer      EventProducer
	analytics     orderDomain.OrderAnalyticsRepository
	clientURL     string
	log           *zap.Logger
	now           func() time.Time
}

// NewOrderService crea el servicio. analytics puede ser nil.
func NewOrderService(
	repo orderDomain.OrderRepository,
	notifications *NotificationService,
	producer EventProducer,
	analytics orderDomain.OrderAnalyticsRepository,
	clientURL string,
	log *zap.Logger,
) *OrderService {
	return &OrderService{
		repo:          repo,
		notifications: notifications,
		producer:      producer,
		analytics:     analytics,
		clientURL:     strings.TrimRight(clientURL, "/"),
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *OrderService) CreateOrder(ctx context.Context, o *orderDomain.Order) (*orderDomain.Order, error) {
	if o.OrderID == "" || o.SellerID == "" || o.BuyerID == "" {
		return nil, fmt.Errorf("%w: orderId, sellerId and buyerId are required", orderDomain.ErrInvalidOrder)
	}

	now := s.now()
	o.Status = orderDomain.StatusPlaced
	if o.DateOrdered.IsZero() {
		o.DateOrdered = now
	}
	o.StampEvent(orderDomain.EventPlaceOrder, now)
	if o.DeliveredWork == nil {
		o.DeliveredWork = []orderDomain.DeliveredWork{}
	}

	if err := s.repo.Create(ctx, o); err != nil {
		s.log.Error("Failed to create order", zap.String("order_id", o.OrderID), zap.Error(err))
		return nil, err
	}
	s.record(ctx, o, "create")

	s.publish(ctx, sharedEvents.SellerUpdateExchange, sharedEvents.UserSellerKey, sharedEvents.SellerUpdate{
		Type:        sharedEvents.CreateOrderType,
		SellerID:    o.SellerID,
		OrderID:     o.OrderID,
		OngoingJobs: 1,
	}, "Details sent to users service")

	s.publish(ctx, sharedEvents.OrderNotificationExchange, sharedEvents.OrderEmailKey, sharedEvents.OrderEmail{
		Template:       sharedEvents.OrderPlacedTemplate,
		OrderID:        o.OrderID,
		InvoiceID:      o.InvoiceID,
		OrderDue:       o.Offer.NewDeliveryDate,
		Amount:         formatAmount(o.Price),
		ServiceFee:     formatAmount(o.ServiceFee),
		Total:          formatAmount(o.Price + o.ServiceFee),
		BuyerUsername:  strings.ToLower(o.BuyerUsername),
		SellerUsername: strings.ToLower(o.SellerUsername),
		Title:          o.Offer.GigTitle,
		Description:    o.Offer.Description,
		Requirements:   o.Requirements,
		OrderURL:       s.orderURL(o.OrderID),
	}, "Order email sent to notification service.")

	s.notifications.Send(ctx, o, o.SellerUsername, "placed an order for your gig.")
	return o, nil
}

func (s *OrderService) CancelOrder(ctx context.Context, orderID string, in CancelOrderInput) (*orderDomain.Order, error) {
	now := s.now()
	o, err := s.transition(ctx, orderID, orderDomain.Transition{
		Name:       "cancel",
		Status:     orderDomain.StatusCancelled,
		Cancelled:  true,
		ApprovedAt: &now,
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, sharedEvents.SellerUpdateExchange, sharedEvents.UserSellerKey, sharedEvents.SellerUpdate{
		Type:     sharedEvents.CancelOrderType,
		SellerID: sharedUtils.OrElse(in.SellerID, o.SellerID),
		OrderID:  orderID,
	}, "Cancelled order details sent to users service.")

	s.publish(ctx, sharedEvents.BuyerUpdateExchange, sharedEvents.UserBuyerKey, sharedEvents.BuyerUpdate{
		Type:          sharedEvents.CancelOrderType,
		BuyerID:       sharedUtils.OrElse(in.BuyerID, o.BuyerID),
		OrderID:       orderID,
		PurchasedGigs: sharedUtils.OrElse(in.PurchasedGigs, o.GigID),
	}, "Cancelled order details sent to users service.")

	s.notifications.Send(ctx, o, o.SellerUsername, "cancelled your order delivery.")
	return o, nil
}

func (s *OrderService) SellerDeliverOrder(ctx context.Context, orderID string, work orderDomain.DeliveredWork) (*orderDomain.Order, error) {
	o, err := s.transition(ctx, orderID, orderDomain.Transition{
		Name:          "deliver",
		Status:        orderDomain.StatusDelivered,
		Delivered:     true,
		DeliveredWork: &work,
		EventKey:      orderDomain.EventOrderDelivered,
		EventAt:       s.now(),
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, sharedEvents.OrderNotificationExchange, sharedEvents.OrderEmailKey, sharedEvents.OrderEmail{
		Template:       sharedEvents.OrderDeliveredTemplate,
		OrderID:        orderID,
		BuyerUsername:  strings.ToLower(o.BuyerUsername),
		SellerUsername: strings.ToLower(o.SellerUsername),
		Title:          o.Offer.GigTitle,
		Description:    o.Offer.Description,
		OrderURL:       s.orderURL(orderID),
	}, "Order delivered message sent to notification service.")

	s.notifications.Send(ctx, o, o.BuyerUsername, "delivered your order.")
	return o, nil
}

func (s *OrderService) RequestDeliveryDateExtension(ctx context.Context, orderID string, req orderDomain.ExtensionRequest) (*orderDomain.Order, error) {
	if req.IsEmpty() {
		return nil, fmt.Errorf("%w: empty extension request", orderDomain.ErrInvalidOrder)
	}
	o, err := s.transition(ctx, orderID, orderDomain.Transition{
		Name:      "request_extension",
		Extension: &req,
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, sharedEvents.OrderNotificationExchange, sharedEvents.OrderEmailKey, sharedEvents.OrderEmail{
		Template:       sharedEvents.OrderExtensionTemplate,
		BuyerUsername:  strings.ToLower(o.BuyerUsername),
		SellerUsername: strings.ToLower(o.SellerUsername),
		OriginalDate:   req.OriginalDate,
		NewDate:        req.NewDate,
		Reason:         req.Reason,
		OrderURL:       s.orderURL(orderID),
	}, "Order extension request sent to notification service.")

	s.notifications.Send(ctx, o, o.BuyerUsername, "requested for an order delivery date extension.")
	return o, nil
}

func (s *OrderService) ApproveDeliveryDate(ctx context.Context, orderID string, in DeliveryDateInput) (*orderDomain.Order, error) {
	at := in.DeliveryDateUpdate
	if at.IsZero() {
		at = s.now()
	}
	o, err := s.transition(ctx, orderID, orderDomain.Transition{
		Name:      "approve_extension",
		Extension: &orderDomain.ExtensionRequest{},
		OfferUpdate: &orderDomain.OfferDateUpdate{
			DeliveryInDays:  in.Days,
			NewDeliveryDate: in.NewDate,
			Reason:          in.Reason,
		},
		EventKey: orderDomain.EventDeliveryDateUpdate,
		EventAt:  at,
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, sharedEvents.OrderNotificationExchange, sharedEvents.OrderEmailKey, sharedEvents.OrderEmail{
		Template:       sharedEvents.OrderExtensionApprovalTemplate,
		Subject:        "Congratulations: Your extension request was approved",
		BuyerUsername:  strings.ToLower(o.BuyerUsername),
		SellerUsername: strings.ToLower(o.SellerUsername),
		Header:         "Request Accepted",
		Type:           "accepted",
		Message:        "You can continue working on the order.",
		OrderURL:       s.orderURL(orderID),
	}, "Order request extension approval message sent to notification service.")

	s.notifications.Send(ctx, o, o.SellerUsername, "approved your order delivery date extension request.")
	return o, nil
}

func (s *OrderService) RejectDeliveryDate(ctx context.Context, orderID string) (*orderDomain.Order, error) {
	o, err := s.transition(ctx, orderID, orderDomain.Transition{
		Name:      "reject_extension",
		Extension: &orderDomain.ExtensionRequest{},
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, sharedEvents.OrderNotificationExchange, sharedEvents.OrderEmailKey, sharedEvents.OrderEmail{
		Template:       sharedEvents.OrderExtensionApprovalTemplate,
		Subject:        "Sorry: Your extension request was rejected",
		BuyerUsername:  strings.ToLower(o.BuyerUsername),
		SellerUsername: strings.ToLower(o.SellerUsername),
		Header:         "Request Rejected",
		Type:           "rejected",
		Message:        "You can contact the buyer for more information.",
		OrderURL:       s.orderURL(orderID),
	}, "Order request extension rejection message sent to notification service.")

	s.notifications.Send(ctx, o, o.SellerUsername, "rejected your order delivery date extension request.")
	return o, nil
}

func (s *OrderService) ApproveOrder(ctx context.Context, orderID string, in ApproveOrderInput) (*orderDomain.Order, error) {
	now := s.now()
	o, err := s.transition(ctx, orderID, orderDomain.Transition{
		Name:       "approve",
		Status:     orderDomain.StatusCompleted,
		Approved:   true,
		ApprovedAt: &now,
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, sharedEvents.SellerUpdateExchange, sharedEvents.UserSellerKey, sharedEvents.SellerUpdate{
		Type:           sharedEvents.ApproveOrderType,
		SellerID:       sharedUtils.OrElse(in.SellerID, o.SellerID),
		OrderID:        orderID,
		OngoingJobs:    in.OngoingJobs,
		CompletedJobs:  in.CompletedJobs,
		TotalEarnings:  in.TotalEarnings,
		RecentDelivery: &now,
	}, "Approved order details sent to users service.")

	s.publish(ctx, sharedEvents.BuyerUpdateExchange, sharedEvents.UserBuyerKey, sharedEvents.BuyerUpdate{
		Type:          sharedEvents.PurchasedGigsType,
		BuyerID:       sharedUtils.OrElse(in.BuyerID, o.BuyerID),
		OrderID:       orderID,
		PurchasedGigs: sharedUtils.OrElse(in.PurchasedGigs, o.GigID),
	}, "Approved order details sent to users service.")

	s.notifications.Send(ctx, o, o.SellerUsername, "approved your order delivery.")
	return o, nil
}

// UpdateOrderReview sobrescribe la review del pedido. Aplicarla dos veces deja el mismo estado.
func (s *OrderService) UpdateOrderReview(ctx context.Context, msg sharedEvents.ReviewMessage) (*orderDomain.Order, error) {
	if err := orderDomain.ValidateReviewType(msg.Type); err != nil {
		return nil, err
	}
	created := msg.CreatedAt
	if created.IsZero() {
		created = s.now()
	}

	o, err := s.repo.SetReview(ctx, msg.OrderID, msg.Type, orderDomain.OrderReview{
		Rating:  msg.Rating,
		Review:  msg.Review,
		Created: created,
	})
	if err != nil {
		if errors.Is(err, orderDomain.ErrOrderNotFound) {
			s.log.Warn("Review for unknown order", zap.String("order_id", msg.OrderID))
		} else {
			s.log.Error("Failed to update order review", zap.String("order_id", msg.OrderID), zap.Error(err))
		}
		return nil, err
	}
	s.record(ctx, o, msg.Type)

	userTo := sharedUtils.Pick(msg.Type == orderDomain.ReviewTypeBuyer, o.SellerUsername, o.BuyerUsername)
	s.notifications.Send(ctx, o, userTo, fmt.Sprintf("left you a %d star review", msg.Rating))
	return o, nil
}

func (s *OrderService) GetOrderByOrderID(ctx context.Context, orderID string) (*orderDomain.Order, error) {
	return s.repo.GetByOrderID(ctx, orderID)
}

func (s *OrderService) GetOrdersBySellerID(ctx context.Context, sellerID string) ([]*orderDomain.Order, error) {
	return s.repo.ListBySellerID(ctx, sellerID)
}

func (s *OrderService) GetOrdersByBuyerID(ctx context.Context, buyerID string) ([]*orderDomain.Order, error) {
	return s.repo.ListByBuyerID(ctx, buyerID)
}

func (s *OrderService) transition(ctx context.Context, orderID string, t orderDomain.Transition) (*orderDomain.Order, error) {
	o, err := s.repo.ApplyTransition(ctx, orderID, t)
	if err != nil {
		switch {
		case errors.Is(err, orderDomain.ErrOrderNotFound):
			s.log.Warn("Order not found", zap.String("order_id", orderID), zap.String("transition", t.Name))
		case errors.Is(err, orderDomain.ErrInvalidTransition):
			s.log.Warn("Transition rejected on terminal order", zap.String("order_id", orderID), zap.String("transition", t.Name))
		default:
			s.log.Error("Failed to apply order transition", zap.String("order_id", orderID), zap.String("transition", t.Name), zap.Error(err))
		}
		return nil, err
	}
	s.record(ctx, o, t.Name)
	return o, nil
}

// publish no propaga errores: el Producer ya deja el evento en el outbox si puede.
func (s *OrderService) publish(ctx context.Context, ex sharedBus.Exchange, key string, payload any, logMessage string) {
	if err := s.producer.PublishJSON(ctx, ex, key, payload, logMessage); err != nil {
		s.log.Error("Order event lost",
			zap.String("exchange", ex.Name),
			zap.String("routing_key", key),
			zap.Error(err),
		)
	}
}

func (s *OrderService) record(ctx context.Context, o *orderDomain.Order, transition string) {
	if s.analytics == nil {
		return
	}
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), analyticsTimeout)
	defer cancel()
	err := s.analytics.LogTransition(actx, orderDomain.TransitionLog{
		OrderID:    o.OrderID,
		Transition: transition,
		Status:     o.Status,
		SellerID:   o.SellerID,
		BuyerID:    o.BuyerID,
		Price:      o.Price,
		EventTime:  s.now(),
	})
	if err != nil {
		s.log.Warn("⚠️ Order analytics write failed", zap.String("order_id", o.OrderID), zap.Error(err))
	}
}

func (s *OrderService) orderURL(orderID string) string {
	return s.clientURL + "/orders/" + orderID + "/activities"
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
