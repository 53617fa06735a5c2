package events

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	orderDomain "github.com/davicafu/jobberlab/internal/order/domain"
	sharedEvents "github.com/davicafu/jobberlab/internal/shared/events"
	sharedBus "github.com/davicafu/jobberlab/internal/shared/infra/platform/bus"
)

// OrderReviewService es lo que el consumidor necesita del OrderService.
type OrderReviewService interface {
	UpdateOrderReview(ctx context.Context, msg sharedEvents.ReviewMessage) (*orderDomain.Order, error)
}

// ReviewConsumer aplica las reviews del fanout jobber-review sobre el pedido (order-review-queue).
type ReviewConsumer struct {
	service OrderReviewService
	log     *zap.Logger
}

func NewReviewConsumer(service OrderReviewService, log *zap.Logger) *ReviewConsumer {
	return &ReviewConsumer{service: service, log: log}
}

// Handler devuelve el MessageHandler que se registra en el Subscriber.
func (c *ReviewConsumer) Handler() sharedBus.MessageHandler {
	return sharedBus.JSONHandler(c.handle)
}

// Start enlaza la cola del pedido al fanout y empieza a consumir.
func (c *ReviewConsumer) Start(ctx context.Context, sub sharedBus.Subscriber) error {
	return sub.Consume(ctx, sharedEvents.OrderReviewBinding, c.Handler())
}

func (c *ReviewConsumer) handle(ctx context.Context, msg sharedEvents.ReviewMessage) error {
	_, err := c.service.UpdateOrderReview(ctx, msg)
	switch {
	case err == nil:
		c.log.Info("📬 Order review updated",
			zap.String("order_id", msg.OrderID),
			zap.String("type", msg.Type),
		)
		return nil
	case errors.Is(err, orderDomain.ErrInvalidReviewType):
		return fmt.Errorf("%w: %v", sharedBus.ErrDecode, err)
	case errors.Is(err, orderDomain.ErrOrderNotFound):
		// Reintentar no lo va a crear: se descarta con ack.
		c.log.Warn("⚠️ Review for unknown order ignored", zap.String("order_id", msg.OrderID))
		return nil
	default:
		return err
	}
}
