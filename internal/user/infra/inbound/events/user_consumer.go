package events

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	ratingDomain "github.com/davicafu/jobberlab/internal/rating/domain"
	sharedEvents "github.com/davicafu/jobberlab/internal/shared/events"
	sharedBus "github.com/davicafu/jobberlab/internal/shared/infra/platform/bus"
	userDomain "github.com/davicafu/jobberlab/internal/user/domain"
)

// UserStatsService es lo que los consumidores necesitan del StatsService.
type UserStatsService interface {
	HandleSellerUpdate(ctx context.Context, msg sharedEvents.SellerUpdate) (*userDomain.Seller, error)
	HandleBuyerUpdate(ctx context.Context, msg sharedEvents.BuyerUpdate) (*userDomain.Buyer, error)
	ApplySellerReview(ctx context.Context, msg sharedEvents.ReviewMessage) (*userDomain.Seller, error)
}

// UserConsumer agrupa las colas del servicio de usuarios: user-seller, user-buyer y
// seller-review (fanout jobber-review).
type UserConsumer struct {
	service UserStatsService
	log     *zap.Logger
}

func NewUserConsumer(service UserStatsService, log *zap.Logger) *UserConsumer {
	return &UserConsumer{service: service, log: log}
}

func (c *UserConsumer) SellerHandler() sharedBus.MessageHandler {
	return sharedBus.JSONHandler(func(ctx context.Context, msg sharedEvents.SellerUpdate) error {
		s, err := c.service.HandleSellerUpdate(ctx, msg)
		if err != nil {
			return c.outcome(err, "seller", msg.Type, msg.OrderID)
		}
		c.log.Info("📬 Seller stats updated", zap.String("seller_id", s.ID), zap.String("type", msg.Type))
		return nil
	})
}

func (c *UserConsumer) BuyerHandler() sharedBus.MessageHandler {
	return sharedBus.JSONHandler(func(ctx context.Context, msg sharedEvents.BuyerUpdate) error {
		b, err := c.service.HandleBuyerUpdate(ctx, msg)
		if err != nil {
			return c.outcome(err, "buyer", msg.Type, msg.OrderID)
		}
		c.log.Info("📬 Buyer purchases updated", zap.String("buyer_id", b.ID), zap.String("type", msg.Type))
		return nil
	})
}

func (c *UserConsumer) ReviewHandler() sharedBus.MessageHandler {
	return sharedBus.JSONHandler(func(ctx context.Context, msg sharedEvents.ReviewMessage) error {
		s, err := c.service.ApplySellerReview(ctx, msg)
		if err != nil {
			return c.outcome(err, "seller", msg.Type, msg.OrderID)
		}
		if s != nil {
			c.log.Info("⭐ Seller rating updated", zap.String("seller_id", s.ID), zap.Int("ratings_count", s.RatingsCount))
		}
		return nil
	})
}

// Start registra las tres colas.
func (c *UserConsumer) Start(ctx context.Context, sub sharedBus.Subscriber) error {
	if err := sub.Consume(ctx, sharedEvents.UserSellerBinding, c.SellerHandler()); err != nil {
		return err
	}
	if err := sub.Consume(ctx, sharedEvents.UserBuyerBinding, c.BuyerHandler()); err != nil {
		return err
	}
	return sub.Consume(ctx, sharedEvents.SellerReviewBinding, c.ReviewHandler())
}

// outcome traduce el error del servicio a la política del dispatcher:
// duplicados y usuarios desconocidos se confirman, mensajes inválidos van a dead-letter.
func (c *UserConsumer) outcome(err error, kind, msgType, orderID string) error {
	switch {
	case errors.Is(err, userDomain.ErrUpdateAlreadyApplied), errors.Is(err, ratingDomain.ErrReviewAlreadyApplied):
		c.log.Info("🔄 Duplicate update ignored", zap.String("kind", kind), zap.String("type", msgType), zap.String("order_id", orderID))
		return nil
	case errors.Is(err, userDomain.ErrSellerNotFound), errors.Is(err, userDomain.ErrBuyerNotFound):
		c.log.Warn("⚠️ Update for unknown user ignored", zap.String("kind", kind), zap.String("type", msgType))
		return nil
	case errors.Is(err, userDomain.ErrUnknownUpdateType),
		errors.Is(err, userDomain.ErrInvalidUser),
		errors.Is(err, ratingDomain.ErrInvalidRating):
		return fmt.Errorf("%w: %v", sharedBus.ErrDecode, err)
	default:
		return err
	}
}
