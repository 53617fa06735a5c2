package events

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	gigDomain "github.com/davicafu/jobberlab/internal/gig/domain"
	ratingDomain "github.com/davicafu/jobberlab/internal/rating/domain"
	sharedEvents "github.com/davicafu/jobberlab/internal/shared/events"
	sharedBus "github.com/davicafu/jobberlab/internal/shared/infra/platform/bus"
)

// GigReviewService es lo que los consumidores de reviews necesitan del GigService.
type GigReviewService interface {
	ApplyReview(ctx context.Context, msg sharedEvents.ReviewMessage) (*gigDomain.Gig, error)
}

// ReviewConsumer aplica reviews al agregado del gig. Escucha el fanout jobber-review
// (gig-review-queue) y el direct jobber-update-gig (gig-update-queue); la clave de review
// evita contar dos veces una review que llegue por ambos caminos.
type ReviewConsumer struct {
	service GigReviewService
	log     *zap.Logger
}

func NewReviewConsumer(service GigReviewService, log *zap.Logger) *ReviewConsumer {
	return &ReviewConsumer{service: service, log: log}
}

// FanoutHandler decodifica el ReviewMessage tal cual llega del fanout.
func (c *ReviewConsumer) FanoutHandler() sharedBus.MessageHandler {
	return sharedBus.JSONHandler(c.apply)
}

// UpdateHandler decodifica {gigReview: "<json>"} del exchange jobber-update-gig.
func (c *ReviewConsumer) UpdateHandler() sharedBus.MessageHandler {
	return sharedBus.JSONHandler(func(ctx context.Context, u sharedEvents.GigReviewUpdate) error {
		msg, err := u.Decode()
		if err != nil {
			return fmt.Errorf("%w: gigReview: %v", sharedBus.ErrDecode, err)
		}
		return c.apply(ctx, msg)
	})
}

// Start registra los dos consumidores. Cada uno corre en su propia goroutine hasta que ctx termina.
func (c *ReviewConsumer) Start(ctx context.Context, sub sharedBus.Subscriber) error {
	if err := sub.Consume(ctx, sharedEvents.GigReviewBinding, c.FanoutHandler()); err != nil {
		return err
	}
	return sub.Consume(ctx, sharedEvents.GigUpdateBinding, c.UpdateHandler())
}

func (c *ReviewConsumer) apply(ctx context.Context, msg sharedEvents.ReviewMessage) error {
	g, err := c.service.ApplyReview(ctx, msg)
	switch {
	case err == nil && g == nil:
		return nil
	case err == nil:
		c.log.Info("⭐ Gig rating updated",
			zap.String("gig_id", g.ID),
			zap.Int("ratings_count", g.RatingsCount),
			zap.Int("rating_sum", g.RatingSum),
		)
		return nil
	case errors.Is(err, ratingDomain.ErrReviewAlreadyApplied):
		c.log.Info("🔄 Review already applied to gig", zap.String("gig_id", msg.GigID), zap.String("order_id", msg.OrderID))
		return nil
	case errors.Is(err, ratingDomain.ErrInvalidRating), errors.Is(err, gigDomain.ErrInvalidGig):
		return fmt.Errorf("%w: %v", sharedBus.ErrDecode, err)
	case errors.Is(err, gigDomain.ErrGigNotFound):
		c.log.Warn("⚠️ Review for unknown gig ignored", zap.String("gig_id", msg.GigID))
		return nil
	default:
		return err
	}
}
