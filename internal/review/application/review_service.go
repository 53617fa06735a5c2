package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/davicafu/jobberlab/internal/review/domain"
	sharedEvents "github.com/davicafu/jobberlab/internal/shared/events"
	sharedBus "github.com/davicafu/jobberlab/internal/shared/infra/platform/bus"
)

type EventProducer interface {
	PublishJSON(ctx context.Context, ex sharedBus.Exchange, routingKey string, payload any, logMessage string) error
}

// ReviewService guarda reviews y difunde cada una por el fanout jobber-review,
// que consumen el servicio de pedidos y los agregados de valoración.
type ReviewService struct {
	repo     domain.ReviewRepository
	producer EventProducer
	log      *zap.Logger
	now      func() time.Time
}

func NewReviewService(repo domain.ReviewRepository, producer EventProducer, log *zap.Logger) *ReviewService {
	return &ReviewService{
		repo:     repo,
		producer: producer,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// AddReview inserta la review y publica un único evento fanout. Una review repetida
// devuelve ErrReviewAlreadyExists sin volver a publicar.
func (s *ReviewService) AddReview(ctx context.Context, r *domain.Review) (*domain.Review, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	r.CreatedAt = s.now()

	created, err := s.repo.Create(ctx, r)
	if err != nil {
		return nil, err
	}

	msg := created.Message()
	if err := s.producer.PublishJSON(ctx, sharedEvents.ReviewExchange, "", msg,
		"Review details sent to order and users services"); err != nil {
		s.log.Error("Review event lost",
			zap.String("gig_id", msg.GigID),
			zap.String("order_id", msg.OrderID),
			zap.Error(err),
		)
	}
	return created, nil
}

func (s *ReviewService) GetReviewsByGigID(ctx context.Context, gigID string) ([]*domain.Review, error) {
	return s.repo.ListByGigID(ctx, gigID)
}

// GetReviewsBySellerID solo devuelve reviews de tipo seller-review.
func (s *ReviewService) GetReviewsBySellerID(ctx context.Context, sellerID string) ([]*domain.Review, error) {
	return s.repo.ListBySellerID(ctx, sellerID, sharedEvents.SellerReview)
}
