package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	gigDomain "github.com/davicafu/jobberlab/internal/gig/domain"
	ratingDomain "github.com/davicafu/jobberlab/internal/rating/domain"
	sharedEvents "github.com/davicafu/jobberlab/internal/shared/events"
	sharedBus "github.com/davicafu/jobberlab/internal/shared/infra/platform/bus"
	sharedCache "github.com/davicafu/jobberlab/internal/shared/infra/platform/cache"
)

// EventProducer es la parte del bus.Producer que usa el servicio de gigs.
type EventProducer interface {
	PublishJSON(ctx context.Context, ex sharedBus.Exchange, routingKey string, payload any, logMessage string) error
}

// GigService escribe en el almacén maestro y sincroniza el índice de búsqueda después.
// Un fallo del índice se registra pero no revierte la escritura maestra.
type GigService struct {
	repo     gigDomain.GigRepository
	search   *SearchSync
	cache    sharedCache.Cache
	cacheTTL time.Duration
	fence    *sharedCache.Fence
	producer EventProducer
	log      *zap.Logger
	now      func() time.Time
}

// NewGigService crea el servicio. cache puede ser nil.
func NewGigService(
	repo gigDomain.GigRepository,
	search *SearchSync,
	cache sharedCache.Cache,
	cacheTTL time.Duration,
	producer EventProducer,
	log *zap.Logger,
) *GigService {
	return &GigService{
		repo:     repo,
		search:   search,
		cache:    cache,
		cacheTTL: cacheTTL,
		fence:    sharedCache.NewFence(),
		producer: producer,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *GigService) CreateGig(ctx context.Context, g *gigDomain.Gig) (*gigDomain.Gig, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = s.now()
	}
	if g.SortID == 0 {
		id, err := s.search.NextSortID(ctx)
		if err != nil {
			return nil, err
		}
		g.SortID = id
	}

	if err := s.repo.Create(ctx, g); err != nil {
		s.log.Error("Failed to create gig", zap.String("gig_id", g.ID), zap.Error(err))
		return nil, err
	}

	s.publishGigCount(ctx, g.SellerID, g.ID, 1)
	_ = s.search.OnGigCreated(ctx, g)

	s.log.Info("✅ Gig created", zap.String("gig_id", g.ID), zap.Int64("sort_id", g.SortID))
	return g, nil
}

func (s *GigService) UpdateGig(ctx context.Context, id string, u gigDomain.GigUpdate) (*gigDomain.Gig, error) {
	g, err := s.repo.Update(ctx, id, u)
	if err != nil {
		return nil, err
	}
	s.afterWrite(ctx, id, u.Fields())
	return g, nil
}

func (s *GigService) UpdateActive(ctx context.Context, id string, active bool) (*gigDomain.Gig, error) {
	g, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return nil, err
	}
	s.afterWrite(ctx, id, gigDomain.ActiveFields(active))
	return g, nil
}

func (s *GigService) DeleteGig(ctx context.Context, id, sellerID string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.fence.Invalidate(ctx, s.cache, sharedCache.Key("gig", id), s.log)
	s.publishGigCount(ctx, sellerID, id, -1)
	_ = s.search.OnGigDeleted(ctx, id)
	return nil
}

// GetGig lee del almacén maestro con cache-aside.
func (s *GigService) GetGig(ctx context.Context, id string) (*gigDomain.Gig, error) {
	key := sharedCache.Key("gig", id)
	if s.cache != nil {
		var cached gigDomain.Gig
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.log.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		}
		if found {
			return &cached, nil
		}
	}

	gen := s.fence.Snapshot(key)
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.fence.Fill(ctx, s.cache, key, gen, g, s.cacheTTL, s.log)
	return g, nil
}

func (s *GigService) GetSellerGigs(ctx context.Context, sellerID string) ([]gigDomain.Gig, error) {
	return s.search.SearchBySellerID(ctx, sellerID, true)
}

func (s *GigService) GetSellerPausedGigs(ctx context.Context, sellerID string) ([]gigDomain.Gig, error) {
	return s.search.SearchBySellerID(ctx, sellerID, false)
}

func (s *GigService) SearchGigs(ctx context.Context, q gigDomain.GigQuery) (gigDomain.SearchResult, error) {
	return s.search.Search(ctx, q)
}

// ApplyReview suma una review de comprador al agregado del gig una sola vez por review.
// Las reviews de vendedor valoran al comprador y no afectan al gig.
func (s *GigService) ApplyReview(ctx context.Context, msg sharedEvents.ReviewMessage) (*gigDomain.Gig, error) {
	if msg.Type != sharedEvents.BuyerReview {
		return nil, nil
	}
	rating, err := ratingDomain.ParseRating(msg.Rating)
	if err != nil {
		return nil, err
	}
	if msg.GigID == "" {
		return nil, fmt.Errorf("%w: missing gigId", gigDomain.ErrInvalidGig)
	}

	key := ratingDomain.ReviewKey(msg.GigID, msg.ReviewerID, msg.OrderID, msg.Type)
	g, err := s.repo.ApplyReview(ctx, msg.GigID, key, rating)
	if err != nil {
		return nil, err
	}

	s.fence.Invalidate(ctx, s.cache, sharedCache.Key("gig", g.ID), s.log)
	_ = s.search.OnGigUpdated(ctx, g.ID, gigDomain.RatingFields(g.Aggregate))
	return g, nil
}

func (s *GigService) afterWrite(ctx context.Context, id string, fields map[string]any) {
	s.fence.Invalidate(ctx, s.cache, sharedCache.Key("gig", id), s.log)
	_ = s.search.OnGigUpdated(ctx, id, fields)
}

func (s *GigService) publishGigCount(ctx context.Context, sellerID, gigID string, count int) {
	err := s.producer.PublishJSON(ctx, sharedEvents.SellerUpdateExchange, sharedEvents.UserSellerKey, sharedEvents.SellerUpdate{
		Type:        sharedEvents.UpdateGigCountType,
		GigSellerID: sellerID,
		GigID:       gigID,
		Count:       count,
	}, "Details sent to users service.")
	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.Error("Gig count update lost", zap.String("seller_id", sellerID), zap.Error(err))
	}
}
