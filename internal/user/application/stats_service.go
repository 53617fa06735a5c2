package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	ratingDomain "github.com/davicafu/jobberlab/internal/rating/domain"
	sharedEvents "github.com/davicafu/jobberlab/internal/shared/events"
	"github.com/davicafu/jobberlab/internal/user/domain"
)

// StatsService mantiene las estadísticas de vendedores y compradores que llegan por eventos.
type StatsService struct {
	sellers domain.SellerRepository
	buyers  domain.BuyerRepository
	log     *zap.Logger
	now     func() time.Time
}

func NewStatsService(sellers domain.SellerRepository, buyers domain.BuyerRepository, log *zap.Logger) *StatsService {
	return &StatsService{
		sellers: sellers,
		buyers:  buyers,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *StatsService) CreateSeller(ctx context.Context, seller *domain.Seller) (*domain.Seller, error) {
	if err := seller.Validate(); err != nil {
		return nil, err
	}
	seller.CreatedAt = s.now()
	if err := s.sellers.Create(ctx, seller); err != nil {
		return nil, err
	}
	return seller, nil
}

func (s *StatsService) CreateBuyer(ctx context.Context, buyer *domain.Buyer) (*domain.Buyer, error) {
	if err := buyer.Validate(); err != nil {
		return nil, err
	}
	buyer.CreatedAt = s.now()
	if buyer.PurchasedGigs == nil {
		buyer.PurchasedGigs = []string{}
	}
	if err := s.buyers.Create(ctx, buyer); err != nil {
		return nil, err
	}
	return buyer, nil
}

func (s *StatsService) GetSeller(ctx context.Context, id string) (*domain.Seller, error) {
	return s.sellers.GetByID(ctx, id)
}

func (s *StatsService) GetBuyer(ctx context.Context, id string) (*domain.Buyer, error) {
	return s.buyers.GetByID(ctx, id)
}

// HandleSellerUpdate traduce un mensaje de user-seller a incrementos sobre el vendedor.
func (s *StatsService) HandleSellerUpdate(ctx context.Context, msg sharedEvents.SellerUpdate) (*domain.Seller, error) {
	var (
		id    = msg.SellerID
		ref   = msg.OrderID
		stats domain.SellerStats
	)

	switch msg.Type {
	case sharedEvents.CreateOrderType:
		stats.OngoingJobs = msg.OngoingJobs
	case sharedEvents.CancelOrderType:
		stats.OngoingJobs = -1
		stats.CancelledJobs = 1
	case sharedEvents.ApproveOrderType:
		stats.OngoingJobs = msg.OngoingJobs
		stats.CompletedJobs = msg.CompletedJobs
		stats.TotalEarnings = msg.TotalEarnings
		stats.RecentDelivery = msg.RecentDelivery
	case sharedEvents.UpdateGigCountType:
		id = msg.GigSellerID
		ref = domain.GigCountRef(msg.GigID, msg.Count)
		stats.TotalGigs = msg.Count
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownUpdateType, msg.Type)
	}
	if id == "" {
		return nil, fmt.Errorf("%w: missing seller id", domain.ErrInvalidUser)
	}

	return s.sellers.ApplyStats(ctx, id, domain.UpdateKey(id, msg.Type, ref), stats)
}

// HandleBuyerUpdate añade o quita el gig comprado según el tipo del mensaje de user-buyer.
func (s *StatsService) HandleBuyerUpdate(ctx context.Context, msg sharedEvents.BuyerUpdate) (*domain.Buyer, error) {
	if msg.BuyerID == "" || msg.PurchasedGigs == "" {
		return nil, fmt.Errorf("%w: buyerId and purchasedGigs are required", domain.ErrInvalidUser)
	}
	key := domain.UpdateKey(msg.BuyerID, msg.Type, msg.OrderID)

	switch msg.Type {
	case sharedEvents.PurchasedGigsType:
		return s.buyers.AddPurchasedGig(ctx, msg.BuyerID, key, msg.PurchasedGigs)
	case sharedEvents.CancelOrderType:
		return s.buyers.RemovePurchasedGig(ctx, msg.BuyerID, key, msg.PurchasedGigs)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownUpdateType, msg.Type)
	}
}

// ApplySellerReview suma al vendedor las reviews que le dejan los compradores.
// Devuelve (nil, nil) para las seller-review, que valoran al comprador.
func (s *StatsService) ApplySellerReview(ctx context.Context, msg sharedEvents.ReviewMessage) (*domain.Seller, error) {
	if msg.Type != sharedEvents.BuyerReview {
		return nil, nil
	}
	rating, err := ratingDomain.ParseRating(msg.Rating)
	if err != nil {
		return nil, err
	}
	if msg.SellerID == "" {
		return nil, fmt.Errorf("%w: missing sellerId", domain.ErrInvalidUser)
	}
	key := ratingDomain.ReviewKey(msg.GigID, msg.ReviewerID, msg.OrderID, msg.Type)
	return s.sellers.ApplyReview(ctx, msg.SellerID, key, rating)
}
