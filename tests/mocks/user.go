package mocks

import (
	"context"
	"sync"

	ratingDomain "github.com/davicafu/jobberlab/internal/rating/domain"
	userDomain "github.com/davicafu/jobberlab/internal/user/domain"
)

// InMemorySellerRepo simula SellerRepository con claves aplicadas por vendedor, como Mongo.
type InMemorySellerRepo struct {
	mu      sync.Mutex
	Sellers map[string]*userDomain.Seller
	applied map[string]bool
	Err     error
}

func NewInMemorySellerRepo() *InMemorySellerRepo {
	return &InMemorySellerRepo{Sellers: make(map[string]*userDomain.Seller), applied: make(map[string]bool)}
}

func (r *InMemorySellerRepo) Create(ctx context.Context, s *userDomain.Seller) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.Sellers[s.ID]; ok {
		return userDomain.ErrUserAlreadyExists
	}
	cp := *s
	r.Sellers[s.ID] = &cp
	return nil
}

func (r *InMemorySellerRepo) GetByID(ctx context.Context, id string) (*userDomain.Seller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	s, ok := r.Sellers[id]
	if !ok {
		return nil, userDomain.ErrSellerNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *InMemorySellerRepo) ApplyStats(ctx context.Context, id, key string, u userDomain.SellerStats) (*userDomain.Seller, error) {
	return r.guarded(id, key, userDomain.ErrUpdateAlreadyApplied, func(s *userDomain.Seller) { u.ApplyTo(s) })
}

func (r *InMemorySellerRepo) ApplyReview(ctx context.Context, id, reviewKey string, rating ratingDomain.Rating) (*userDomain.Seller, error) {
	return r.guarded(id, reviewKey, ratingDomain.ErrReviewAlreadyApplied, func(s *userDomain.Seller) { s.Apply(rating) })
}

func (r *InMemorySellerRepo) guarded(id, key string, dup error, fn func(*userDomain.Seller)) (*userDomain.Seller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	s, ok := r.Sellers[id]
	if !ok {
		return nil, userDomain.ErrSellerNotFound
	}
	if key != "" {
		if r.applied[id+"#"+key] {
			return nil, dup
		}
		r.applied[id+"#"+key] = true
	}
	fn(s)
	cp := *s
	return &cp, nil
}

// InMemoryBuyerRepo simula BuyerRepository.
type InMemoryBuyerRepo struct {
	mu      sync.Mutex
	Buyers  map[string]*userDomain.Buyer
	applied map[string]bool
	Err     error
}

func NewInMemoryBuyerRepo() *InMemoryBuyerRepo {
	return &InMemoryBuyerRepo{Buyers: make(map[string]*userDomain.Buyer), applied: make(map[string]bool)}
}

func (r *InMemoryBuyerRepo) Create(ctx context.Context, b *userDomain.Buyer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.Buyers[b.ID]; ok {
		return userDomain.ErrUserAlreadyExists
	}
	cp := *b
	cp.PurchasedGigs = append([]string{}, b.PurchasedGigs...)
	r.Buyers[b.ID] = &cp
	return nil
}

func (r *InMemoryBuyerRepo) GetByID(ctx context.Context, id string) (*userDomain.Buyer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	b, ok := r.Buyers[id]
	if !ok {
		return nil, userDomain.ErrBuyerNotFound
	}
	return cloneBuyer(b), nil
}

func (r *InMemoryBuyerRepo) AddPurchasedGig(ctx context.Context, id, key, gigID string) (*userDomain.Buyer, error) {
	return r.guarded(id, key, func(b *userDomain.Buyer) { b.PurchasedGigs = append(b.PurchasedGigs, gigID) })
}

// RemovePurchasedGig quita todas las apariciones, igual que $pull.
func (r *InMemoryBuyerRepo) RemovePurchasedGig(ctx context.Context, id, key, gigID string) (*userDomain.Buyer, error) {
	return r.guarded(id, key, func(b *userDomain.Buyer) {
		kept := b.PurchasedGigs[:0]
		for _, g := range b.PurchasedGigs {
			if g != gigID {
				kept = append(kept, g)
			}
		}
		b.PurchasedGigs = kept
	})
}

func (r *InMemoryBuyerRepo) guarded(id, key string, fn func(*userDomain.Buyer)) (*userDomain.Buyer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	b, ok := r.Buyers[id]
	if !ok {
		return nil, userDomain.ErrBuyerNotFound
	}
	if key != "" {
		if r.applied[id+"#"+key] {
			return nil, userDomain.ErrUpdateAlreadyApplied
		}
		r.applied[id+"#"+key] = true
	}
	fn(b)
	return cloneBuyer(b), nil
}

func cloneBuyer(b *userDomain.Buyer) *userDomain.Buyer {
	cp := *b
	cp.PurchasedGigs = append([]string{}, b.PurchasedGigs...)
	return &cp
}
