package mocks

import (
	"context"
	"sync"

	reviewDomain "github.com/davicafu/jobberlab/internal/review/domain"
)

// InMemoryReviewRepo simula ReviewRepository con la misma restricción de unicidad que la tabla.
type InMemoryReviewRepo struct {
	mu      sync.Mutex
	Reviews []*reviewDomain.Review
	Err     error
}

func (r *InMemoryReviewRepo) Create(ctx context.Context, rv *reviewDomain.Review) (*reviewDomain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	for _, existing := range r.Reviews {
		if existing.GigID == rv.GigID && existing.ReviewerID == rv.ReviewerID &&
			existing.OrderID == rv.OrderID && existing.ReviewType == rv.ReviewType {
			return nil, reviewDomain.ErrReviewAlreadyExists
		}
	}
	cp := *rv
	cp.ID = int64(len(r.Reviews) + 1)
	r.Reviews = append(r.Reviews, &cp)
	out := cp
	return &out, nil
}

func (r *InMemoryReviewRepo) ListByGigID(ctx context.Context, gigID string) ([]*reviewDomain.Review, error) {
	return r.list(func(rv *reviewDomain.Review) bool { return rv.GigID == gigID })
}

func (r *InMemoryReviewRepo) ListBySellerID(ctx context.Context, sellerID, reviewType string) ([]*reviewDomain.Review, error) {
	return r.list(func(rv *reviewDomain.Review) bool { return rv.SellerID == sellerID && rv.ReviewType == reviewType })
}

func (r *InMemoryReviewRepo) list(match func(*reviewDomain.Review) bool) ([]*reviewDomain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	out := []*reviewDomain.Review{}
	for _, rv := range r.Reviews {
		if match(rv) {
			cp := *rv
			out = append(out, &cp)
		}
	}
	return out, nil
}
