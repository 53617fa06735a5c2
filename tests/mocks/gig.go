package mocks

import (
	"context"
	"errors"
	"sync"

	gigDomain "github.com/davicafu/jobberlab/internal/gig/domain"
	ratingDomain "github.com/davicafu/jobberlab/internal/rating/domain"
)

// InMemoryGigRepo simula GigRepository con la misma idempotencia por reviewKey que Mongo.
type InMemoryGigRepo struct {
	mu      sync.Mutex
	Gigs    map[string]*gigDomain.Gig
	applied map[string]map[string]bool
	Err     error
}

func NewInMemoryGigRepo() *InMemoryGigRepo {
	return &InMemoryGigRepo{
		Gigs:    make(map[string]*gigDomain.Gig),
		applied: make(map[string]map[string]bool),
	}
}

func (r *InMemoryGigRepo) Create(ctx context.Context, g *gigDomain.Gig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	cp := *g
	r.Gigs[g.ID] = &cp
	return nil
}

func (r *InMemoryGigRepo) GetByID(ctx context.Context, id string) (*gigDomain.Gig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(id)
}

func (r *InMemoryGigRepo) Update(ctx context.Context, id string, u gigDomain.GigUpdate) (*gigDomain.Gig, error) {
	return r.mutate(id, func(g *gigDomain.Gig) { u.ApplyTo(g) })
}

func (r *InMemoryGigRepo) SetActive(ctx context.Context, id string, active bool) (*gigDomain.Gig, error) {
	return r.mutate(id, func(g *gigDomain.Gig) { g.Active = active })
}

func (r *InMemoryGigRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.Gigs[id]; !ok {
		return gigDomain.ErrGigNotFound
	}
	delete(r.Gigs, id)
	return nil
}

func (r *InMemoryGigRepo) ApplyReview(ctx context.Context, id, reviewKey string, rating ratingDomain.Rating) (*gigDomain.Gig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	g, ok := r.Gigs[id]
	if !ok {
		return nil, gigDomain.ErrGigNotFound
	}
	if r.applied[id][reviewKey] {
		return nil, ratingDomain.ErrReviewAlreadyApplied
	}
	if r.applied[id] == nil {
		r.applied[id] = make(map[string]bool)
	}
	r.applied[id][reviewKey] = true
	g.Apply(rating)
	cp := *g
	return &cp, nil
}

func (r *InMemoryGigRepo) mutate(id string, fn func(*gigDomain.Gig)) (*gigDomain.Gig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	g, ok := r.Gigs[id]
	if !ok {
		return nil, gigDomain.ErrGigNotFound
	}
	fn(g)
	cp := *g
	return &cp, nil
}

func (r *InMemoryGigRepo) get(id string) (*gigDomain.Gig, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	g, ok := r.Gigs[id]
	if !ok {
		return nil, gigDomain.ErrGigNotFound
	}
	cp := *g
	return &cp, nil
}

// ErrIndexDown lo devuelve FailingSearchIndex en todas las operaciones.
var ErrIndexDown = errors.New("search index unavailable")

// FailingSearchIndex es un índice caído, para comprobar que el almacén maestro no depende de él.
type FailingSearchIndex struct{}

func (FailingSearchIndex) EnsureIndex(ctx context.Context) error { return ErrIndexDown }
func (FailingSearchIndex) Index(ctx context.Context, g *gigDomain.Gig) error { return ErrIndexDown }
func (FailingSearchIndex) Delete(ctx context.Context, id string) error { return ErrIndexDown }
func (FailingSearchIndex) Update(ctx context.Context, id string, fields map[string]any) error {
	return ErrIndexDown
}
func (FailingSearchIndex) Get(ctx context.Context, id string) (*gigDomain.Gig, error) {
	return nil, ErrIndexDown
}
func (FailingSearchIndex) Search(ctx context.Context, q gigDomain.GigQuery) (gigDomain.SearchResult, error) {
	return gigDomain.SearchResult{}, ErrIndexDown
}
func (FailingSearchIndex) SearchBySellerID(ctx context.Context, sellerID string, active bool) ([]gigDomain.Gig, error) {
	return nil, ErrIndexDown
}
