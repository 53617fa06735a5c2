package domain

import (
	"context"

	ratingDomain "github.com/davicafu/jobberlab/internal/rating/domain"
)

// GigRepository es el almacén maestro de gigs.
type GigRepository interface {
	Create(ctx context.Context, g *Gig) error
	GetByID(ctx context.Context, id string) (*Gig, error)
	Update(ctx context.Context, id string, u GigUpdate) (*Gig, error)
	SetActive(ctx context.Context, id string, active bool) (*Gig, error)
	Delete(ctx context.Context, id string) error

	// ApplyReview incrementa el agregado una sola vez por reviewKey, en una única operación atómica.
	// Devuelve ratingDomain.ErrReviewAlreadyApplied si la clave ya se aplicó.
	ApplyReview(ctx context.Context, id, reviewKey string, r ratingDomain.Rating) (*Gig, error)
}

// SearchIndex es el índice derivado. Nunca es fuente de verdad.
type SearchIndex interface {
	EnsureIndex(ctx context.Context) error
	Index(ctx context.Context, g *Gig) error
	Update(ctx context.Context, id string, fields map[string]any) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*Gig, error)
	Search(ctx context.Context, q GigQuery) (SearchResult, error)
	SearchBySellerID(ctx context.Context, sellerID string, active bool) ([]Gig, error)
}

// SequenceGenerator entrega valores crecientes por nombre (incremento atómico en el almacén).
type SequenceGenerator interface {
	Next(ctx context.Context, name string) (int64, error)
}

// SortIDSequence es el nombre de la secuencia de sortId.
const SortIDSequence = "gigs"
