package domain

import (
	"context"

	ratingDomain "github.com/davicafu/jobberlab/internal/rating/domain"
)

type SellerRepository interface {
	// Debe devolver ErrUserAlreadyExists si el vendedor ya existe.
	Create(ctx context.Context, s *Seller) error

	// Debe devolver ErrSellerNotFound si no existe.
	GetByID(ctx context.Context, id string) (*Seller, error)

	// ApplyStats aplica los incrementos de forma atómica. Con key no vacía la clave se registra
	// en la misma operación y un segundo intento devuelve ErrUpdateAlreadyApplied.
	ApplyStats(ctx context.Context, id, key string, u SellerStats) (*Seller, error)

	// ApplyReview suma una review al agregado del vendedor una sola vez por reviewKey.
	ApplyReview(ctx context.Context, id, reviewKey string, r ratingDomain.Rating) (*Seller, error)
}

type BuyerRepository interface {
	Create(ctx context.Context, b *Buyer) error
	GetByID(ctx context.Context, id string) (*Buyer, error)

	// AddPurchasedGig y RemovePurchasedGig siguen la misma regla de clave que ApplyStats.
	AddPurchasedGig(ctx context.Context, id, key, gigID string) (*Buyer, error)
	RemovePurchasedGig(ctx context.Context, id, key, gigID string) (*Buyer, error)
}
