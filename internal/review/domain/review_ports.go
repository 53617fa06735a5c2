package domain

import "context"

type ReviewRepository interface {
	// Create inserta la review. Devuelve ErrReviewAlreadyExists si su identidad ya existe.
	Create(ctx context.Context, r *Review) (*Review, error)
	ListByGigID(ctx context.Context, gigID string) ([]*Review, error)
	ListBySellerID(ctx context.Context, sellerID, reviewType string) ([]*Review, error)
}
