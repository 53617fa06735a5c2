package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderAlreadyExists   = errors.New("order already exists")
	ErrInvalidOrder         = errors.New("invalid order")
	ErrInvalidTransition    = errors.New("order is in a terminal state")
	ErrInvalidReviewType    = errors.New("invalid review type")
	ErrNotificationNotFound = errors.New("notification not found")
)

// Tipos de review, iguales a los del mensaje de jobber-review.
const (
	ReviewTypeBuyer  = "buyer-review"
	ReviewTypeSeller = "seller-review"
)

type OrderRepository interface {
	Create(ctx context.Context, o *Order) error
	GetByOrderID(ctx context.Context, orderID string) (*Order, error)
	ListBySellerID(ctx context.Context, sellerID string) ([]*Order, error)
	ListByBuyerID(ctx context.Context, buyerID string) ([]*Order, error)

	// ApplyTransition aplica t de forma atómica si el pedido no es terminal.
	// Devuelve ErrOrderNotFound o ErrInvalidTransition.
	ApplyTransition(ctx context.Context, orderID string, t Transition) (*Order, error)

	// SetReview sobrescribe la review del tipo dado. Se permite en cualquier estado.
	SetReview(ctx context.Context, orderID, reviewType string, r OrderReview) (*Order, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	ListByUserTo(ctx context.Context, userTo string) ([]*Notification, error)
	MarkAsRead(ctx context.Context, id string) (*Notification, error)
}

// TransitionLog es una fila de analítica por transición aplicada.
type TransitionLog struct {
	OrderID    string
	Transition string
	Status     OrderStatus
	SellerID   string
	BuyerID    string
	Price      float64
	EventTime  time.Time
}

// OrderAnalyticsRepository registra transiciones (best effort).
type OrderAnalyticsRepository interface {
	LogTransition(ctx context.Context, entry TransitionLog) error
}

// ValidateReviewType rechaza tipos desconocidos.
func ValidateReviewType(t string) error {
	if t != ReviewTypeBuyer && t != ReviewTypeSeller {
		return ErrInvalidReviewType
	}
	return nil
}
