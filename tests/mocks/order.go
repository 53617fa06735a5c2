package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	orderDomain "github.com/davicafu/jobberlab/internal/order/domain"
)

// InMemoryOrderRepo simula OrderRepository con el mismo filtro de estado terminal que Mongo.
type InMemoryOrderRepo struct {
	mu     sync.Mutex
	Orders map[string]*orderDomain.Order
}

func NewInMemoryOrderRepo() *InMemoryOrderRepo {
	return &InMemoryOrderRepo{Orders: make(map[string]*orderDomain.Order)}
}

func (r *InMemoryOrderRepo) Create(ctx context.Context, o *orderDomain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Orders[o.OrderID]; ok {
		return orderDomain.ErrOrderAlreadyExists
	}
	r.Orders[o.OrderID] = cloneOrder(o)
	return nil
}

func (r *InMemoryOrderRepo) GetByOrderID(ctx context.Context, orderID string) (*orderDomain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.Orders[orderID]
	if !ok {
		return nil, orderDomain.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (r *InMemoryOrderRepo) ListBySellerID(ctx context.Context, sellerID string) ([]*orderDomain.Order, error) {
	return r.list(func(o *orderDomain.Order) bool { return o.SellerID == sellerID }), nil
}

func (r *InMemoryOrderRepo) ListByBuyerID(ctx context.Context, buyerID string) ([]*orderDomain.Order, error) {
	return r.list(func(o *orderDomain.Order) bool { return o.BuyerID == buyerID }), nil
}

func (r *InMemoryOrderRepo) ApplyTransition(ctx context.Context, orderID string, t orderDomain.Transition) (*orderDomain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.Orders[orderID]
	if !ok {
		return nil, orderDomain.ErrOrderNotFound
	}
	if o.Status.IsTerminal() {
		return nil, orderDomain.ErrInvalidTransition
	}
	t.ApplyTo(o)
	return cloneOrder(o), nil
}

func (r *InMemoryOrderRepo) SetReview(ctx context.Context, orderID, reviewType string, rv orderDomain.OrderReview) (*orderDomain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.Orders[orderID]
	if !ok {
		return nil, orderDomain.ErrOrderNotFound
	}
	o.SetReview(reviewType, rv)
	return cloneOrder(o), nil
}

func (r *InMemoryOrderRepo) list(match func(*orderDomain.Order) bool) []*orderDomain.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*orderDomain.Order
	for _, o := range r.Orders {
		if match(o) {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out
}

func cloneOrder(o *orderDomain.Order) *orderDomain.Order {
	c := *o
	c.DeliveredWork = append([]orderDomain.DeliveredWork(nil), o.DeliveredWork...)
	if o.Events != nil {
		c.Events = make(map[string]time.Time, len(o.Events))
		for k, v := range o.Events {
			c.Events[k] = v
		}
	}
	return &c
}

// InMemoryNotificationRepo simula NotificationRepository.
type InMemoryNotificationRepo struct {
	mu            sync.Mutex
	Notifications []*orderDomain.Notification
	Err           error
}

func (r *InMemoryNotificationRepo) Create(ctx context.Context, n *orderDomain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	c := *n
	r.Notifications = append(r.Notifications, &c)
	return nil
}

func (r *InMemoryNotificationRepo) ListByUserTo(ctx context.Context, userTo string) ([]*orderDomain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*orderDomain.Notification
	for _, n := range r.Notifications {
		if n.UserTo == userTo {
			c := *n
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *InMemoryNotificationRepo) MarkAsRead(ctx context.Context, id string) (*orderDomain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.Notifications {
		if n.ID == id {
			n.IsRead = true
			c := *n
			return &c, nil
		}
	}
	return nil, orderDomain.ErrNotificationNotFound
}

// RecordingAnalytics guarda las transiciones registradas.
type RecordingAnalytics struct {
	mu      sync.Mutex
	Entries []orderDomain.TransitionLog
	Err     error
}

func (a *RecordingAnalytics) LogTransition(ctx context.Context, entry orderDomain.TransitionLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return a.Err
	}
	a.Entries = append(a.Entries, entry)
	return nil
}

var (
	_ orderDomain.OrderRepository          = (*InMemoryOrderRepo)(nil)
	_ orderDomain.NotificationRepository   = (*InMemoryNotificationRepo)(nil)
	_ orderDomain.OrderAnalyticsRepository = (*RecordingAnalytics)(nil)
)
