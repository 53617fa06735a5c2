package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	orderDomain "github.com/davicafu/jobberlab/internal/order/domain"
)

// NotificationService guarda las notificaciones que generan las transiciones de pedidos.
type NotificationService struct {
	repo orderDomain.NotificationRepository
	log  *zap.Logger
	now  func() time.Time
}

func NewNotificationService(repo orderDomain.NotificationRepository, log *zap.Logger) *NotificationService {
	return &NotificationService{repo: repo, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Send crea la notificación para userTo. El emisor es siempre el vendedor y el receptor el comprador,
// igual que en la ficha del pedido. Un fallo se registra y no interrumpe la transición.
func (s *NotificationService) Send(ctx context.Context, o *orderDomain.Order, userTo, message string) *orderDomain.Notification {
	n := &orderDomain.Notification{
		ID:               uuid.NewString(),
		UserTo:           userTo,
		SenderUsername:   o.SellerUsername,
		SenderPicture:    o.SellerImage,
		ReceiverUsername: o.BuyerUsername,
		ReceiverPicture:  o.BuyerImage,
		Message:          message,
		OrderID:          o.OrderID,
		CreatedAt:        s.now(),
	}

	if err := s.repo.Create(ctx, n); err != nil {
		s.log.Error("Failed to store order notification",
			zap.String("order_id", o.OrderID),
			zap.String("user_to", userTo),
			zap.Error(err),
		)
		return nil
	}
	return n
}

func (s *NotificationService) GetNotifications(ctx context.Context, userTo string) ([]*orderDomain.Notification, error) {
	return s.repo.ListByUserTo(ctx, userTo)
}

func (s *NotificationService) MarkNotificationAsRead(ctx context.Context, id string) (*orderDomain.Notification, error) {
	n, err := s.repo.MarkAsRead(ctx, id)
	if err != nil {
		if errors.Is(err, orderDomain.ErrNotificationNotFound) {
			s.log.Warn("Notification not found", zap.String("notification_id", id))
		} else {
			s.log.Error("Failed to mark notification as read", zap.String("notification_id", id), zap.Error(err))
		}
		return nil, err
	}
	return n, nil
}
