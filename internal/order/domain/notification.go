package domain

import "time"

// Notification se crea como efecto lateral de una transición. Solo IsRead cambia después.
type Notification struct {
	ID               string    `json:"id"`
	UserTo           string    `json:"userTo"`
	SenderUsername   string    `json:"senderUsername"`
	SenderPicture    string    `json:"senderPicture"`
	ReceiverUsername string    `json:"receiverUsername"`
	ReceiverPicture  string    `json:"receiverPicture"`
	Message          string    `json:"message"`
	OrderID          string    `json:"orderId"`
	IsRead           bool      `json:"isRead"`
	CreatedAt        time.Time `json:"createdAt"`
}
