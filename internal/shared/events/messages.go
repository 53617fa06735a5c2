package events

import (
	"encoding/json"
	"strings"
	"time"
)

// Estos son contratos de integración, NO entidades del dominio.
// No hay sobre común: cada consumidor interpreta su payload e ignora campos desconocidos.

// Tipos de review.
const (
	BuyerReview  = "buyer-review"
	SellerReview = "seller-review"
)

// ReviewMessage viaja por el fanout jobber-review.
type ReviewMessage struct {
	GigID      string    `json:"gigId"`
	ReviewerID string    `json:"reviewerId"`
	SellerID   string    `json:"sellerId"`
	Review     string    `json:"review"`
	Rating     int       `json:"rating"`
	OrderID    string    `json:"orderId"`
	CreatedAt  time.Time `json:"createdAt"`
	Type       string    `json:"type"`
}

// jsDateLayout es el formato de Date#toString que usan los productores antiguos,
// sin el sufijo "(Coordinated Universal Time)".
const jsDateLayout = "Mon Jan 02 2006 15:04:05 GMT-0700"

var now = time.Now

// UnmarshalJSON tolera createdAt en RFC3339, en formato Date#toString o en epoch ms.
// Si no se puede interpretar se usa la hora de recepción en vez de rechazar el mensaje.
func (m *ReviewMessage) UnmarshalJSON(data []byte) error {
	type plain ReviewMessage
	aux := struct {
		*plain
		CreatedAt json.RawMessage `json:"createdAt"`
	}{plain: (*plain)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	m.CreatedAt = parseLenientTime(aux.CreatedAt)
	return nil
}

func parseLenientTime(raw json.RawMessage) time.Time {
	var millis int64
	if err := json.Unmarshal(raw, &millis); err == nil && millis > 0 {
		return time.UnixMilli(millis).UTC()
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		text = strings.TrimSpace(text)
		if t, err := time.Parse(time.RFC3339Nano, text); err == nil {
			return t
		}
		if i := strings.Index(text, " ("); i > 0 {
			text = text[:i]
		}
		if t, err := time.Parse(jsDateLayout, text); err == nil {
			return t.UTC()
		}
	}
	return now().UTC()
}

// Tipos de mensajes de estadísticas de vendedor/comprador.
const (
	CreateOrderType    = "create-order"
	CancelOrderType    = "cancel-order"
	ApproveOrderType   = "approve-order"
	UpdateGigCountType = "update-gig-count"
	PurchasedGigsType  = "purchased-gigs"
)

// SellerUpdate viaja por jobber-seller-update / user-seller.
// OrderID actúa como clave de idempotencia cuando está presente.
type SellerUpdate struct {
	Type           string     `json:"type"`
	SellerID       string     `json:"sellerId,omitempty"`
	OrderID        string     `json:"orderId,omitempty"`
	OngoingJobs    int        `json:"ongoingJobs,omitempty"`
	CompletedJobs  int        `json:"completedJobs,omitempty"`
	TotalEarnings  float64    `json:"totalEarnings,omitempty"`
	RecentDelivery *time.Time `json:"recentDelivery,omitempty"`
	GigSellerID    string     `json:"gigSellerId,omitempty"`
	GigID          string     `json:"gigId,omitempty"`
	Count          int        `json:"count,omitempty"`
}

// BuyerUpdate viaja por jobber-buyer-update / user-buyer.
type BuyerUpdate struct {
	Type          string `json:"type"`
	BuyerID       string `json:"buyerId"`
	OrderID       string `json:"orderId,omitempty"`
	PurchasedGigs string `json:"purchasedGigs,omitempty"`
}

// Plantillas de email de pedidos.
const (
	OrderPlacedTemplate            = "orderPlaced"
	OrderDeliveredTemplate         = "orderDelivered"
	OrderExtensionTemplate         = "orderExtension"
	OrderExtensionApprovalTemplate = "orderExtensionApproval"
)

// OrderEmail viaja por jobber-order-notification / order-email.
type OrderEmail struct {
	Template       string `json:"template"`
	OrderID        string `json:"orderId,omitempty"`
	InvoiceID      string `json:"invoiceId,omitempty"`
	OrderDue       string `json:"orderDue,omitempty"`
	Amount         string `json:"amount,omitempty"`
	ServiceFee     string `json:"serviceFee,omitempty"`
	Total          string `json:"total,omitempty"`
	BuyerUsername  string `json:"buyerUsername,omitempty"`
	SellerUsername string `json:"sellerUsername,omitempty"`
	Title          string `json:"title,omitempty"`
	Description    string `json:"description,omitempty"`
	Requirements   string `json:"requirements,omitempty"`
	OriginalDate   string `json:"originalDate,omitempty"`
	NewDate        string `json:"newDate,omitempty"`
	Reason         string `json:"reason,omitempty"`
	Subject        string `json:"subject,omitempty"`
	Header         string `json:"header,omitempty"`
	Type           string `json:"type,omitempty"`
	Message        string `json:"message,omitempty"`
	OrderURL       string `json:"orderUrl"`
}

// GigReviewUpdate viaja por jobber-update-gig. GigReview es un ReviewMessage serializado como string.
type GigReviewUpdate struct {
	GigReview string `json:"gigReview"`
}

// Decode extrae el ReviewMessage embebido.
func (u GigReviewUpdate) Decode() (ReviewMessage, error) {
	var msg ReviewMessage
	err := json.Unmarshal([]byte(u.GigReview), &msg)
	return msg, err
}

// SeedSeller es la parte de un vendedor que necesita el seed de gigs.
type SeedSeller struct {
	ID             string `json:"_id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profilePicture"`
}

// SeedGigs viaja por jobber-seed-gig / receive-sellers. Count llega como número o como string.
type SeedGigs struct {
	Sellers []SeedSeller `json:"sellers"`
	Count   json.Number  `json:"count"`
}
