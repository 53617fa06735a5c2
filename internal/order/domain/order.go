package domain

import (
	"time"
)

type OrderStatus string

const (
	StatusPlaced    OrderStatus = "in progress"
	StatusDelivered OrderStatus = "Delivered"
	StatusCompleted OrderStatus = "Completed"
	StatusCancelled OrderStatus = "Cancelled"
)

// IsTerminal: Completed y Cancelled no admiten más transiciones.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Claves del mapa events. Se escriben una sola vez salvo las de review.
const (
	EventPlaceOrder         = "placeOrder"
	EventRequirements       = "requirements"
	EventOrderStarted       = "orderStarted"
	EventDeliveryDateUpdate = "deliveryDateUpdate"
	EventOrderDelivered     = "orderDelivered"
	EventBuyerReview        = "buyerReview"
	EventSellerReview       = "sellerReview"
)

type Offer struct {
	GigTitle        string  `json:"gigTitle"`
	Price           float64 `json:"price"`
	Description     string  `json:"description"`
	DeliveryInDays  int     `json:"deliveryInDays"`
	OldDeliveryDate string  `json:"oldDeliveryDate"`
	NewDeliveryDate string  `json:"newDeliveryDate"`
	Accepted        bool    `json:"accepted"`
	Cancelled       bool    `json:"cancelled"`
	Reason          string  `json:"reason,omitempty"`
}

// ExtensionRequest es la petición de ampliación de plazo pendiente (como mucho una).
type ExtensionRequest struct {
	OriginalDate string `json:"originalDate"`
	NewDate      string `json:"newDate"`
	Days         int    `json:"days"`
	Reason       string `json:"reason"`
}

func (e ExtensionRequest) IsEmpty() bool {
	return e == ExtensionRequest{}
}

type DeliveredWork struct {
	Message  string `json:"message"`
	File     string `json:"file"`
	FileType string `json:"fileType"`
	FileSize int    `json:"fileSize"`
	FileName string `json:"fileName"`
}

// OrderReview es la review embebida en el pedido, sobrescrita entera en cada entrega.
type OrderReview struct {
	Rating  int       `json:"rating"`
	Review  string    `json:"review"`
	Created time.Time `json:"created"`
}

type Order struct {
	OrderID             string               `json:"orderId"`
	InvoiceID           string               `json:"invoiceId"`
	GigID               string               `json:"gigId"`
	SellerID            string               `json:"sellerId"`
	SellerUsername      string               `json:"sellerUsername"`
	SellerImage         string               `json:"sellerImage"`
	SellerEmail         string               `json:"sellerEmail"`
	GigCoverImage       string               `json:"gigCoverImage"`
	GigMainTitle        string               `json:"gigMainTitle"`
	GigBasicTitle       string               `json:"gigBasicTitle"`
	GigBasicDescription string               `json:"gigBasicDescription"`
	BuyerID             string               `json:"buyerId"`
	BuyerUsername       string               `json:"buyerUsername"`
	BuyerEmail          string               `json:"buyerEmail"`
	BuyerImage          string               `json:"buyerImage"`
	Status              OrderStatus          `json:"status"`
	Requirements        string               `json:"requirements"`
	Quantity            int                  `json:"quantity"`
	Price               float64              `json:"price"`
	ServiceFee          float64              `json:"serviceFee"`
	Cancelled           bool                 `json:"cancelled"`
	Approved            bool                 `json:"approved"`
	Delivered           bool                 `json:"delivered"`
	ApprovedAt          *time.Time           `json:"approvedAt,omitempty"`
	PaymentIntent       string               `json:"paymentIntent"`
	Offer               Offer                `json:"offer"`
	RequestExtension    ExtensionRequest     `json:"requestExtension"`
	DeliveredWork       []DeliveredWork      `json:"deliveredWork"`
	DateOrdered         time.Time            `json:"dateOrdered"`
	Events              map[string]time.Time `json:"events"`
	BuyerReview         *OrderReview         `json:"buyerReview,omitempty"`
	SellerReview        *OrderReview         `json:"sellerReview,omitempty"`
}

// OfferDateUpdate son los campos de la oferta que cambia una ampliación aprobada.
type OfferDateUpdate struct {
	DeliveryInDays  int
	NewDeliveryDate string
	Reason          string
}

// Transition describe una transición como actualización condicional de un único documento.
// Los repositorios la aplican de forma atómica y solo si el pedido no está en estado terminal.
type Transition struct {
	Name          string // para logs y analítica: "cancel", "deliver", ...
	Status        OrderStatus
	Cancelled     bool
	Delivered     bool
	Approved      bool
	ApprovedAt    *time.Time
	DeliveredWork *DeliveredWork
	Extension     *ExtensionRequest // nil = sin cambios; &ExtensionRequest{} = limpiar
	OfferUpdate   *OfferDateUpdate
	EventKey      string // se sella solo si la clave no existe
	EventAt       time.Time
}

// ApplyTo aplica la transición sobre o sin comprobar el estado.
func (t Transition) ApplyTo(o *Order) {
	if t.Status != "" {
		o.Status = t.Status
	}
	if t.Cancelled {
		o.Cancelled = true
	}
	if t.Delivered {
		o.Delivered = true
	}
	if t.Approved {
		o.Approved = true
	}
	if t.ApprovedAt != nil {
		at := *t.ApprovedAt
		o.ApprovedAt = &at
	}
	if t.DeliveredWork != nil {
		o.DeliveredWork = append(o.DeliveredWork, *t.DeliveredWork)
	}
	if t.Extension != nil {
		o.RequestExtension = *t.Extension
	}
	if t.OfferUpdate != nil {
		o.Offer.DeliveryInDays = t.OfferUpdate.DeliveryInDays
		o.Offer.NewDeliveryDate = t.OfferUpdate.NewDeliveryDate
		o.Offer.Reason = t.OfferUpdate.Reason
	}
	if t.EventKey != "" {
		o.StampEvent(t.EventKey, t.EventAt)
	}
}

// StampEvent sella events[key] si aún no existe.
func (o *Order) StampEvent(key string, at time.Time) {
	if o.Events == nil {
		o.Events = make(map[string]time.Time)
	}
	if _, ok := o.Events[key]; !ok {
		o.Events[key] = at
	}
}

// SetReview sobrescribe la review del tipo dado y su sello en events.
func (o *Order) SetReview(reviewType string, r OrderReview) {
	if o.Events == nil {
		o.Events = make(map[string]time.Time)
	}
	rv := r
	switch reviewType {
	case ReviewTypeBuyer:
		o.BuyerReview = &rv
		o.Events[EventBuyerReview] = r.Created
	case ReviewTypeSeller:
		o.SellerReview = &rv
		o.Events[EventSellerReview] = r.Created
	}
}
