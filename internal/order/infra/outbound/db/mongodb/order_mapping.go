package mongodb

import (
	"time"

	orderDomain "github.com/davicafu/jobberlab/internal/order/domain"
)

// --- Structs de BSON para el mapeo ---
// Se definen localmente para no "contaminar" el dominio con tags de BSON.

type mongoOffer struct {
	GigTitle        string  `bson:"gigTitle"`
	Price           float64 `bson:"price"`
	Description     string  `bson:"description"`
	DeliveryInDays  int     `bson:"deliveryInDays"`
	OldDeliveryDate string  `bson:"oldDeliveryDate"`
	NewDeliveryDate string  `bson:"newDeliveryDate"`
	Accepted        bool    `bson:"accepted"`
	Cancelled       bool    `bson:"cancelled"`
	Reason          string  `bson:"reason"`
}

type mongoExtension struct {
	OriginalDate string `bson:"originalDate"`
	NewDate      string `bson:"newDate"`
	Days         int    `bson:"days"`
	Reason       string `bson:"reason"`
}

type mongoDeliveredWork struct {
	Message  string `bson:"message"`
	File     string `bson:"file"`
	FileType string `bson:"fileType"`
	FileSize int    `bson:"fileSize"`
	FileName string `bson:"fileName"`
}

type mongoReview struct {
	Rating  int       `bson:"rating"`
	Review  string    `bson:"review"`
	Created time.Time `bson:"created"`
}

type mongoOrder struct {
	OrderID             string               `bson:"orderId"`
	InvoiceID           string               `bson:"invoiceId"`
	GigID               string               `bson:"gigId"`
	SellerID            string               `bson:"sellerId"`
	SellerUsername      string               `bson:"sellerUsername"`
	SellerImage         string               `bson:"sellerImage"`
	SellerEmail         string               `bson:"sellerEmail"`
	GigCoverImage       string               `bson:"gigCoverImage"`
	GigMainTitle        string               `bson:"gigMainTitle"`
	GigBasicTitle       string               `bson:"gigBasicTitle"`
	GigBasicDescription string               `bson:"gigBasicDescription"`
	BuyerID             string               `bson:"buyerId"`
	BuyerUsername       string               `bson:"buyerUsername"`
	BuyerEmail          string               `bson:"buyerEmail"`
	BuyerImage          string               `bson:"buyerImage"`
	Status              string               `bson:"status"`
	Requirements        string               `bson:"requirements"`
	Quantity            int                  `bson:"quantity"`
	Price               float64              `bson:"price"`
	ServiceFee          float64              `bson:"serviceFee"`
	Cancelled           bool                 `bson:"cancelled"`
	Approved            bool                 `bson:"approved"`
	Delivered           bool                 `bson:"delivered"`
	ApprovedAt          *time.Time           `bson:"approvedAt,omitempty"`
	PaymentIntent       string               `bson:"paymentIntent"`
	Offer               mongoOffer           `bson:"offer"`
	RequestExtension    mongoExtension       `bson:"requestExtension"`
	DeliveredWork       []mongoDeliveredWork `bson:"deliveredWork"`
	DateOrdered         time.Time            `bson:"dateOrdered"`
	Events              map[string]time.Time `bson:"events"`
	BuyerReview         *mongoReview         `bson:"buyerReview,omitempty"`
	SellerReview        *mongoReview         `bson:"sellerReview,omitempty"`
}

func toMongoWork(w orderDomain.DeliveredWork) mongoDeliveredWork {
	return mongoDeliveredWork(w)
}

func toMongoExtension(e orderDomain.ExtensionRequest) mongoExtension {
	return mongoExtension(e)
}

func toMongoReview(r *orderDomain.OrderReview) *mongoReview {
	if r == nil {
		return nil
	}
	mr := mongoReview(*r)
	return &mr
}

func fromMongoReview(r *mongoReview) *orderDomain.OrderReview {
	if r == nil {
		return nil
	}
	dr := orderDomain.OrderReview(*r)
	return &dr
}

func toMongoOrder(o *orderDomain.Order) mongoOrder {
	work := make([]mongoDeliveredWork, 0, len(o.DeliveredWork))
	for _, w := range o.DeliveredWork {
		work = append(work, toMongoWork(w))
	}
	events := o.Events
	if events == nil {
		events = map[string]time.Time{}
	}
	return mongoOrder{
		OrderID:             o.OrderID,
		InvoiceID:           o.InvoiceID,
		GigID:               o.GigID,
		SellerID:            o.SellerID,
		SellerUsername:      o.SellerUsername,
		SellerImage:         o.SellerImage,
		SellerEmail:         o.SellerEmail,
		GigCoverImage:       o.GigCoverImage,
		GigMainTitle:        o.GigMainTitle,
		GigBasicTitle:       o.GigBasicTitle,
		GigBasicDescription: o.GigBasicDescription,
		BuyerID:             o.BuyerID,
		BuyerUsername:       o.BuyerUsername,
		BuyerEmail:          o.BuyerEmail,
		BuyerImage:          o.BuyerImage,
		Status:              string(o.Status),
		Requirements:        o.Requirements,
		Quantity:            o.Quantity,
		Price:               o.Price,
		ServiceFee:          o.ServiceFee,
		Cancelled:           o.Cancelled,
		Approved:            o.Approved,
		Delivered:           o.Delivered,
		ApprovedAt:          o.ApprovedAt,
		PaymentIntent:       o.PaymentIntent,
		Offer:               mongoOffer(o.Offer),
		RequestExtension:    toMongoExtension(o.RequestExtension),
		DeliveredWork:       work,
		DateOrdered:         o.DateOrdered,
		Events:              events,
		BuyerReview:         toMongoReview(o.BuyerReview),
		SellerReview:        toMongoReview(o.SellerReview),
	}
}

func fromMongoOrder(m mongoOrder) *orderDomain.Order {
	work := make([]orderDomain.DeliveredWork, 0, len(m.DeliveredWork))
	for _, w := range m.DeliveredWork {
		work = append(work, orderDomain.DeliveredWork(w))
	}
	return &orderDomain.Order{
		OrderID:             m.OrderID,
		InvoiceID:           m.InvoiceID,
		GigID:               m.GigID,
		SellerID:            m.SellerID,
		SellerUsername:      m.SellerUsername,
		SellerImage:         m.SellerImage,
		SellerEmail:         m.SellerEmail,
		GigCoverImage:       m.GigCoverImage,
		GigMainTitle:        m.GigMainTitle,
		GigBasicTitle:       m.GigBasicTitle,
		GigBasicDescription: m.GigBasicDescription,
		BuyerID:             m.BuyerID,
		BuyerUsername:       m.BuyerUsername,
		BuyerEmail:          m.BuyerEmail,
		BuyerImage:          m.BuyerImage,
		Status:              orderDomain.OrderStatus(m.Status),
		Requirements:        m.Requirements,
		Quantity:            m.Quantity,
		Price:               m.Price,
		ServiceFee:          m.ServiceFee,
		Cancelled:           m.Cancelled,
		Approved:            m.Approved,
		Delivered:           m.Delivered,
		ApprovedAt:          m.ApprovedAt,
		PaymentIntent:       m.PaymentIntent,
		Offer:               orderDomain.Offer(m.Offer),
		RequestExtension:    orderDomain.ExtensionRequest(m.RequestExtension),
		DeliveredWork:       work,
		DateOrdered:         m.DateOrdered,
		Events:              m.Events,
		BuyerReview:         fromMongoReview(m.BuyerReview),
		SellerReview:        fromMongoReview(m.SellerReview),
	}
}
