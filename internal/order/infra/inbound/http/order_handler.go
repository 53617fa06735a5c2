package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/davicafu/jobberlab/internal/order/application"
	"github.com/davicafu/jobberlab/internal/order/domain"
	"github.com/davicafu/jobberlab/pkg/utils"
)

// OrderHandler expone el ciclo de vida del pedido y sus notificaciones.
type OrderHandler struct {
	orders        *application.OrderService
	notifications *application.NotificationService
}

func NewOrderHandler(orders *application.OrderService, notifications *application.NotificationService) *OrderHandler {
	return &OrderHandler{orders: orders, notifications: notifications}
}

// ---------------- Consultas ----------------

// GetOrder endpoint GET /orders/:orderId
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orders.GetOrderByOrderID(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		sendOrderError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, order)
}

// SellerOrders endpoint GET /orders/seller/:sellerId
func (h *OrderHandler) SellerOrders(c *gin.Context) {
	orders, err := h.orders.GetOrdersBySellerID(c.Request.Context(), c.Param("sellerId"))
	if err != nil {
		sendOrderError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, orders)
}

// BuyerOrders endpoint GET /orders/buyer/:buyerId
func (h *OrderHandler) BuyerOrders(c *gin.Context) {
	orders, err := h.orders.GetOrdersByBuyerID(c.Request.Context(), c.Param("buyerId"))
	if err != nil {
		sendOrderError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, orders)
}

// Notifications endpoint GET /orders/notification/:userTo
func (h *OrderHandler) Notifications(c *gin.Context) {
	list, err := h.notifications.GetNotifications(c.Request.Context(), c.Param("userTo"))
	if err != nil {
		sendOrderError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, list)
}

// MarkNotificationAsRead endpoint PUT /orders/notification/mark-as-read
func (h *OrderHandler) MarkNotificationAsRead(c *gin.Context) {
	var req struct {
		NotificationID string `json:"notificationId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}
	n, err := h.notifications.MarkNotificationAsRead(c.Request.Context(), req.NotificationID)
	if err != nil {
		sendOrderError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, n)
}

// ---------------- Transiciones ----------------

// CreateOrder endpoint POST /orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var order domain.Order
	if err := c.ShouldBindJSON(&order); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}
	created, err := h.orders.CreateOrder(c.Request.Context(), &order)
	if err != nil {
		sendOrderError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusCreated, created)
}

// CancelOrder endpoint PUT /orders/cancel/:orderId
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	var req struct {
		SellerID      string `json:"sellerId"`
		BuyerID       string `json:"buyerId"`
		PurchasedGigs string `json:"purchasedGigs"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}
	order, err := h.orders.CancelOrder(c.Request.Context(), c.Param("orderId"), application.CancelOrderInput(req))
	if err != nil {
		sendOrderError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, order)
}

// DeliverOrder endpoint PUT /orders/deliver-order/:orderId
func (h *OrderHandler) DeliverOrder(c *gin.Context) {
	var work domain.DeliveredWork
	if err := c.ShouldBindJSON(&work); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}
	order, err := h.orders.SellerDeliverOrder(c.Request.Context(), c.Param("orderId"), work)
	if err != nil {
		sendOrderError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, order)
}

// RequestExtension endpoint PUT /orders/extension/:orderId
func (h *OrderHandler) RequestExtension(c *gin.Context) {
	var req domain.ExtensionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}
	order, err := h.orders.RequestDeliveryDateExtension(c.Request.Context(), c.Param("orderId"), req)
	if err != nil {
		sendOrderError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, order)
}

// UpdateDeliveryDate endpoint PUT /orders/gig/:type/:orderId (type = approve | reject)
func (h *OrderHandler) UpdateDeliveryDate(c *gin.Context) {
	orderID := c.Param("orderId")
	switch c.Param("type") {
	case "approve":
		var req struct {
			NewDate            string    `json:"newDate" binding:"required"`
			Days               int       `json:"days"`
			Reason             string    `json:"reason"`
			DeliveryDateUpdate time.Time `json:"deliveryDateUpdate"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.SendBadRequest(c, err.Error())
			return
		}
		order, err := h.orders.ApproveDeliveryDate(c.Request.Context(), orderID, application.DeliveryDateInput(req))
		if err != nil {
			sendOrderError(c, err)
			return
		}
		utils.SendSuccess(c, http.StatusOK, order)
	case "reject":
		order, err := h.orders.RejectDeliveryDate(c.Request.Context(), orderID)
		if err != nil {
			sendOrderError(c, err)
			return
		}
		utils.SendSuccess(c, http.StatusOK, order)
	default:
		utils.SendBadRequest(c, "type must be approve or reject")
	}
}

// ApproveOrder endpoint PUT /orders/approve-order/:orderId
func (h *OrderHandler) ApproveOrder(c *gin.Context) {
	var req struct {
		SellerID      string  `json:"sellerId"`
		BuyerID       string  `json:"buyerId"`
		OngoingJobs   int     `json:"ongoingJobs"`
		CompletedJobs int     `json:"completedJobs"`
		TotalEarnings float64 `json:"totalEarnings"`
		PurchasedGigs string  `json:"purchasedGigs"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}
	order, err := h.orders.ApproveOrder(c.Request.Context(), c.Param("orderId"), application.ApproveOrderInput(req))
	if err != nil {
		sendOrderError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, order)
}

var orderErrorRules = []utils.StatusRule{
	{Status: http.StatusNotFound, Errs: []error{domain.ErrOrderNotFound, domain.ErrNotificationNotFound}},
	{Status: http.StatusConflict, Errs: []error{domain.ErrInvalidTransition, domain.ErrOrderAlreadyExists}},
	{Status: http.StatusBadRequest, Errs: []error{domain.ErrInvalidOrder}},
}

func sendOrderError(c *gin.Context, err error) {
	utils.SendDomainError(c, err, orderErrorRules...)
}
