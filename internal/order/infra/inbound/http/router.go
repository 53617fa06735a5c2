package http

import "github.com/gin-gonic/gin"

func RegisterOrderRoutes(r *gin.Engine, handler *OrderHandler) {
	orders := r.Group("/orders")
	{
		orders.GET("/notification/:userTo", handler.Notifications)
		orders.PUT("/notification/mark-as-read", handler.MarkNotificationAsRead)
		orders.GET("/seller/:sellerId", handler.SellerOrders)
		orders.GET("/buyer/:buyerId", handler.BuyerOrders)
		orders.GET("/:orderId", handler.GetOrder)

		orders.POST("", handler.CreateOrder)
		orders.PUT("/cancel/:orderId", handler.CancelOrder)
		orders.PUT("/extension/:orderId", handler.RequestExtension)
		orders.PUT("/gig/:type/:orderId", handler.UpdateDeliveryDate)
		orders.PUT("/deliver-order/:orderId", handler.DeliverOrder)
		orders.PUT("/approve-order/:orderId", handler.ApproveOrder)
	}
}
