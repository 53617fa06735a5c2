package http

import "github.com/gin-gonic/gin"

func RegisterUserRoutes(r *gin.Engine, handler *UserHandler) {
	sellers := r.Group("/sellers")
	{
		sellers.GET("/:sellerId", handler.GetSeller)
		sellers.POST("", handler.CreateSeller)
	}

	buyers := r.Group("/buyers")
	{
		buyers.GET("/:buyerId", handler.GetBuyer)
		buyers.POST("", handler.CreateBuyer)
	}
}
