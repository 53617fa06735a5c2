package http

import "github.com/gin-gonic/gin"

func RegisterGigRoutes(r *gin.Engine, handler *GigHandler) {
	gigs := r.Group("/gigs")
	{
		gigs.GET("/search/:from/:size/:type", handler.Search)
		gigs.GET("/seller/:sellerId", handler.SellerGigs)
		gigs.GET("/seller/pause/:sellerId", handler.SellerPausedGigs)
		gigs.GET("/:gigId", handler.GetGig)

		gigs.POST("", handler.CreateGig)
		gigs.PUT("/:gigId", handler.UpdateGig)
		gigs.PUT("/active/:gigId", handler.UpdateActive)
		gigs.DELETE("/:gigId/:sellerId", handler.DeleteGig)
	}
}
