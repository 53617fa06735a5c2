package http

import "github.com/gin-gonic/gin"

func RegisterReviewRoutes(r *gin.Engine, handler *ReviewHandler) {
	reviews := r.Group("/reviews")
	{
		reviews.GET("/gig/:gigId", handler.ByGig)
		reviews.GET("/seller/:sellerId", handler.BySeller)
		reviews.POST("", handler.CreateReview)
	}
}
