package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/davicafu/jobberlab/internal/review/application"
	"github.com/davicafu/jobberlab/internal/review/domain"
	"github.com/davicafu/jobberlab/pkg/utils"
)

type ReviewHandler struct {
	service *application.ReviewService
}

func NewReviewHandler(service *application.ReviewService) *ReviewHandler {
	return &ReviewHandler{service: service}
}

// CreateReview endpoint POST /reviews
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	var r domain.Review
	if err := c.ShouldBindJSON(&r); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}
	created, err := h.service.AddReview(c.Request.Context(), &r)
	if err != nil {
		sendReviewError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusCreated, created)
}

// ByGig endpoint GET /reviews/gig/:gigId
func (h *ReviewHandler) ByGig(c *gin.Context) {
	reviews, err := h.service.GetReviewsByGigID(c.Request.Context(), c.Param("gigId"))
	if err != nil {
		sendReviewError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, reviews)
}

// BySeller endpoint GET /reviews/seller/:sellerId
func (h *ReviewHandler) BySeller(c *gin.Context) {
	reviews, err := h.service.GetReviewsBySellerID(c.Request.Context(), c.Param("sellerId"))
	if err != nil {
		sendReviewError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, reviews)
}

var reviewErrorRules = []utils.StatusRule{
	{Status: http.StatusBadRequest, Errs: []error{domain.ErrInvalidReview}},
	{Status: http.StatusConflict, Errs: []error{domain.ErrReviewAlreadyExists}},
}

func sendReviewError(c *gin.Context, err error) {
	utils.SendDomainError(c, err, reviewErrorRules...)
}
