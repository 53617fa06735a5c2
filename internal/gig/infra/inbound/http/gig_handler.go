package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/davicafu/jobberlab/internal/gig/application"
	"github.com/davicafu/jobberlab/internal/gig/domain"
	"github.com/davicafu/jobberlab/pkg/utils"
)

type GigHandler struct {
	service *application.GigService
}

func NewGigHandler(service *application.GigService) *GigHandler {
	return &GigHandler{service: service}
}

// Search endpoint GET /gigs/search/:from/:size/:type?query=&minPrice=&maxPrice=&delivery_time=
// from es el sortId del último resultado visto (0 para la primera página).
func (h *GigHandler) Search(c *gin.Context) {
	q, err := domain.NewGigQuery(c.Query("query"), c.Param("from"), c.Param("size"), c.Param("type"))
	if err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}
	if q.MinPrice, err = optionalFloat(c.Query("minPrice")); err != nil {
		utils.SendBadRequest(c, "invalid minPrice")
		return
	}
	if q.MaxPrice, err = optionalFloat(c.Query("maxPrice")); err != nil {
		utils.SendBadRequest(c, "invalid maxPrice")
		return
	}
	q.ExpectedDelivery = c.Query("delivery_time")

	res, err := h.service.SearchGigs(c.Request.Context(), q)
	if err != nil {
		sendGigError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, res)
}

// GetGig endpoint GET /gigs/:gigId
func (h *GigHandler) GetGig(c *gin.Context) {
	g, err := h.service.GetGig(c.Request.Context(), c.Param("gigId"))
	if err != nil {
		sendGigError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, g)
}

// SellerGigs endpoint GET /gigs/seller/:sellerId
func (h *GigHandler) SellerGigs(c *gin.Context) {
	gigs, err := h.service.GetSellerGigs(c.Request.Context(), c.Param("sellerId"))
	if err != nil {
		sendGigError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, gigs)
}

// SellerPausedGigs endpoint GET /gigs/seller/pause/:sellerId
func (h *GigHandler) SellerPausedGigs(c *gin.Context) {
	gigs, err := h.service.GetSellerPausedGigs(c.Request.Context(), c.Param("sellerId"))
	if err != nil {
		sendGigError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, gigs)
}

// CreateGig endpoint POST /gigs
func (h *GigHandler) CreateGig(c *gin.Context) {
	var g domain.Gig
	if err := c.ShouldBindJSON(&g); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}
	created, err := h.service.CreateGig(c.Request.Context(), &g)
	if err != nil {
		sendGigError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusCreated, created)
}

// UpdateGig endpoint PUT /gigs/:gigId
func (h *GigHandler) UpdateGig(c *gin.Context) {
	var u domain.GigUpdate
	if err := c.ShouldBindJSON(&u); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}
	g, err := h.service.UpdateGig(c.Request.Context(), c.Param("gigId"), u)
	if err != nil {
		sendGigError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, g)
}

// UpdateActive endpoint PUT /gigs/active/:gigId
func (h *GigHandler) UpdateActive(c *gin.Context) {
	var req struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}
	g, err := h.service.UpdateActive(c.Request.Context(), c.Param("gigId"), *req.Active)
	if err != nil {
		sendGigError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, g)
}

// DeleteGig endpoint DELETE /gigs/:gigId/:sellerId
func (h *GigHandler) DeleteGig(c *gin.Context) {
	if err := h.service.DeleteGig(c.Request.Context(), c.Param("gigId"), c.Param("sellerId")); err != nil {
		sendGigError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, gin.H{"message": "Gig deleted successfully."})
}

func optionalFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

var gigErrorRules = []utils.StatusRule{
	{Status: http.StatusNotFound, Errs: []error{domain.ErrGigNotFound}},
	{Status: http.StatusBadRequest, Errs: []error{domain.ErrInvalidGig, domain.ErrInvalidQuery}},
}

func sendGigError(c *gin.Context, err error) {
	utils.SendDomainError(c, err, gigErrorRules...)
}
