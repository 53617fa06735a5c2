package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/davicafu/jobberlab/internal/user/application"
	"github.com/davicafu/jobberlab/internal/user/domain"
	"github.com/davicafu/jobberlab/pkg/utils"
)

type UserHandler struct {
	service *application.StatsService
}

func NewUserHandler(service *application.StatsService) *UserHandler {
	return &UserHandler{service: service}
}

// CreateSeller endpoint POST /sellers
func (h *UserHandler) CreateSeller(c *gin.Context) {
	var s domain.Seller
	if err := c.ShouldBindJSON(&s); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}
	created, err := h.service.CreateSeller(c.Request.Context(), &s)
	if err != nil {
		sendUserError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusCreated, created)
}

// GetSeller endpoint GET /sellers/:sellerId
func (h *UserHandler) GetSeller(c *gin.Context) {
	s, err := h.service.GetSeller(c.Request.Context(), c.Param("sellerId"))
	if err != nil {
		sendUserError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, s)
}

// CreateBuyer endpoint POST /buyers
func (h *UserHandler) CreateBuyer(c *gin.Context) {
	var b domain.Buyer
	if err := c.ShouldBindJSON(&b); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}
	created, err := h.service.CreateBuyer(c.Request.Context(), &b)
	if err != nil {
		sendUserError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusCreated, created)
}

// GetBuyer endpoint GET /buyers/:buyerId
func (h *UserHandler) GetBuyer(c *gin.Context) {
	b, err := h.service.GetBuyer(c.Request.Context(), c.Param("buyerId"))
	if err != nil {
		sendUserError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, b)
}

var userErrorRules = []utils.StatusRule{
	{Status: http.StatusNotFound, Errs: []error{domain.ErrSellerNotFound, domain.ErrBuyerNotFound}},
	{Status: http.StatusBadRequest, Errs: []error{domain.ErrInvalidUser}},
	{Status: http.StatusConflict, Errs: []error{domain.ErrUserAlreadyExists}},
}

func sendUserError(c *gin.Context, err error) {
	utils.SendDomainError(c, err, userErrorRules...)
}
