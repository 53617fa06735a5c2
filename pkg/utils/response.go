package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse es el cuerpo de error común de la API.
type ErrorResponse struct {
	Message string `json:"message"`
}

// StatusRule asocia un código HTTP a uno o varios errores de dominio.
type StatusRule struct {
	Status int
	Errs   []error
}

// SendSuccess envuelve el payload en {"data": ...}.
func SendSuccess(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{"data": data})
}

// SendError responde {"error": {"message": ...}} y corta la cadena de handlers.
func SendError(c *gin.Context, statusCode int, message string) {
	c.AbortWithStatusJSON(statusCode, gin.H{"error": ErrorResponse{Message: message}})
}

func SendBadRequest(c *gin.Context, message string) {
	SendError(c, http.StatusBadRequest, message)
}

// StatusFor devuelve el código de la primera regla cuyo error casa con err (errors.Is), o 500.
func StatusFor(err error, rules ...StatusRule) int {
	for _, r := range rules {
		for _, target := range r.Errs {
			if errors.Is(err, target) {
				return r.Status
			}
		}
	}
	return http.StatusInternalServerError
}

// SendDomainError traduce un error de servicio con las reglas del handler.
func SendDomainError(c *gin.Context, err error, rules ...StatusRule) {
	SendError(c, StatusFor(err, rules...), err.Error())
}
