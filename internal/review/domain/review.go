package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	ratingDomain "github.com/davicafu/jobberlab/internal/rating/domain"
	sharedEvents "github.com/davicafu/jobberlab/internal/shared/events"
)

var (
	ErrInvalidReview       = errors.New("invalid review")
	ErrReviewAlreadyExists = errors.New("review already exists")
)

// Review es inmutable una vez creada. Su identidad es (gigId, reviewerId, orderId, reviewType).
type Review struct {
	ID               int64     `json:"id"`
	GigID            string    `json:"gigId"`
	ReviewerID       string    `json:"reviewerId"`
	ReviewerImage    string    `json:"reviewerImage"`
	ReviewerUsername string    `json:"reviewerUsername"`
	SellerID         string    `json:"sellerId"`
	OrderID          string    `json:"orderId"`
	Review           string    `json:"review"`
	Rating           int       `json:"rating"`
	Country          string    `json:"country"`
	ReviewType       string    `json:"reviewType"`
	CreatedAt        time.Time `json:"createdAt"`
}

func (r *Review) Validate() error {
	var missing []string
	for name, v := range map[string]string{
		"gigId":      r.GigID,
		"reviewerId": r.ReviewerID,
		"sellerId":   r.SellerID,
		"orderId":    r.OrderID,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidReview, strings.Join(missing, ", "))
	}
	if r.ReviewType != sharedEvents.BuyerReview && r.ReviewType != sharedEvents.SellerReview {
		return fmt.Errorf("%w: unknown reviewType %q", ErrInvalidReview, r.ReviewType)
	}
	if _, err := ratingDomain.ParseRating(r.Rating); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidReview, err)
	}
	return nil
}

// Message es el evento que se difunde por jobber-review.
func (r *Review) Message() sharedEvents.ReviewMessage {
	return sharedEvents.ReviewMessage{
		GigID:      r.GigID,
		ReviewerID: r.ReviewerID,
		SellerID:   r.SellerID,
		Review:     r.Review,
		Rating:     r.Rating,
		OrderID:    r.OrderID,
		CreatedAt:  r.CreatedAt,
		Type:       r.ReviewType,
	}
}

// columnFields traduce las columnas que el almacén guarda en minúsculas a las claves de la API.
var columnFields = map[string]string{
	"review":           "review",
	"rating":           "rating",
	"country":          "country",
	"gigid":            "gigId",
	"reviewerid":       "reviewerId",
	"createdat":        "createdAt",
	"orderid":          "orderId",
	"sellerid":         "sellerId",
	"reviewerimage":    "reviewerImage",
	"reviewerusername": "reviewerUsername",
	"reviewtype":       "reviewType",
}

// FieldName devuelve la clave camelCase de una columna. Una columna desconocida conserva su nombre.
func FieldName(column string) string {
	if f, ok := columnFields[column]; ok {
		return f
	}
	return column
}

// MapRow renombra las columnas de una fila según FieldName.
func MapRow(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[FieldName(k)] = v
	}
	return out
}

// ReviewFromRow construye una Review desde una fila leída con las columnas en minúsculas.
func ReviewFromRow(row map[string]any) (*Review, error) {
	data, err := json.Marshal(MapRow(row))
	if err != nil {
		return nil, err
	}
	var r Review
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode review row: %w", err)
	}
	return &r, nil
}
