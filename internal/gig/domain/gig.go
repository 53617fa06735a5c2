package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	ratingDomain "github.com/davicafu/jobberlab/internal/rating/domain"
)

var (
	ErrGigNotFound = errors.New("gig not found")
	ErrInvalidGig  = errors.New("invalid gig")
)

// Límites de longitud de los textos del gig.
const (
	MaxTitleLength            = 80
	MaxBasicTitleLength       = 40
	MaxBasicDescriptionLength = 100
)

// Gig es el documento maestro del servicio de gigs. El índice de búsqueda es una proyección suya.
type Gig struct {
	ID               string    `json:"id"`
	SellerID         string    `json:"sellerId"`
	Username         string    `json:"username"`
	ProfilePicture   string    `json:"profilePicture"`
	Email            string    `json:"email"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Active           bool      `json:"active"`
	Categories       string    `json:"categories"`
	SubCategories    []string  `json:"subCategories"`
	Tags             []string  `json:"tags"`
	Price            float64   `json:"price"`
	CoverImage       string    `json:"coverImage"`
	ExpectedDelivery string    `json:"expectedDelivery"`
	BasicTitle       string    `json:"basicTitle"`
	BasicDescription string    `json:"basicDescription"`
	SortID           int64     `json:"sortId"`
	CreatedAt        time.Time `json:"createdAt"`

	ratingDomain.Aggregate
}

func (g *Gig) Validate() error {
	var missing []string
	if g.SellerID == "" {
		missing = append(missing, "sellerId")
	}
	if strings.TrimSpace(g.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(g.Categories) == "" {
		missing = append(missing, "categories")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidGig, strings.Join(missing, ", "))
	}
	if g.Price < 0 {
		return fmt.Errorf("%w: negative price", ErrInvalidGig)
	}
	if len(g.Title) > MaxTitleLength || len(g.BasicTitle) > MaxBasicTitleLength || len(g.BasicDescription) > MaxBasicDescriptionLength {
		return fmt.Errorf("%w: text too long", ErrInvalidGig)
	}
	return nil
}

// GigUpdate son los campos editables por el vendedor.
type GigUpdate struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Categories       string   `json:"categories"`
	SubCategories    []string `json:"subCategories"`
	Tags             []string `json:"tags"`
	Price            float64  `json:"price"`
	CoverImage       string   `json:"coverImage"`
	ExpectedDelivery string   `json:"expectedDelivery"`
	BasicTitle       string   `json:"basicTitle"`
	BasicDescription string   `json:"basicDescription"`
}

// ApplyTo copia los campos editables sobre g.
func (u GigUpdate) ApplyTo(g *Gig) {
	g.Title = u.Title
	g.Description = u.Description
	g.Categories = u.Categories
	g.SubCategories = u.SubCategories
	g.Tags = u.Tags
	g.Price = u.Price
	g.CoverImage = u.CoverImage
	g.ExpectedDelivery = u.ExpectedDelivery
	g.BasicTitle = u.BasicTitle
	g.BasicDescription = u.BasicDescription
}

// Fields devuelve el merge parcial para el índice, con los nombres del documento.
func (u GigUpdate) Fields() map[string]any {
	return map[string]any{
		"title":            u.Title,
		"description":      u.Description,
		"categories":       u.Categories,
		"subCategories":    u.SubCategories,
		"tags":             u.Tags,
		"price":            u.Price,
		"coverImage":       u.CoverImage,
		"expectedDelivery": u.ExpectedDelivery,
		"basicTitle":       u.BasicTitle,
		"basicDescription": u.BasicDescription,
	}
}

// RatingFields es el merge parcial que se envía al índice tras aplicar una review.
func RatingFields(a ratingDomain.Aggregate) map[string]any {
	return map[string]any{
		"ratingsCount":     a.RatingsCount,
		"ratingSum":        a.RatingSum,
		"ratingCategories": a.Categories,
	}
}

// ActiveFields es el merge parcial de UpdateActive.
func ActiveFields(active bool) map[string]any {
	return map[string]any{"active": active}
}
