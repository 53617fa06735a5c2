package domain

import (
	"errors"
	"fmt"
	"strconv"
)

var ErrInvalidQuery = errors.New("invalid search query")

// Direction selecciona el orden de sortId y el sentido del cursor.
type Direction string

const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
)

func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Forward, Backward:
		return Direction(s), nil
	default:
		return "", fmt.Errorf("%w: type must be forward or backward", ErrInvalidQuery)
	}
}

// GigQuery es la consulta de listado. After es el cursor search_after sobre sortId (0 = sin cursor).
type GigQuery struct {
	Query            string
	MinPrice         *float64
	MaxPrice         *float64
	ExpectedDelivery string
	After            int64
	Size             int
	Direction        Direction
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// NewGigQuery valida los parámetros de ruta /search/:from/:size/:type.
func NewGigQuery(query, from, size, direction string) (GigQuery, error) {
	after, err := strconv.ParseInt(from, 10, 64)
	if err != nil || after < 0 {
		return GigQuery{}, fmt.Errorf("%w: from must be a non-negative sortId", ErrInvalidQuery)
	}
	n, err := strconv.Atoi(size)
	if err != nil || n <= 0 {
		return GigQuery{}, fmt.Errorf("%w: size must be positive", ErrInvalidQuery)
	}
	if n > MaxPageSize {
		n = MaxPageSize
	}
	dir, err := ParseDirection(direction)
	if err != nil {
		return GigQuery{}, err
	}
	return GigQuery{Query: query, After: after, Size: n, Direction: dir}, nil
}

// SearchResult es una página de resultados.
type SearchResult struct {
	Total int64 `json:"total"`
	Hits  []Gig `json:"hits"`
}

// SearchFields son los campos de texto sobre los que se evalúa Query.
var SearchFields = []string{
	"username", "title", "description", "basicDescription", "basicTitle", "categories", "subCategories", "tags",
}
