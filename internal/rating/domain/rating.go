package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidRating        = errors.New("rating must be between 1 and 5")
	ErrReviewAlreadyApplied = errors.New("review already applied")
)

// Rating es una puntuación validada en 1..5.
type Rating int

const (
	MinRating Rating = 1
	MaxRating Rating = 5
)

// ParseRating valida el entero recibido en el mensaje.
func ParseRating(v int) (Rating, error) {
	r := Rating(v)
	if r < MinRating || r > MaxRating {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidRating, v)
	}
	return r, nil
}

// BucketKey es el nombre del bucket en el documento ("one".."five").
func (r Rating) BucketKey() string {
	return bucketKeys[r-1]
}

var bucketKeys = [5]string{"one", "two", "three", "four", "five"}

// BucketKeys devuelve los nombres de bucket en orden de rating.
func BucketKeys() [5]string { return bucketKeys }

// Bucket acumula la suma y el número de valoraciones de un rating.
type Bucket struct {
	Value int `json:"value"`
	Count int `json:"count"`
}

// Categories son los 5 buckets indexados por rating-1. En JSON se serializa como
// {"one": {...}, ..., "five": {...}}.
type Categories [5]Bucket

func (c Categories) MarshalJSON() ([]byte, error) {
	m := make(map[string]Bucket, len(c))
	for i, b := range c {
		m[bucketKeys[i]] = b
	}
	return json.Marshal(m)
}

func (c *Categories) UnmarshalJSON(data []byte) error {
	var m map[string]Bucket
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	for i, k := range bucketKeys {
		c[i] = m[k]
	}
	return nil
}

// Aggregate es el agregado de valoraciones embebido en un gig o un vendedor.
// Invariante: RatingSum == Σ Value y RatingsCount == Σ Count.
type Aggregate struct {
	RatingsCount int        `json:"ratingsCount"`
	RatingSum    int        `json:"ratingSum"`
	Categories   Categories `json:"ratingCategories"`
}

// Apply suma una valoración. Solo existe el camino aditivo.
func (a *Aggregate) Apply(r Rating) {
	a.RatingsCount++
	a.RatingSum += int(r)
	b := &a.Categories[r-1]
	b.Value += int(r)
	b.Count++
}

// Bucket devuelve el bucket de r.
func (a Aggregate) Bucket(r Rating) Bucket {
	return a.Categories[r-1]
}

// Consistent comprueba el invariante del agregado.
func (a Aggregate) Consistent() bool {
	sum, count := 0, 0
	for _, b := range a.Categories {
		sum += b.Value
		count += b.Count
	}
	return sum == a.RatingSum && count == a.RatingsCount
}

// Average devuelve la media o 0 sin valoraciones.
func (a Aggregate) Average() float64 {
	if a.RatingsCount == 0 {
		return 0
	}
	return float64(a.RatingSum) / float64(a.RatingsCount)
}

// ReviewKey identifica una review para la idempotencia de los agregados.
func ReviewKey(gigID, reviewerID, orderID, reviewType string) string {
	return strings.Join([]string{gigID, reviewerID, orderID, reviewType}, "|")
}
