package domain

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRating(t *testing.T) {
	for v := 1; v <= 5; v++ {
		r, err := ParseRating(v)
		require.NoError(t, err)
		assert.Equal(t, Rating(v), r)
	}
	for _, v := range []int{0, -1, 6, 100} {
		_, err := ParseRating(v)
		assert.ErrorIs(t, err, ErrInvalidRating)
	}
}

func TestRating_BucketKey(t *testing.T) {
	assert.Equal(t, "one", Rating(1).BucketKey())
	assert.Equal(t, "five", Rating(5).BucketKey())
}

func TestAggregate_Apply(t *testing.T) {
	var a Aggregate

	a.Apply(5)

	assert.Equal(t, 1, a.RatingsCount)
	assert.Equal(t, 5, a.RatingSum)
	assert.Equal(t, Bucket{Value: 5, Count: 1}, a.Bucket(5))
	assert.Equal(t, Bucket{}, a.Bucket(1))
	assert.Equal(t, 5.0, a.Average())
}

// Para cualquier secuencia de ratings: suma y conteo cuadran con los buckets.
func TestAggregate_InvariantHoldsForRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 200; run++ {
		var a Aggregate
		n := rng.Intn(50)
		sum := 0
		for i := 0; i < n; i++ {
			r := Rating(rng.Intn(5) + 1)
			sum += int(r)
			a.Apply(r)
		}

		require.True(t, a.Consistent(), "run %d", run)
		assert.Equal(t, n, a.RatingsCount)
		assert.Equal(t, sum, a.RatingSum)
	}
}

func TestAggregate_SameRatingNTimes(t *testing.T) {
	for r := MinRating; r <= MaxRating; r++ {
		var a Aggregate
		for i := 0; i < 7; i++ {
			a.Apply(r)
		}
		assert.Equal(t, 7*int(r), a.RatingSum)
		assert.Equal(t, 7, a.RatingsCount)
		assert.Equal(t, 7, a.Bucket(r).Count)
	}
}

func TestReviewKey(t *testing.T) {
	assert.Equal(t, "g1|u1|o1|buyer-review", ReviewKey("g1", "u1", "o1", "buyer-review"))
	assert.NotEqual(t, ReviewKey("g1", "u1", "o1", "buyer-review"), ReviewKey("g1", "u1", "o1", "seller-review"))
}

func TestCategories_JSONUsesNamedBuckets(t *testing.T) {
	var a Aggregate
	a.Apply(4)

	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ratingsCount":1,"ratingSum":4,"ratingCategories":{
		"one":{"value":0,"count":0},"two":{"value":0,"count":0},"three":{"value":0,"count":0},
		"four":{"value":4,"count":1},"five":{"value":0,"count":0}}}`, string(data))

	var back Aggregate
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, a, back)
}
