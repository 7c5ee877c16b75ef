package etl

import (
	"math/rand"
	"time"
)

// RatingSource produces synthetic quality ratings in [1, 10]. Real
// survey data does not exist for this dataset; every newly loaded
// provider gets exactly one stand-in rating. A fixed seed makes load
// runs reproducible.
type RatingSource struct {
	rng *rand.Rand
}

func NewRatingSource(seed int64) *RatingSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RatingSource{rng: rand.New(rand.NewSource(seed))}
}

func (r *RatingSource) Next() int {
	return r.rng.Intn(10) + 1
}
