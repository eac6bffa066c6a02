package rag

import (
	"math"
	"sort"

	"github.com/lumisproject/digital-twin-project-oracle/internal/store"
)

// DefaultTopK is the number of units retrieved when no k is given.
const DefaultTopK = 3

// Match is a unit scored against a query.
type Match struct {
	Unit  store.Unit
	Score float64
}

// TopK scores every unit by cosine similarity to query and returns the k
// best, highest first. Equal scores keep the order of units. Units without
// an embedding, or with one of a different dimension, are not scored.
func TopK(query []float32, units []store.Unit, k int) []Match {
	if k <= 0 {
		k = DefaultTopK
	}
	qnorm := norm(query)

	matches := make([]Match, 0, len(units))
	for _, u := range units {
		if len(u.Embedding) == 0 || len(u.Embedding) != len(query) {
			continue
		}
		matches = append(matches, Match{Unit: u, Score: cosine(query, qnorm, u.Embedding)})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// cosine returns the cosine similarity of a and b, or 0 if either is a zero
// vector.
func cosine(a []float32, anorm float64, b []float32) float64 {
	bnorm := norm(b)
	if anorm == 0 || bnorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (anorm * bnorm)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
