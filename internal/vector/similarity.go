package vector

import (
	"math"

	"github.com/hyperjump/folio/pkg/utils"
)

// InnerProduct returns the inner product of two vectors (for normalized vectors equals cosine similarity).
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either vector is zero.
func CosineSimilarity(a, b []float32) float64 {
	na, nb := utils.L2Norm(a), utils.L2Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return InnerProduct(a, b) / (na * nb)
}

// EuclideanDistance returns the L2 distance between a and b.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// ManhattanDistance returns the L1 distance between a and b.
func ManhattanDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		sum += math.Abs(float64(a[i]) - float64(b[i]))
	}
	return sum
}

// Score compares a and b under d.
func (d Distance) Score(a, b []float32) float64 {
	switch d {
	case DistanceCosine:
		return CosineSimilarity(a, b)
	case DistanceEuclid:
		return EuclideanDistance(a, b)
	case DistanceManhattan:
		return ManhattanDistance(a, b)
	default:
		return InnerProduct(a, b)
	}
}
