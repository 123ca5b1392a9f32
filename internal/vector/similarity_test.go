package vector

import (
	"math"
	"testing"
)

func TestDistanceScore(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	tests := []struct {
		d    Distance
		want float64
	}{
		{DistanceDot, 0},
		{DistanceCosine, 0},
		{DistanceEuclid, math.Sqrt2},
		{DistanceManhattan, 2},
	}
	for _, tt := range tests {
		if got := tt.d.Score(a, b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s.Score = %v, want %v", tt.d, got, tt.want)
		}
	}
	if got := DistanceCosine.Score([]float32{2, 0}, []float32{3, 0}); math.Abs(got-1) > 1e-9 {
		t.Errorf("cosine of parallel vectors = %v, want 1", got)
	}
	if got := CosineSimilarity([]float32{0, 0}, a); got != 0 {
		t.Errorf("cosine with zero vector = %v, want 0", got)
	}
	if !DistanceDot.HigherIsBetter() || DistanceEuclid.HigherIsBetter() {
		t.Error("HigherIsBetter mismatch")
	}
}
