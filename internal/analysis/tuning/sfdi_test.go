package tuning

import (
	"math"
	"testing"

	"neurotune/domain/core"
)

func TestDiscriminationIndexKnownValue(t *testing.T) {
	// Range 6; trial values have mean 2 and sum of squares 4, so with bias 5
	// the SE is sqrt(4 / (9-5)) = 1 and the index is 6/(6+2) = 0.75.
	tuning := []float64{1, 4, 7, 2}
	trials := []float64{1, 3, 1, 3, 2, 2, 2, 2, 2}

	got, err := DiscriminationIndex(tuning, trials, 5)
	if err != nil {
		t.Fatalf("DiscriminationIndex: %v", err)
	}
	if math.Abs(got-0.75) > 1e-12 {
		t.Errorf("index = %v, want 0.75", got)
	}
}

func TestDiscriminationIndexNoTrialNoise(t *testing.T) {
	// Identical trial values give SE 0, so any nonzero range yields exactly 1.
	got, err := DiscriminationIndex([]float64{2, 8, 5}, []float64{4, 4, 4, 4, 4, 4}, 5)
	if err != nil {
		t.Fatalf("DiscriminationIndex: %v", err)
	}
	if got != 1 {
		t.Errorf("index = %v, want 1", got)
	}
}

func TestDiscriminationIndexInsufficientTrials(t *testing.T) {
	// Five trials against a bias term of five leaves no degrees of freedom.
	_, err := DiscriminationIndex([]float64{1, 2}, []float64{1, 2, 3, 4, 5}, 5)
	if !core.IsUndefinedIndexError(err) {
		t.Fatalf("expected insufficient trials error, got %v", err)
	}
}

func TestDiscriminationIndexDegenerate(t *testing.T) {
	// Flat tuning curve and zero trial variance: 0/0.
	_, err := DiscriminationIndex([]float64{3, 3, 3}, []float64{3, 3, 3, 3, 3, 3}, 5)
	if !core.IsUndefinedIndexError(err) {
		t.Fatalf("expected undefined index error, got %v", err)
	}
}

func TestDiscriminationIndexRange(t *testing.T) {
	tuning := []float64{0.5, 4.2, 1.1, 9.8}
	trials := []float64{1, 2, 9, 4, 5, 2, 7, 3, 6, 8}
	got, err := DiscriminationIndex(tuning, trials, 5)
	if err != nil {
		t.Fatalf("DiscriminationIndex: %v", err)
	}
	if got <= 0 || got >= 1 {
		t.Errorf("index %v should lie strictly inside (0,1) for noisy trials", got)
	}
}

func TestDiscriminationIndexNoResponses(t *testing.T) {
	_, err := DiscriminationIndex(nil, []float64{1, 2, 3, 4, 5, 6}, 5)
	if !core.IsMissingDataError(err) {
		t.Fatalf("expected missing data error, got %v", err)
	}
}
