package tuning

import (
	"math"

	"neurotune/domain/grating"
	"neurotune/internal/fitting"
)

// SFIndexBase anchors the octave-spaced mapping from axis rank to spatial
// frequency: value = 0.02 * 2^index cycles/degree.
const SFIndexBase = 0.02

// denseStep is the sampling resolution of the fitted curve over the index axis.
const denseStep = 0.1

// SFFromIndex converts a (possibly fractional) rank on the sorted spatial
// frequency axis to cycles/degree.
func SFFromIndex(index float64) float64 {
	return SFIndexBase * math.Pow(2, index)
}

// FitSFCurve fits a parametric tuning curve to the per-spatial-frequency mean
// responses and extracts the fitted preferred frequency plus half-max cutoffs.
//
// Interior preferred index: a Gaussian (amplitude, center, width) is fitted
// over the index axis, seeded with (max response, preferred index, 1). On
// success the fit's center is the preferred index; each cutoff is defined
// only when its half-max crossing lies strictly inside the sampled index
// range. On failure all four outputs are undefined.
//
// Boundary preferred index: the externally determined index and raw axis
// value are reported directly, and an exponential decay (amplitude, rate,
// offset) estimates only the cutoff on the open side; the closed side stays
// undefined. Fit failure leaves the open-side cutoff undefined too.
func FitSFCurve(responses, sfValues []float64, prefIndex, maxEvals int) grating.SFFit {
	if len(responses) != len(sfValues) || len(sfValues) == 0 ||
		prefIndex < 0 || prefIndex >= len(sfValues) {
		return grating.FailedSFFit(grating.ReasonDegenerate)
	}

	idxs := make([]float64, len(sfValues))
	for i := range idxs {
		idxs[i] = float64(i)
	}
	limit := float64(len(sfValues) - 1)

	if prefIndex > 0 && prefIndex < len(sfValues)-1 {
		return fitInterior(responses, idxs, limit, prefIndex, maxEvals)
	}
	return fitBoundary(responses, sfValues, idxs, limit, prefIndex, maxEvals)
}

// fitInterior handles units whose optimum lies strictly inside the sampled range
func fitInterior(responses, idxs []float64, limit float64, prefIndex, maxEvals int) grating.SFFit {
	seed := []float64{maxOf(responses), float64(prefIndex), 1}
	params, err := fitting.LeastSquares(fitting.Gaussian, idxs, responses, seed, maxEvals)
	if err != nil {
		return grating.FailedSFFit(grating.ReasonFitFailed)
	}

	xs, ys := fitting.Evaluate(fitting.Gaussian, params, limit, denseStep)
	low, high := halfMaxCutoffs(xs, ys)

	return grating.SFFit{
		Index:      grating.Defined(params[1]),
		Freq:       grating.Defined(SFFromIndex(params[1])),
		LowCutoff:  low,
		HighCutoff: high,
	}
}

// fitBoundary handles units whose response is still rising or falling at the
// sampled boundary, where forcing a peaked model would be wrong
func fitBoundary(responses, sfValues, idxs []float64, limit float64, prefIndex, maxEvals int) grating.SFFit {
	fit := grating.SFFit{
		Index:      grating.Defined(float64(prefIndex)),
		Freq:       grating.Defined(sfValues[prefIndex]),
		LowCutoff:  grating.Undefined(grating.ReasonClosedSide),
		HighCutoff: grating.Undefined(grating.ReasonClosedSide),
	}

	seed := []float64{maxOf(responses), 2, minOf(responses)}
	params, err := fitting.LeastSquares(fitting.ExpDecay, idxs, responses, seed, maxEvals)
	if err != nil {
		if prefIndex == 0 {
			fit.HighCutoff = grating.Undefined(grating.ReasonFitFailed)
		} else {
			fit.LowCutoff = grating.Undefined(grating.ReasonFitFailed)
		}
		return fit
	}

	xs, ys := fitting.Evaluate(fitting.ExpDecay, params, limit, denseStep)
	low, high := halfMaxCutoffs(xs, ys)
	if prefIndex == 0 {
		fit.HighCutoff = high
	} else {
		fit.LowCutoff = low
	}
	return fit
}

// halfMaxCutoffs finds the samples nearest the half-max level on either side
// of the curve's peak and maps them to frequencies. A crossing found at an
// extreme boundary sample means the half-max point was not bracketed by the
// sampled range, so that side's cutoff is undefined. Both sides are computed
// independently.
func halfMaxCutoffs(xs, ys []float64) (low, high grating.Measure) {
	peak := argmax(ys)
	half := ys[peak] / 2

	low = grating.Undefined(grating.ReasonCutoffAtBoundary)
	if peak > 0 {
		lowInd := nearest(ys[:peak], half)
		if lowInd > 0 {
			low = grating.Defined(SFFromIndex(xs[lowInd]))
		}
	}

	high = grating.Undefined(grating.ReasonCutoffAtBoundary)
	highInd := peak + nearest(ys[peak:], half)
	if highInd < len(ys)-1 {
		high = grating.Defined(SFFromIndex(xs[highInd]))
	}
	return low, high
}

// nearest returns the index of the value closest to target
func nearest(ys []float64, target float64) int {
	best := 0
	for i, y := range ys {
		if math.Abs(y-target) < math.Abs(ys[best]-target) {
			best = i
		}
	}
	return best
}

// argmax returns the index of the first maximum
func argmax(ys []float64) int {
	best := 0
	for i, y := range ys {
		if y > ys[best] {
			best = i
		}
	}
	return best
}

func maxOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
