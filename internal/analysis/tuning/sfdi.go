package tuning

import (
	"math"

	"github.com/montanaflynn/stats"

	"neurotune/domain/core"
	"neurotune/internal/errors"
)

// DiscriminationIndex measures how sharp a tuning curve is relative to trial
// noise: range / (range + 2*SE), where range is max-min of the per-condition
// mean responses and SE is a bias-corrected sample standard error of the
// per-trial values (denominator trials - bias).
//
// The trial count must exceed the bias term; otherwise the denominator is
// degenerate and core.ErrInsufficientTrials is returned. A zero range with
// zero trial variance leaves the index undefined (core.ErrUndefinedIndex).
func DiscriminationIndex(tuningResponses, trialValues []float64, bias int) (float64, error) {
	if len(tuningResponses) == 0 {
		return 0, errors.Wrap(core.ErrMissingData, "no tuning responses")
	}
	if len(trialValues) <= bias {
		return 0, errors.Wrapf(core.ErrInsufficientTrials,
			"%d trials with bias term %d", len(trialValues), bias)
	}

	trialMean, err := stats.Mean(trialValues)
	if err != nil {
		return 0, err
	}
	var ss float64
	for _, v := range trialValues {
		d := v - trialMean
		ss += d * d
	}
	se := math.Sqrt(ss / float64(len(trialValues)-bias))

	lo, err := stats.Min(tuningResponses)
	if err != nil {
		return 0, err
	}
	hi, err := stats.Max(tuningResponses)
	if err != nil {
		return 0, err
	}
	rng := hi - lo

	denom := rng + 2*se
	if denom == 0 {
		return 0, errors.Wrap(core.ErrUndefinedIndex, "zero response range and zero trial variance")
	}
	return rng / denom, nil
}
