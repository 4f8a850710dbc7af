// Package fitting wraps gonum's optimizers as least-squares curve fits for
// the small parametric models used in tuning analysis.
package fitting

import (
	"math"

	"gonum.org/v1/gonum/optimize"

	"neurotune/domain/core"
	"neurotune/internal/errors"
)

// Model is a parametric curve y = f(x; params).
type Model func(x float64, params []float64) float64

// Gaussian is a three-parameter peaked model: a*exp(-(x-x0)^2 / (2*sigma^2)).
// Params: [amplitude, center, width].
func Gaussian(x float64, params []float64) float64 {
	a, x0, sigma := params[0], params[1], params[2]
	d := x - x0
	return a * math.Exp(-d*d/(2*sigma*sigma))
}

// ExpDecay is a three-parameter monotonic model: a*exp(-b*x) + c.
// Params: [amplitude, decay rate, offset].
func ExpDecay(x float64, params []float64) float64 {
	a, b, c := params[0], params[1], params[2]
	return a*math.Exp(-b*x) + c
}

// LeastSquares fits model to (xs, ys) by minimizing the sum of squared
// residuals with Nelder-Mead, starting from p0 and capped at maxEvals
// objective evaluations. Returns core.ErrFitDidNotConverge when the
// optimizer fails, hits the evaluation cap, or produces non-finite
// parameters.
func LeastSquares(model Model, xs, ys, p0 []float64, maxEvals int) ([]float64, error) {
	if len(xs) != len(ys) {
		return nil, errors.New(errors.CodeAnalysis, "x and y lengths differ")
	}
	if len(xs) < len(p0) {
		return nil, errors.Wrapf(core.ErrFitDidNotConverge,
			"%d samples cannot constrain %d parameters", len(xs), len(p0))
	}

	problem := optimize.Problem{
		Func: func(params []float64) float64 {
			sse := 0.0
			for i, x := range xs {
				r := model(x, params) - ys[i]
				sse += r * r
			}
			return sse
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: maxEvals,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Iterations: 100,
		},
	}

	init := make([]float64, len(p0))
	copy(init, p0)

	result, err := optimize.Minimize(problem, init, settings, &optimize.NelderMead{})
	if err != nil {
		return nil, errors.Wrap(core.ErrFitDidNotConverge, err.Error())
	}
	if result.Status == optimize.FunctionEvaluationLimit {
		return nil, errors.Wrapf(core.ErrFitDidNotConverge,
			"evaluation cap %d reached", maxEvals)
	}
	for _, p := range result.X {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, errors.Wrap(core.ErrFitDidNotConverge, "non-finite fit parameter")
		}
	}
	if math.IsNaN(result.F) || math.IsInf(result.F, 0) {
		return nil, errors.Wrap(core.ErrFitDidNotConverge, "non-finite residual")
	}

	return result.X, nil
}

// Evaluate samples the model over a dense grid: from 0 to limit inclusive in
// the given step. The returned xs and ys have equal length.
func Evaluate(model Model, params []float64, limit, step float64) (xs, ys []float64) {
	n := int(limit/step) + 1
	xs = make([]float64, n)
	ys = make([]float64, n)
	for i := 0; i < n; i++ {
		x := float64(i) * step
		xs[i] = x
		ys[i] = model(x, params)
	}
	return xs, ys
}
