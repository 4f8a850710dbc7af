// Package unitmetrics is the default implementation of the collaborator
// metrics port: per-unit statistics (firing rate, fano factor, reliability,
// lifetime sparseness, running modulation, time to peak) computed from the
// session tables plus optional trial-level recordings.
package unitmetrics

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"neurotune/domain/grating"
)

// PSTH is a peri-stimulus time histogram for one (unit, condition): binned
// spike counts per trial, all trials sharing the bin width in seconds.
type PSTH struct {
	BinWidth float64
	Trials   [][]float64
}

type psthKey struct {
	unit grating.UnitID
	cond grating.ConditionID
}

// Options configures the provider. Zero values select the defaults.
type Options struct {
	// TrialDuration is the stimulus presentation length in seconds (default 0.25).
	TrialDuration float64
	// RunningThreshold is the speed, cm/s, above which a trial counts as
	// running (default 1).
	RunningThreshold float64
}

// Provider computes the collaborator metrics from session data. Metrics whose
// data was not supplied come back undefined, never as errors.
type Provider struct {
	conditions *grating.ConditionTable
	statistics *grating.StatisticsTable
	trials     *grating.TrialTable
	psths      map[psthKey]PSTH
	opts       Options
}

// NewProvider creates a provider over the session tables. trials may be nil.
func NewProvider(conditions *grating.ConditionTable, statistics *grating.StatisticsTable, trials *grating.TrialTable, opts Options) *Provider {
	if opts.TrialDuration <= 0 {
		opts.TrialDuration = 0.25
	}
	if opts.RunningThreshold <= 0 {
		opts.RunningThreshold = 1
	}
	return &Provider{
		conditions: conditions,
		statistics: statistics,
		trials:     trials,
		psths:      make(map[psthKey]PSTH),
		opts:       opts,
	}
}

// SetPSTH registers a peri-stimulus time histogram for a (unit, condition),
// enabling time-to-peak and reliability for that pair.
func (p *Provider) SetPSTH(unit grating.UnitID, cond grating.ConditionID, psth PSTH) {
	p.psths[psthKey{unit: unit, cond: cond}] = psth
}

// OverallFiringRate is the trial-weighted mean spike count per second across
// every condition the unit was recorded under.
func (p *Provider) OverallFiringRate(unit grating.UnitID) grating.Measure {
	var spikes, trials float64
	for _, condID := range p.conditions.IDs() {
		if stat, ok := p.statistics.Get(unit, condID); ok {
			spikes += stat.SpikeMean * float64(stat.TrialCount)
			trials += float64(stat.TrialCount)
		}
	}
	if trials == 0 {
		return grating.Undefined(grating.ReasonNoData)
	}
	return grating.Defined(spikes / (trials * p.opts.TrialDuration))
}

// FanoFactor is spike-count variance over mean at one condition.
func (p *Provider) FanoFactor(unit grating.UnitID, cond grating.ConditionID) grating.Measure {
	stat, ok := p.statistics.Get(unit, cond)
	if !ok {
		return grating.Undefined(grating.ReasonNoData)
	}
	if stat.SpikeMean == 0 {
		return grating.Undefined(grating.ReasonDegenerate)
	}
	return grating.Defined(stat.SpikeVar / stat.SpikeMean)
}

// LifetimeSparseness measures how peaked the unit's mean responses are across
// all non-blank conditions: 0 for a flat profile, approaching 1 when the
// response concentrates in a single condition.
func (p *Provider) LifetimeSparseness(unit grating.UnitID) grating.Measure {
	var rs []float64
	for _, condID := range p.conditions.IDs() {
		cond, _ := p.conditions.Get(condID)
		if cond.IsBlank() {
			continue
		}
		if stat, ok := p.statistics.Get(unit, condID); ok {
			rs = append(rs, stat.SpikeMean)
		}
	}
	n := float64(len(rs))
	if n < 2 {
		return grating.Undefined(grating.ReasonNoData)
	}

	var sum, sumSq float64
	for _, r := range rs {
		sum += r
		sumSq += r * r
	}
	if sumSq == 0 {
		return grating.Undefined(grating.ReasonDegenerate)
	}
	ls := (1 - (sum/n)*(sum/n)/(sumSq/n)) / (1 - 1/n)
	return grating.Defined(ls)
}

// TimeToPeak is the latency, seconds, of the maximum of the trial-averaged
// PSTH at one condition. Undefined without a registered PSTH.
func (p *Provider) TimeToPeak(unit grating.UnitID, cond grating.ConditionID) grating.Measure {
	psth, ok := p.psths[psthKey{unit: unit, cond: cond}]
	if !ok || len(psth.Trials) == 0 || len(psth.Trials[0]) == 0 {
		return grating.Undefined(grating.ReasonNoData)
	}

	bins := len(psth.Trials[0])
	mean := make([]float64, bins)
	for _, trial := range psth.Trials {
		for b := 0; b < bins && b < len(trial); b++ {
			mean[b] += trial[b]
		}
	}
	peak := 0
	for b, v := range mean {
		if v > mean[peak] {
			peak = b
		}
	}
	return grating.Defined(float64(peak) * psth.BinWidth)
}

// Reliability is the mean pairwise Pearson correlation between the unit's
// single-trial PSTHs at one condition. Undefined without a registered PSTH of
// at least two trials; degenerate when no trial pair has variance.
func (p *Provider) Reliability(unit grating.UnitID, cond grating.ConditionID) grating.Measure {
	psth, ok := p.psths[psthKey{unit: unit, cond: cond}]
	if !ok || len(psth.Trials) < 2 {
		return grating.Undefined(grating.ReasonNoData)
	}

	var sum float64
	var pairs int
	for i := 0; i < len(psth.Trials); i++ {
		for j := i + 1; j < len(psth.Trials); j++ {
			if r, ok := pearson(psth.Trials[i], psth.Trials[j]); ok {
				sum += r
				pairs++
			}
		}
	}
	if pairs == 0 {
		return grating.Undefined(grating.ReasonDegenerate)
	}
	return grating.Defined(sum / float64(pairs))
}

// RunningModulation splits the condition's trials into running and stationary
// by speed threshold and compares their responses with Welch's t-test,
// returning the p-value and a modulation index (run-stat)/(run+stat).
func (p *Provider) RunningModulation(unit grating.UnitID, cond grating.ConditionID) (pval, mod grating.Measure) {
	trials := p.trials.Get(unit, cond)
	var run, stat []float64
	for _, tr := range trials {
		speed, tracked := tr.RunningSpeed.Float()
		if !tracked {
			continue
		}
		if speed >= p.opts.RunningThreshold {
			run = append(run, tr.Response)
		} else {
			stat = append(stat, tr.Response)
		}
	}
	if len(run) < 2 || len(stat) < 2 {
		noData := grating.Undefined(grating.ReasonNoData)
		return noData, noData
	}

	t, df, ok := welchT(run, stat)
	if !ok {
		deg := grating.Undefined(grating.ReasonDegenerate)
		return deg, deg
	}
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	pval = grating.Defined(2 * (1 - tDist.CDF(math.Abs(t))))

	runMean, _ := stats.Mean(run)
	statMean, _ := stats.Mean(stat)
	if runMean+statMean == 0 {
		mod = grating.Undefined(grating.ReasonDegenerate)
	} else {
		mod = grating.Defined((runMean - statMean) / (runMean + statMean))
	}
	return pval, mod
}

// welchT computes Welch's t statistic and Welch-Satterthwaite degrees of
// freedom for two samples. ok is false when both variances are zero.
func welchT(a, b []float64) (t, df float64, ok bool) {
	meanA, _ := stats.Mean(a)
	meanB, _ := stats.Mean(b)
	varA, _ := stats.SampleVariance(a)
	varB, _ := stats.SampleVariance(b)

	na, nb := float64(len(a)), float64(len(b))
	se := varA/na + varB/nb
	if se == 0 {
		return 0, 0, false
	}
	t = (meanA - meanB) / math.Sqrt(se)
	df = se * se / ((varA/na)*(varA/na)/(na-1) + (varB/nb)*(varB/nb)/(nb-1))
	return t, df, true
}

// pearson computes the correlation of two equal-length vectors; ok is false
// when either vector has zero variance.
func pearson(x, y []float64) (float64, bool) {
	n := len(x)
	if n != len(y) || n == 0 {
		return 0, false
	}
	var sumX, sumY, sumXY, sumX2, sumY2 float64
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumX2 += x[i] * x[i]
		sumY2 += y[i] * y[i]
	}
	fn := float64(n)
	denom := math.Sqrt((fn*sumX2 - sumX*sumX) * (fn*sumY2 - sumY*sumY))
	if denom == 0 {
		return 0, false
	}
	return (fn*sumXY - sumX*sumY) / denom, true
}
