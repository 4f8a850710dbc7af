package ports

import "neurotune/domain/grating"

// MetricsProvider supplies the per-unit collaborator metrics the tuning
// engine reports but does not compute itself. Implementations return an
// undefined measure when the data a metric needs was not recorded; they
// never return errors, matching the tolerant policy for auxiliary cells.
type MetricsProvider interface {
	// TimeToPeak is the latency of the peak PSTH response at a condition, seconds.
	TimeToPeak(unit grating.UnitID, condition grating.ConditionID) grating.Measure

	// OverallFiringRate is the unit's mean firing rate over the whole stimulus, Hz.
	OverallFiringRate(unit grating.UnitID) grating.Measure

	// Reliability is the trial-to-trial response reliability at a condition.
	Reliability(unit grating.UnitID, condition grating.ConditionID) grating.Measure

	// FanoFactor is spike-count variance over mean at a condition.
	FanoFactor(unit grating.UnitID, condition grating.ConditionID) grating.Measure

	// LifetimeSparseness measures how peaked the unit's responses are across
	// all stimulus conditions, in [0,1].
	LifetimeSparseness(unit grating.UnitID) grating.Measure

	// RunningModulation compares responses between running and stationary
	// trials at a condition, returning (p-value, modulation index).
	RunningModulation(unit grating.UnitID, condition grating.ConditionID) (pval, mod grating.Measure)
}
