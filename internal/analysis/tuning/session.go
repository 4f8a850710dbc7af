// Package tuning computes per-unit tuning metrics for the static gratings
// stimulus: preferred orientation/spatial frequency/phase, the global
// orientation selectivity index, a parametric spatial-frequency curve fit
// with half-max cutoffs, and a discrimination index.
package tuning

import (
	"context"
	"sync"

	"neurotune/domain/core"
	"neurotune/domain/grating"
	"neurotune/internal"
	"neurotune/ports"
)

// Dataset bundles the input tables for one recording session. The engine
// treats all three as read-only; Trials may be nil.
type Dataset struct {
	Conditions *grating.ConditionTable
	Statistics *grating.StatisticsTable
	Trials     *grating.TrialTable
}

// Options tunes the analysis parameters.
type Options struct {
	// SFDIBias is the degrees-of-freedom correction for the discrimination
	// index standard error (denominator is trials - SFDIBias).
	SFDIBias int
	// FitMaxEvals caps objective evaluations per curve-fit attempt.
	FitMaxEvals int
	// Parallel computes unit rows with a data-parallel map. Output order is
	// unaffected: rows are written by index.
	Parallel bool
	// Logger defaults to internal.DefaultLogger.
	Logger *internal.Logger
}

// DefaultOptions returns the standard analysis parameters
func DefaultOptions() Options {
	return Options{
		SFDIBias:    5,
		FitMaxEvals: 2000,
		Parallel:    false,
	}
}

// Session is one analysis pass over a recording session. Axis values and the
// assembled metrics table are computed lazily, at most once, and cached for
// the session's lifetime; inputs are never mutated.
type Session struct {
	id       core.SessionID
	runID    core.RunID
	data     Dataset
	provider ports.MetricsProvider
	opts     Options
	log      *internal.Logger

	axesOnce sync.Once
	axes     map[grating.Dimension]grating.Axis

	metricsOnce sync.Once
	metrics     *grating.MetricsTable
	metricsErr  error
}

// NewSession creates an analysis session over the given tables. provider may
// be nil, in which case every collaborator-supplied cell is undefined.
func NewSession(id core.SessionID, data Dataset, provider ports.MetricsProvider, opts Options) (*Session, error) {
	if data.Conditions == nil || data.Conditions.Len() == 0 {
		return nil, core.ErrConditionNotFound
	}
	if data.Statistics == nil || data.Statistics.Len() == 0 {
		return nil, core.ErrMissingData
	}
	if opts.FitMaxEvals <= 0 {
		opts.FitMaxEvals = 2000
	}
	log := opts.Logger
	if log == nil {
		log = internal.DefaultLogger
	}
	return &Session{
		id:       id,
		runID:    core.RunID(core.NewID()),
		data:     data,
		provider: provider,
		opts:     opts,
		log:      log,
	}, nil
}

// RunID returns the identifier assigned to this analysis run
func (s *Session) RunID() core.RunID {
	return s.runID
}

// UnitIDs returns the distinct unit ids present in the statistics table,
// ascending. This is the default iteration order for Metrics.
func (s *Session) UnitIDs() []grating.UnitID {
	return s.data.Statistics.Units()
}

// Axis returns the cached tuning axis for one stimulus dimension
func (s *Session) Axis(dim grating.Dimension) grating.Axis {
	s.axesOnce.Do(s.deriveAxes)
	return s.axes[dim]
}

// deriveAxes populates the axis cache for all three dimensions
func (s *Session) deriveAxes() {
	s.axes = map[grating.Dimension]grating.Axis{
		grating.DimOrientation:      grating.DeriveAxis(grating.DimOrientation, s.data.Conditions),
		grating.DimSpatialFrequency: grating.DeriveAxis(grating.DimSpatialFrequency, s.data.Conditions),
		grating.DimPhase:            grating.DeriveAxis(grating.DimPhase, s.data.Conditions),
	}
	for dim, axis := range s.axes {
		s.log.Debug("derived %s axis with %d values", dim, axis.Len())
	}
}

// BlankConditionIDs returns the null (blank screen) condition ids
func (s *Session) BlankConditionIDs() []grating.ConditionID {
	return s.data.Conditions.BlankConditionIDs()
}

// Metrics assembles the results table for all units in the statistics table.
// The table is computed once and cached; later calls return the same table.
func (s *Session) Metrics(ctx context.Context) (*grating.MetricsTable, error) {
	return s.MetricsFor(ctx, s.UnitIDs())
}

// MetricsFor assembles the results table for the given unit sequence,
// preserving its order. The first call fixes the cached table; the unit
// sequence of later calls is ignored.
func (s *Session) MetricsFor(ctx context.Context, unitIDs []grating.UnitID) (*grating.MetricsTable, error) {
	s.metricsOnce.Do(func() {
		s.metrics, s.metricsErr = s.assemble(ctx, unitIDs)
	})
	return s.metrics, s.metricsErr
}
