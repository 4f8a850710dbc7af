package tuning

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"neurotune/domain/core"
	"neurotune/domain/grating"
)

// assemble builds the metrics table, one row per requested unit in the given
// order. Units whose base statistics are missing are skipped with a warning;
// tolerated sub-failures (fit non-convergence, degenerate indices) leave
// undefined cells in an otherwise complete row.
func (s *Session) assemble(ctx context.Context, unitIDs []grating.UnitID) (*grating.MetricsTable, error) {
	if len(unitIDs) == 0 {
		return nil, core.ErrEmptyUnitSet
	}

	s.log.Info("computing static gratings metrics for %d units", len(unitIDs))

	rows := make([]grating.MetricsRow, len(unitIDs))
	rowErrs := make([]error, len(unitIDs))

	if s.opts.Parallel {
		// Units are independent; rows are written by index so the output
		// order matches the input sequence.
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(runtime.NumCPU())
		for i, unit := range unitIDs {
			i, unit := i, unit
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				rows[i], rowErrs[i] = s.computeRow(unit)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, unit := range unitIDs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			rows[i], rowErrs[i] = s.computeRow(unit)
		}
	}

	table := &grating.MetricsTable{
		RunID:     s.runID,
		SessionID: s.id,
		CreatedAt: core.Now(),
		Rows:      make([]grating.MetricsRow, 0, len(unitIDs)),
	}
	for i, unit := range unitIDs {
		if err := rowErrs[i]; err != nil {
			s.log.Warn("skipping unit %d: %v", unit, err)
			if table.Skipped == nil {
				table.Skipped = make(map[grating.UnitID]string)
			}
			table.Skipped[unit] = err.Error()
			continue
		}
		table.Rows = append(table.Rows, rows[i])
	}

	s.log.Info("metrics table assembled: %d rows, %d skipped", len(table.Rows), len(table.Skipped))
	return table, nil
}

// computeRow computes one unit's metrics. A returned error means the unit's
// base data was missing and no row can be produced.
func (s *Session) computeRow(unit grating.UnitID) (grating.MetricsRow, error) {
	prefSF, err := s.PreferredValue(unit, grating.DimSpatialFrequency)
	if err != nil {
		return grating.MetricsRow{}, err
	}
	prefOri, err := s.PreferredValue(unit, grating.DimOrientation)
	if err != nil {
		return grating.MetricsRow{}, err
	}
	prefPhase, err := s.PreferredValue(unit, grating.DimPhase)
	if err != nil {
		return grating.MetricsRow{}, err
	}

	row := grating.MetricsRow{
		UnitID:    unit,
		PrefSF:    prefSF,
		PrefOri:   prefOri,
		PrefPhase: prefPhase,
	}

	osi, err := s.GlobalOSI(unit, prefSF, prefPhase)
	switch {
	case err == nil:
		row.GlobalOSI = grating.Defined(osi)
	case core.IsUndefinedIndexError(err):
		row.GlobalOSI = grating.Undefined(grating.ReasonDegenerate)
	default:
		return grating.MetricsRow{}, err
	}

	sfAxis := s.Axis(grating.DimSpatialFrequency)
	sfMeans, err := s.axisMeans(unit, grating.DimSpatialFrequency)
	if err != nil {
		return grating.MetricsRow{}, err
	}
	row.SFFit = FitSFCurve(sfMeans, sfAxis.Values, sfAxis.IndexOf(prefSF), s.opts.FitMaxEvals)

	row.SFDI = s.discrimination(unit, prefOri, prefPhase, sfMeans)

	s.fillCollaboratorMetrics(unit, &row)
	return row, nil
}

// discrimination computes the spatial-frequency discrimination index from the
// unit's trials along the SF sweep at its preferred orientation and phase.
// Missing trial data or a degenerate denominator leaves the cell undefined.
func (s *Session) discrimination(unit grating.UnitID, prefOri, prefPhase float64, sfMeans []float64) grating.Measure {
	if s.data.Trials == nil {
		return grating.Undefined(grating.ReasonNoData)
	}

	condIDs := s.data.Conditions.IDsWhere(func(c grating.Condition) bool {
		ori, okOri := c.Ori.Float()
		ph, okPh := c.Phase.Float()
		return okOri && okPh && !c.SF.IsNull() && ori == prefOri && ph == prefPhase
	})
	var trialValues []float64
	for _, id := range condIDs {
		trialValues = append(trialValues, s.data.Trials.Responses(unit, id)...)
	}
	if len(trialValues) == 0 {
		return grating.Undefined(grating.ReasonNoData)
	}

	sfdi, err := DiscriminationIndex(sfMeans, trialValues, s.opts.SFDIBias)
	if err != nil {
		return grating.Undefined(grating.ReasonDegenerate)
	}
	return grating.Defined(sfdi)
}

// fillCollaboratorMetrics populates the provider-supplied cells. A nil
// provider, or a provider lacking the data a metric needs, yields undefined
// cells rather than errors.
func (s *Session) fillCollaboratorMetrics(unit grating.UnitID, row *grating.MetricsRow) {
	if s.provider == nil {
		noData := grating.Undefined(grating.ReasonNoData)
		row.TimeToPeak = noData
		row.FiringRate = noData
		row.Reliability = noData
		row.FanoFactor = noData
		row.LifetimeSparseness = noData
		row.RunPValue = noData
		row.RunModulation = noData
		return
	}

	row.FiringRate = s.provider.OverallFiringRate(unit)
	row.LifetimeSparseness = s.provider.LifetimeSparseness(unit)

	prefCond, err := s.PreferredCondition(unit)
	if err != nil {
		noData := grating.Undefined(grating.ReasonNoData)
		row.TimeToPeak = noData
		row.Reliability = noData
		row.FanoFactor = noData
		row.RunPValue = noData
		row.RunModulation = noData
		return
	}
	row.TimeToPeak = s.provider.TimeToPeak(unit, prefCond)
	row.Reliability = s.provider.Reliability(unit, prefCond)
	row.FanoFactor = s.provider.FanoFactor(unit, prefCond)
	row.RunPValue, row.RunModulation = s.provider.RunningModulation(unit, prefCond)
}
