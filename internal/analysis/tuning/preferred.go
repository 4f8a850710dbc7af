package tuning

import (
	"github.com/montanaflynn/stats"

	"neurotune/domain/core"
	"neurotune/domain/grating"
)

// axisMeans computes the unit's mean-of-means response profile along one
// axis: for each axis value, the mean of the unit's conditionwise spike means
// over every condition sharing that value, regardless of the other two
// dimensions. Returns core.ErrMissingData when a value has no statistic for
// the unit.
func (s *Session) axisMeans(unit grating.UnitID, dim grating.Dimension) ([]float64, error) {
	axis := s.Axis(dim)
	if axis.Len() == 0 {
		return nil, core.ErrEmptyAxis
	}

	means := make([]float64, axis.Len())
	for i, value := range axis.Values {
		var responses []float64
		for _, condID := range s.data.Conditions.IDsWithValue(dim, value) {
			if stat, ok := s.data.Statistics.Get(unit, condID); ok {
				responses = append(responses, stat.SpikeMean)
			}
		}
		if len(responses) == 0 {
			return nil, core.NewMissingDataError(int64(unit), string(dim), value)
		}
		m, err := stats.Mean(responses)
		if err != nil {
			return nil, err
		}
		means[i] = m
	}
	return means, nil
}

// PreferredValue returns the axis value driving the unit's maximal
// mean-of-means response. Ties break to the first occurrence in ascending
// axis order (strict-greater comparison over the sorted axis).
func (s *Session) PreferredValue(unit grating.UnitID, dim grating.Dimension) (float64, error) {
	axis := s.Axis(dim)
	means, err := s.axisMeans(unit, dim)
	if err != nil {
		return 0, err
	}

	best := 0
	for i := 1; i < len(means); i++ {
		if means[i] > means[best] {
			best = i
		}
	}
	return axis.Values[best], nil
}

// PreferredCondition returns the non-blank condition id with the unit's
// maximal spike mean, for collaborator metrics evaluated at a single
// condition. Ties break to the lowest condition id in table order.
func (s *Session) PreferredCondition(unit grating.UnitID) (grating.ConditionID, error) {
	var (
		bestID   grating.ConditionID
		bestMean float64
		found    bool
	)
	for _, condID := range s.data.Conditions.IDs() {
		cond, _ := s.data.Conditions.Get(condID)
		if cond.IsBlank() {
			continue
		}
		stat, ok := s.data.Statistics.Get(unit, condID)
		if !ok {
			continue
		}
		if !found || stat.SpikeMean > bestMean {
			bestID, bestMean, found = condID, stat.SpikeMean, true
		}
	}
	if !found {
		return 0, core.NewMissingDataError(int64(unit), "condition", 0)
	}
	return bestID, nil
}
