package tuning

import (
	"math"
	"sort"

	"neurotune/domain/core"
	"neurotune/domain/grating"
)

// GlobalOSI computes the global orientation selectivity index for a unit at
// its preferred spatial frequency and phase: the magnitude of the
// response-weighted vector sum of e^{i*theta} over the orientation sweep,
// normalized by the summed response.
//
// Orientation uses the raw angle, not the doubled angle of
// direction-selectivity conventions, so the index lives in [0,1]: 0 is flat
// tuning, 1 is response concentrated at a single orientation.
//
// All-zero responses leave the index undefined and return
// core.ErrUndefinedIndex rather than dividing by zero.
func (s *Session) GlobalOSI(unit grating.UnitID, prefSF, prefPhase float64) (float64, error) {
	condIDs := s.data.Conditions.IDsWhere(func(c grating.Condition) bool {
		sf, okSF := c.SF.Float()
		ph, okPh := c.Phase.Float()
		return okSF && okPh && !c.Ori.IsNull() && sf == prefSF && ph == prefPhase
	})
	if len(condIDs) == 0 {
		return 0, core.ErrConditionNotFound
	}

	type sweep struct {
		ori  float64
		resp float64
	}
	sweeps := make([]sweep, 0, len(condIDs))
	for _, id := range condIDs {
		cond, _ := s.data.Conditions.Get(id)
		ori, _ := cond.Ori.Float()
		stat, ok := s.data.Statistics.Get(unit, id)
		if !ok {
			return 0, core.NewMissingDataError(int64(unit), string(grating.DimOrientation), ori)
		}
		sweeps = append(sweeps, sweep{ori: ori, resp: stat.SpikeMean})
	}
	sort.Slice(sweeps, func(i, j int) bool { return sweeps[i].ori < sweeps[j].ori })

	var sumRe, sumIm, total float64
	for _, sw := range sweeps {
		theta := sw.ori * math.Pi / 180
		sumRe += sw.resp * math.Cos(theta)
		sumIm += sw.resp * math.Sin(theta)
		total += sw.resp
	}
	if total == 0 {
		return 0, core.NewUndefinedIndexError(int64(unit), "g_osi", "all responses are zero")
	}

	return math.Hypot(sumRe, sumIm) / total, nil
}
