package grating

// Trial is one presentation's response for one unit: the spike count (or
// rate) in the response window, plus the animal's running speed during the
// sweep when tracked.
type Trial struct {
	UnitID       UnitID      `json:"unit_id"`
	ConditionID  ConditionID `json:"condition_id"`
	Response     float64     `json:"response"`
	RunningSpeed Scalar      `json:"running_speed"` // cm/s, null when not tracked
}

// TrialTable holds per-trial responses keyed by (unit, condition). The table
// is optional input: discrimination index, reliability and running modulation
// need it, the core preferred-value and selectivity metrics do not.
type TrialTable struct {
	byKey map[statKey][]Trial
}

// NewTrialTable groups trials by (unit, condition), preserving input order
// within each group.
func NewTrialTable(trials []Trial) *TrialTable {
	t := &TrialTable{byKey: make(map[statKey][]Trial)}
	for _, tr := range trials {
		key := statKey{unit: tr.UnitID, cond: tr.ConditionID}
		t.byKey[key] = append(t.byKey[key], tr)
	}
	return t
}

// Get returns the trials for a (unit, condition) pair
func (t *TrialTable) Get(unit UnitID, cond ConditionID) []Trial {
	if t == nil {
		return nil
	}
	return t.byKey[statKey{unit: unit, cond: cond}]
}

// Responses returns just the response values for a (unit, condition) pair
func (t *TrialTable) Responses(unit UnitID, cond ConditionID) []float64 {
	trials := t.Get(unit, cond)
	if len(trials) == 0 {
		return nil
	}
	out := make([]float64, len(trials))
	for i, tr := range trials {
		out[i] = tr.Response
	}
	return out
}
