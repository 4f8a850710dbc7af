package grating

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"neurotune/domain/core"
)

// UnitID identifies a recorded unit (sorted cluster) within a session.
type UnitID int64

// ConditionID identifies one stimulus condition (a unique parameter combination).
type ConditionID int64

// Dimension names one stimulus parameter axis of the grating stimulus.
type Dimension string

const (
	DimOrientation      Dimension = "orientation"
	DimSpatialFrequency Dimension = "spatial_frequency"
	DimPhase            Dimension = "phase"
)

// Scalar is a stimulus parameter value that may carry the null (blank screen)
// marker instead of a number. The marker is distinct from every numeric value,
// including NaN; downstream code must check Valid before using Value.
type Scalar struct {
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
}

// Val creates a numeric scalar
func Val(v float64) Scalar {
	return Scalar{Value: v, Valid: true}
}

// Null creates the null (blank stimulus) marker
func Null() Scalar {
	return Scalar{}
}

// IsNull reports whether the scalar is the null marker
func (s Scalar) IsNull() bool {
	return !s.Valid
}

// Float returns the numeric value and whether one is present
func (s Scalar) Float() (float64, bool) {
	return s.Value, s.Valid
}

// Equals compares two scalars; null only equals null
func (s Scalar) Equals(o Scalar) bool {
	if s.Valid != o.Valid {
		return false
	}
	return !s.Valid || s.Value == o.Value
}

// String renders the scalar the way the stimulus tables do ("null" for blanks)
func (s Scalar) String() string {
	if !s.Valid {
		return "null"
	}
	return strconv.FormatFloat(s.Value, 'g', -1, 64)
}

// ParseScalar parses a stimulus table cell, accepting "null" (any case) and
// the empty string as the null marker.
func ParseScalar(cell string) (Scalar, error) {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" || strings.EqualFold(trimmed, "null") {
		return Null(), nil
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return Scalar{}, fmt.Errorf("invalid stimulus value %q: %w", cell, err)
	}
	return Val(v), nil
}

// Condition is one row of the stimulus condition table.
type Condition struct {
	ID    ConditionID `json:"condition_id"`
	Ori   Scalar      `json:"orientation"`       // degrees
	SF    Scalar      `json:"spatial_frequency"` // cycles/degree
	Phase Scalar      `json:"phase"`             // degrees
}

// IsBlank reports whether this is the null (blank screen) condition
func (c Condition) IsBlank() bool {
	return c.Ori.IsNull() && c.SF.IsNull() && c.Phase.IsNull()
}

// Param returns the scalar for the named dimension
func (c Condition) Param(dim Dimension) Scalar {
	switch dim {
	case DimOrientation:
		return c.Ori
	case DimSpatialFrequency:
		return c.SF
	case DimPhase:
		return c.Phase
	default:
		return Null()
	}
}

// ConditionTable holds the stimulus conditions for a session, keyed by
// condition id. Condition ids are unique; the table is immutable once built.
type ConditionTable struct {
	byID  map[ConditionID]Condition
	order []ConditionID
}

// NewConditionTable builds a condition table, rejecting duplicate ids
func NewConditionTable(conditions []Condition) (*ConditionTable, error) {
	t := &ConditionTable{
		byID:  make(map[ConditionID]Condition, len(conditions)),
		order: make([]ConditionID, 0, len(conditions)),
	}
	for _, c := range conditions {
		if _, dup := t.byID[c.ID]; dup {
			return nil, fmt.Errorf("duplicate condition id %d", c.ID)
		}
		t.byID[c.ID] = c
		t.order = append(t.order, c.ID)
	}
	return t, nil
}

// Len returns the number of conditions
func (t *ConditionTable) Len() int {
	return len(t.order)
}

// Get looks up a condition by id
func (t *ConditionTable) Get(id ConditionID) (Condition, bool) {
	c, ok := t.byID[id]
	return c, ok
}

// IDs returns the condition ids in table order
func (t *ConditionTable) IDs() []ConditionID {
	out := make([]ConditionID, len(t.order))
	copy(out, t.order)
	return out
}

// IDsWhere returns the ids of conditions satisfying the predicate, in table order
func (t *ConditionTable) IDsWhere(pred func(Condition) bool) []ConditionID {
	var out []ConditionID
	for _, id := range t.order {
		if pred(t.byID[id]) {
			out = append(out, id)
		}
	}
	return out
}

// IDsWithValue returns the ids of conditions whose given dimension equals v
func (t *ConditionTable) IDsWithValue(dim Dimension, v float64) []ConditionID {
	return t.IDsWhere(func(c Condition) bool {
		val, ok := c.Param(dim).Float()
		return ok && val == v
	})
}

// BlankConditionIDs returns the ids of null (blank screen) conditions,
// identified by a null spatial frequency.
func (t *ConditionTable) BlankConditionIDs() []ConditionID {
	return t.IDsWhere(func(c Condition) bool { return c.SF.IsNull() })
}

// Statistic is one row of the conditionwise statistics table: per-trial spike
// counts for one (unit, condition) pair reduced to mean, variance and count.
type Statistic struct {
	UnitID      UnitID      `json:"unit_id"`
	ConditionID ConditionID `json:"condition_id"`
	SpikeMean   float64     `json:"spike_mean"`
	SpikeVar    float64     `json:"spike_var"`
	TrialCount  int         `json:"trial_count"`
}

type statKey struct {
	unit UnitID
	cond ConditionID
}

// StatisticsTable holds conditionwise statistics keyed by (unit, condition).
// Every referenced condition must exist in the session's condition table.
type StatisticsTable struct {
	byKey map[statKey]Statistic
	units []UnitID
}

// NewStatisticsTable builds a statistics table, validating that every row
// references a condition present in conditions.
func NewStatisticsTable(rows []Statistic, conditions *ConditionTable) (*StatisticsTable, error) {
	t := &StatisticsTable{byKey: make(map[statKey]Statistic, len(rows))}
	seen := make(map[UnitID]bool)
	for _, r := range rows {
		if _, ok := conditions.Get(r.ConditionID); !ok {
			return nil, core.NewTableMismatchError(int64(r.ConditionID))
		}
		key := statKey{unit: r.UnitID, cond: r.ConditionID}
		if _, dup := t.byKey[key]; dup {
			return nil, fmt.Errorf("duplicate statistic for unit %d condition %d", r.UnitID, r.ConditionID)
		}
		t.byKey[key] = r
		if !seen[r.UnitID] {
			seen[r.UnitID] = true
			t.units = append(t.units, r.UnitID)
		}
	}
	sort.Slice(t.units, func(i, j int) bool { return t.units[i] < t.units[j] })
	return t, nil
}

// Len returns the number of (unit, condition) rows
func (t *StatisticsTable) Len() int {
	return len(t.byKey)
}

// Get looks up the statistic for a (unit, condition) pair
func (t *StatisticsTable) Get(unit UnitID, cond ConditionID) (Statistic, bool) {
	s, ok := t.byKey[statKey{unit: unit, cond: cond}]
	return s, ok
}

// Units returns the distinct unit ids present in the table, ascending
func (t *StatisticsTable) Units() []UnitID {
	out := make([]UnitID, len(t.units))
	copy(out, t.units)
	return out
}

// Axis is the sorted set of distinct non-null values observed for one
// stimulus dimension across all conditions. Derived once per analysis
// session and never mutated.
type Axis struct {
	Dimension Dimension `json:"dimension"`
	Values    []float64 `json:"values"`
}

// Len returns the number of axis values
func (a Axis) Len() int {
	return len(a.Values)
}

// IndexOf returns the rank of v on the axis, or -1 if absent
func (a Axis) IndexOf(v float64) int {
	for i, av := range a.Values {
		if av == v {
			return i
		}
	}
	return -1
}

// DeriveAxis discovers the axis for one dimension from the condition table:
// distinct non-null values, sorted ascending.
func DeriveAxis(dim Dimension, conditions *ConditionTable) Axis {
	seen := make(map[float64]bool)
	var values []float64
	for _, id := range conditions.IDs() {
		c, _ := conditions.Get(id)
		if v, ok := c.Param(dim).Float(); ok && !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	sort.Float64s(values)
	return Axis{Dimension: dim, Values: values}
}
