package grating

import "strconv"

// UndefinedReason explains why a measure has no value.
type UndefinedReason string

const (
	// ReasonFitFailed means the curve fit did not converge or hit a numerical error.
	ReasonFitFailed UndefinedReason = "fit_failed"
	// ReasonCutoffAtBoundary means the half-max crossing landed on an extreme
	// boundary sample of the dense index grid.
	ReasonCutoffAtBoundary UndefinedReason = "cutoff_at_boundary"
	// ReasonClosedSide means the cutoff lies on the closed side of a boundary
	// preferred index and is not estimated.
	ReasonClosedSide UndefinedReason = "closed_boundary_side"
	// ReasonDegenerate means the input was degenerate (all-zero responses,
	// zero denominator, too few trials).
	ReasonDegenerate UndefinedReason = "degenerate_input"
	// ReasonNoData means the collaborator was not given the data this metric needs.
	ReasonNoData UndefinedReason = "no_data"
)

// Measure is a metric cell that is either a defined value or explicitly
// undefined with a reason. Undefined cells are never encoded as NaN; every
// consumer must check Defined (or use Float) before reading Value.
type Measure struct {
	Value   float64         `json:"value"`
	Defined bool            `json:"defined"`
	Reason  UndefinedReason `json:"reason,omitempty"`
}

// Defined creates a measure carrying a value
func Defined(v float64) Measure {
	return Measure{Value: v, Defined: true}
}

// Undefined creates a measure with no value and the given reason
func Undefined(reason UndefinedReason) Measure {
	return Measure{Reason: reason}
}

// Float returns the value and whether one is present
func (m Measure) Float() (float64, bool) {
	return m.Value, m.Defined
}

// String renders the measure for tables; undefined cells are empty
func (m Measure) String() string {
	if !m.Defined {
		return ""
	}
	return strconv.FormatFloat(m.Value, 'g', -1, 64)
}
