package grating

import "neurotune/domain/core"

// SFFit holds the spatial-frequency curve-fit outputs for one unit. All four
// fields are undefined when the fit fails; the cutoffs are independently
// undefined when their half-max crossing is not strictly inside the sampled
// index range.
type SFFit struct {
	Index      Measure `json:"fit_sf_index"`
	Freq       Measure `json:"fit_sf"`
	LowCutoff  Measure `json:"sf_low_cutoff"`
	HighCutoff Measure `json:"sf_high_cutoff"`
}

// FailedSFFit returns an SFFit with every field undefined for the given reason
func FailedSFFit(reason UndefinedReason) SFFit {
	return SFFit{
		Index:      Undefined(reason),
		Freq:       Undefined(reason),
		LowCutoff:  Undefined(reason),
		HighCutoff: Undefined(reason),
	}
}

// MetricsRow is one unit's row of the results table. Created once per
// analysis run and immutable afterward.
type MetricsRow struct {
	UnitID UnitID `json:"unit_id"`

	// Preferred stimulus parameters (argmax of mean-of-means response)
	PrefSF    float64 `json:"pref_sf"`
	PrefOri   float64 `json:"pref_ori"`
	PrefPhase float64 `json:"pref_phase"`

	// Global orientation selectivity index, in [0,1] when defined
	GlobalOSI Measure `json:"g_osi"`

	// Spatial-frequency tuning curve fit
	SFFit SFFit `json:"sf_fit"`

	// Spatial-frequency discrimination index
	SFDI Measure `json:"sfdi"`

	// Collaborator-supplied metrics
	TimeToPeak         Measure `json:"time_to_peak"`
	FiringRate         Measure `json:"firing_rate"`
	Reliability        Measure `json:"reliability"`
	FanoFactor         Measure `json:"fano"`
	LifetimeSparseness Measure `json:"lifetime_sparseness"`
	RunPValue          Measure `json:"run_pval"`
	RunModulation      Measure `json:"run_mod"`
}

// MetricsTable is the assembled results table, one row per unit in the
// caller-supplied unit order. Units whose base data was missing carry no row
// and are listed in Skipped with the failure message.
type MetricsTable struct {
	RunID     core.RunID        `json:"run_id"`
	SessionID core.SessionID    `json:"session_id"`
	CreatedAt core.Timestamp    `json:"created_at"`
	Rows      []MetricsRow      `json:"rows"`
	Skipped   map[UnitID]string `json:"skipped,omitempty"`
}

// Row returns the row for a unit, if one was produced
func (t *MetricsTable) Row(unit UnitID) (MetricsRow, bool) {
	for _, r := range t.Rows {
		if r.UnitID == unit {
			return r, true
		}
	}
	return MetricsRow{}, false
}

// Columns returns the output column names in table order
func Columns() []string {
	return []string{
		"unit_id",
		"pref_sf", "pref_ori", "pref_phase",
		"g_osi",
		"fit_sf_index", "fit_sf", "sf_low_cutoff", "sf_high_cutoff",
		"sfdi",
		"time_to_peak", "firing_rate", "reliability", "fano",
		"lifetime_sparseness", "run_pval", "run_mod",
	}
}
