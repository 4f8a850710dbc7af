// Package testkit generates synthetic static-gratings sessions with known
// tuning for tests, demos and the CLI's synth command.
package testkit

import (
	"math"
	"math/rand"

	"neurotune/domain/grating"
)

// GeneratorConfig configures the synthetic session generator
type GeneratorConfig struct {
	UnitCount      int       `json:"unit_count"`
	Orientations   []float64 `json:"orientations"`    // degrees
	SpatialFreqs   []float64 `json:"spatial_freqs"`   // cycles/degree
	Phases         []float64 `json:"phases"`          // degrees
	TrialsPerCond  int       `json:"trials_per_cond"`
	BaselineRate   float64   `json:"baseline_rate"`   // mean spikes at flank conditions
	PeakRate       float64   `json:"peak_rate"`       // mean spikes at each unit's optimum
	NoiseSD        float64   `json:"noise_sd"`        // trialwise gaussian noise
	IncludeBlank   bool      `json:"include_blank"`   // add a null (blank screen) condition
	TrackRunning   bool      `json:"track_running"`   // attach running speeds to trials
	Seed           int64     `json:"seed"`
}

// DefaultConfig returns a session shaped like the standard static gratings
// protocol: six orientations, five octave-spaced spatial frequencies, four
// phases.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		UnitCount:     20,
		Orientations:  []float64{0, 30, 60, 90, 120, 150},
		SpatialFreqs:  []float64{0.02, 0.04, 0.08, 0.16, 0.32},
		Phases:        []float64{0, 90, 180, 270},
		TrialsPerCond: 15,
		BaselineRate:  1.5,
		PeakRate:      12,
		NoiseSD:       0.8,
		IncludeBlank:  true,
		TrackRunning:  true,
		Seed:          42,
	}
}

// UnitProfile records the ground-truth tuning assigned to a generated unit
type UnitProfile struct {
	UnitID    grating.UnitID `json:"unit_id"`
	PrefOri   float64        `json:"pref_ori"`
	PrefSF    float64        `json:"pref_sf"`
	PrefPhase float64        `json:"pref_phase"`
}

// Session is a fully generated synthetic session plus its ground truth
type Session struct {
	Conditions *grating.ConditionTable
	Statistics *grating.StatisticsTable
	Trials     *grating.TrialTable
	Profiles   []UnitProfile
}

// Generator produces synthetic grating sessions with deterministic seeds
type Generator struct {
	config GeneratorConfig
	rng    *rand.Rand
}

// NewGenerator creates a generator for the given config
func NewGenerator(config GeneratorConfig) *Generator {
	return &Generator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Generate builds the condition, statistics and trial tables for a synthetic
// session. Each unit gets a randomly assigned preferred orientation, spatial
// frequency and phase; responses follow a smooth tuning profile around the
// optimum with trialwise gaussian noise.
func (g *Generator) Generate() (*Session, error) {
	conditions := g.buildConditions()
	condTable, err := grating.NewConditionTable(conditions)
	if err != nil {
		return nil, err
	}

	var (
		statRows []grating.Statistic
		trials   []grating.Trial
		profiles []UnitProfile
	)
	for u := 0; u < g.config.UnitCount; u++ {
		unit := grating.UnitID(u + 1)
		profile := UnitProfile{
			UnitID:    unit,
			PrefOri:   g.pick(g.config.Orientations),
			PrefSF:    g.pick(g.config.SpatialFreqs),
			PrefPhase: g.pick(g.config.Phases),
		}
		profiles = append(profiles, profile)

		for _, cond := range conditions {
			mean := g.meanResponse(profile, cond)
			var (
				sum, sumSq float64
				n          = g.config.TrialsPerCond
			)
			for t := 0; t < n; t++ {
				resp := mean + g.rng.NormFloat64()*g.config.NoiseSD
				if resp < 0 {
					resp = 0
				}
				sum += resp
				sumSq += resp * resp

				speed := grating.Null()
				if g.config.TrackRunning {
					// Roughly a third of trials are running sweeps.
					if g.rng.Float64() < 0.33 {
						speed = grating.Val(5 + g.rng.Float64()*20)
					} else {
						speed = grating.Val(g.rng.Float64() * 0.5)
					}
				}
				trials = append(trials, grating.Trial{
					UnitID:       unit,
					ConditionID:  cond.ID,
					Response:     resp,
					RunningSpeed: speed,
				})
			}
			trialMean := sum / float64(n)
			statRows = append(statRows, grating.Statistic{
				UnitID:      unit,
				ConditionID: cond.ID,
				SpikeMean:   trialMean,
				SpikeVar:    sumSq/float64(n) - trialMean*trialMean,
				TrialCount:  n,
			})
		}
	}

	statTable, err := grating.NewStatisticsTable(statRows, condTable)
	if err != nil {
		return nil, err
	}

	return &Session{
		Conditions: condTable,
		Statistics: statTable,
		Trials:     grating.NewTrialTable(trials),
		Profiles:   profiles,
	}, nil
}

// buildConditions enumerates the full stimulus grid plus the blank condition
func (g *Generator) buildConditions() []grating.Condition {
	var conditions []grating.Condition
	id := grating.ConditionID(1)
	for _, ori := range g.config.Orientations {
		for _, sf := range g.config.SpatialFreqs {
			for _, phase := range g.config.Phases {
				conditions = append(conditions, grating.Condition{
					ID:    id,
					Ori:   grating.Val(ori),
					SF:    grating.Val(sf),
					Phase: grating.Val(phase),
				})
				id++
			}
		}
	}
	if g.config.IncludeBlank {
		conditions = append(conditions, grating.Condition{
			ID:    id,
			Ori:   grating.Null(),
			SF:    grating.Null(),
			Phase: grating.Null(),
		})
	}
	return conditions
}

// meanResponse computes a unit's expected response to one condition: the peak
// rate attenuated by circular distance from the preferred orientation, octave
// distance from the preferred spatial frequency, and phase mismatch.
func (g *Generator) meanResponse(profile UnitProfile, cond grating.Condition) float64 {
	if cond.IsBlank() {
		return g.config.BaselineRate * 0.5
	}
	ori, _ := cond.Ori.Float()
	sf, _ := cond.SF.Float()
	phase, _ := cond.Phase.Float()

	// Orientation tuning: wrapped gaussian with 30 degree bandwidth.
	dOri := math.Abs(ori - profile.PrefOri)
	if dOri > 90 {
		dOri = 180 - dOri
	}
	oriGain := math.Exp(-dOri * dOri / (2 * 30 * 30))

	// Spatial frequency tuning: gaussian over octave distance.
	dOct := math.Log2(sf / profile.PrefSF)
	sfGain := math.Exp(-dOct * dOct / (2 * 1.2 * 1.2))

	// Phase tuning: mild cosine modulation around the preferred phase.
	dPhase := (phase - profile.PrefPhase) * math.Pi / 180
	phaseGain := 0.75 + 0.25*math.Cos(dPhase)

	return g.config.BaselineRate + (g.config.PeakRate-g.config.BaselineRate)*oriGain*sfGain*phaseGain
}

// pick returns a uniformly chosen element
func (g *Generator) pick(values []float64) float64 {
	return values[g.rng.Intn(len(values))]
}
