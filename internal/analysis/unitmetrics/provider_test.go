package unitmetrics

import (
	"math"
	"testing"

	"neurotune/domain/grating"
)

func testConditions(t *testing.T) *grating.ConditionTable {
	t.Helper()
	table, err := grating.NewConditionTable([]grating.Condition{
		{ID: 1, Ori: grating.Val(0), SF: grating.Val(0.02), Phase: grating.Val(0)},
		{ID: 2, Ori: grating.Val(90), SF: grating.Val(0.02), Phase: grating.Val(0)},
		{ID: 3, Ori: grating.Null(), SF: grating.Null(), Phase: grating.Null()},
	})
	if err != nil {
		t.Fatalf("conditions: %v", err)
	}
	return table
}

func testProvider(t *testing.T, rows []grating.Statistic, trials *grating.TrialTable) *Provider {
	t.Helper()
	conditions := testConditions(t)
	statistics, err := grating.NewStatisticsTable(rows, conditions)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	return NewProvider(conditions, statistics, trials, Options{})
}

func TestOverallFiringRate(t *testing.T) {
	// (4*10 + 2*10) spikes over 20 trials of 0.25 s each: 12 spikes/s.
	p := testProvider(t, []grating.Statistic{
		{UnitID: 1, ConditionID: 1, SpikeMean: 4, SpikeVar: 1, TrialCount: 10},
		{UnitID: 1, ConditionID: 2, SpikeMean: 2, SpikeVar: 1, TrialCount: 10},
	}, nil)

	rate, ok := p.OverallFiringRate(1).Float()
	if !ok {
		t.Fatal("firing rate undefined")
	}
	if math.Abs(rate-12) > 1e-12 {
		t.Errorf("rate = %v, want 12", rate)
	}

	if m := p.OverallFiringRate(99); m.Defined {
		t.Errorf("unknown unit should be undefined, got %v", m.Value)
	}
}

func TestFanoFactor(t *testing.T) {
	p := testProvider(t, []grating.Statistic{
		{UnitID: 1, ConditionID: 1, SpikeMean: 4, SpikeVar: 6, TrialCount: 10},
		{UnitID: 1, ConditionID: 2, SpikeMean: 0, SpikeVar: 0, TrialCount: 10},
	}, nil)

	ff, ok := p.FanoFactor(1, 1).Float()
	if !ok {
		t.Fatal("fano factor undefined")
	}
	if math.Abs(ff-1.5) > 1e-12 {
		t.Errorf("fano = %v, want 1.5", ff)
	}

	if m := p.FanoFactor(1, 2); m.Defined || m.Reason != grating.ReasonDegenerate {
		t.Errorf("zero-mean condition should be degenerate, got %+v", m)
	}
	if m := p.FanoFactor(1, 99); m.Defined || m.Reason != grating.ReasonNoData {
		t.Errorf("missing statistic should be no-data, got %+v", m)
	}
}

func TestLifetimeSparseness(t *testing.T) {
	// Flat profile across non-blank conditions: sparseness exactly 0. The
	// blank condition response must not count.
	flat := testProvider(t, []grating.Statistic{
		{UnitID: 1, ConditionID: 1, SpikeMean: 5, SpikeVar: 1, TrialCount: 10},
		{UnitID: 1, ConditionID: 2, SpikeMean: 5, SpikeVar: 1, TrialCount: 10},
		{UnitID: 1, ConditionID: 3, SpikeMean: 50, SpikeVar: 1, TrialCount: 10},
	}, nil)
	ls, ok := flat.LifetimeSparseness(1).Float()
	if !ok {
		t.Fatal("sparseness undefined")
	}
	if math.Abs(ls) > 1e-12 {
		t.Errorf("flat sparseness = %v, want 0", ls)
	}

	// All response in one condition: sparseness exactly 1 for n=2.
	peaked := testProvider(t, []grating.Statistic{
		{UnitID: 1, ConditionID: 1, SpikeMean: 10, SpikeVar: 1, TrialCount: 10},
		{UnitID: 1, ConditionID: 2, SpikeMean: 0, SpikeVar: 1, TrialCount: 10},
	}, nil)
	ls, ok = peaked.LifetimeSparseness(1).Float()
	if !ok {
		t.Fatal("sparseness undefined")
	}
	if math.Abs(ls-1) > 1e-12 {
		t.Errorf("peaked sparseness = %v, want 1", ls)
	}

	// A single recorded condition is not enough.
	single := testProvider(t, []grating.Statistic{
		{UnitID: 1, ConditionID: 1, SpikeMean: 10, SpikeVar: 1, TrialCount: 10},
	}, nil)
	if m := single.LifetimeSparseness(1); m.Defined || m.Reason != grating.ReasonNoData {
		t.Errorf("single condition should be no-data, got %+v", m)
	}
}

func TestTimeToPeak(t *testing.T) {
	p := testProvider(t, []grating.Statistic{
		{UnitID: 1, ConditionID: 1, SpikeMean: 4, SpikeVar: 1, TrialCount: 10},
	}, nil)

	if m := p.TimeToPeak(1, 1); m.Defined || m.Reason != grating.ReasonNoData {
		t.Errorf("no PSTH registered: got %+v", m)
	}

	// Trial-averaged histogram peaks in bin 3 of 5.
	p.SetPSTH(1, 1, PSTH{BinWidth: 0.01, Trials: [][]float64{
		{0, 1, 2, 5, 1},
		{1, 0, 3, 7, 2},
	}})
	ttp, ok := p.TimeToPeak(1, 1).Float()
	if !ok {
		t.Fatal("time to peak undefined")
	}
	if math.Abs(ttp-0.03) > 1e-12 {
		t.Errorf("time to peak = %v, want 0.03", ttp)
	}
}

func TestReliability(t *testing.T) {
	p := testProvider(t, []grating.Statistic{
		{UnitID: 1, ConditionID: 1, SpikeMean: 4, SpikeVar: 1, TrialCount: 10},
	}, nil)

	// Identical trials correlate perfectly.
	p.SetPSTH(1, 1, PSTH{BinWidth: 0.01, Trials: [][]float64{
		{0, 2, 5, 1},
		{0, 2, 5, 1},
		{0, 2, 5, 1},
	}})
	r, ok := p.Reliability(1, 1).Float()
	if !ok {
		t.Fatal("reliability undefined")
	}
	if math.Abs(r-1) > 1e-12 {
		t.Errorf("identical-trial reliability = %v, want 1", r)
	}

	// Anti-correlated trials drive the mean negative.
	p.SetPSTH(1, 2, PSTH{BinWidth: 0.01, Trials: [][]float64{
		{0, 1, 2, 3},
		{3, 2, 1, 0},
	}})
	r, ok = p.Reliability(1, 2).Float()
	if !ok {
		t.Fatal("reliability undefined")
	}
	if math.Abs(r+1) > 1e-12 {
		t.Errorf("anti-correlated reliability = %v, want -1", r)
	}

	// Flat trials have no variance: no valid pair.
	p.SetPSTH(2, 1, PSTH{BinWidth: 0.01, Trials: [][]float64{
		{2, 2, 2},
		{2, 2, 2},
	}})
	if m := p.Reliability(2, 1); m.Defined || m.Reason != grating.ReasonDegenerate {
		t.Errorf("flat trials should be degenerate, got %+v", m)
	}

	// One trial is not enough.
	p.SetPSTH(3, 1, PSTH{BinWidth: 0.01, Trials: [][]float64{{1, 2, 3}}})
	if m := p.Reliability(3, 1); m.Defined || m.Reason != grating.ReasonNoData {
		t.Errorf("single trial should be no-data, got %+v", m)
	}
}

func TestRunningModulation(t *testing.T) {
	trials := grating.NewTrialTable([]grating.Trial{
		{UnitID: 1, ConditionID: 1, Response: 10, RunningSpeed: grating.Val(12)},
		{UnitID: 1, ConditionID: 1, Response: 12, RunningSpeed: grating.Val(8)},
		{UnitID: 1, ConditionID: 1, Response: 11, RunningSpeed: grating.Val(15)},
		{UnitID: 1, ConditionID: 1, Response: 2, RunningSpeed: grating.Val(0)},
		{UnitID: 1, ConditionID: 1, Response: 3, RunningSpeed: grating.Val(0.5)},
		{UnitID: 1, ConditionID: 1, Response: 4, RunningSpeed: grating.Val(0)},
		{UnitID: 1, ConditionID: 1, Response: 99, RunningSpeed: grating.Null()},
	})
	p := testProvider(t, []grating.Statistic{
		{UnitID: 1, ConditionID: 1, SpikeMean: 7, SpikeVar: 1, TrialCount: 7},
	}, trials)

	pval, mod := p.RunningModulation(1, 1)
	pv, ok := pval.Float()
	if !ok {
		t.Fatalf("p-value undefined: %v", pval.Reason)
	}
	if pv < 0 || pv > 1 {
		t.Errorf("p-value %v outside [0,1]", pv)
	}
	if pv > 0.05 {
		t.Errorf("clearly separated groups should be significant, p = %v", pv)
	}
	m, ok := mod.Float()
	if !ok {
		t.Fatalf("modulation undefined: %v", mod.Reason)
	}
	// run mean 11, stationary mean 3: (11-3)/(11+3).
	if math.Abs(m-8.0/14.0) > 1e-12 {
		t.Errorf("modulation = %v, want %v", m, 8.0/14.0)
	}

	// Fewer than two trials in a group: undefined, untracked speeds ignored.
	sparse := grating.NewTrialTable([]grating.Trial{
		{UnitID: 2, ConditionID: 1, Response: 10, RunningSpeed: grating.Val(12)},
		{UnitID: 2, ConditionID: 1, Response: 2, RunningSpeed: grating.Val(0)},
		{UnitID: 2, ConditionID: 1, Response: 3, RunningSpeed: grating.Val(0)},
	})
	p2 := testProvider(t, []grating.Statistic{
		{UnitID: 2, ConditionID: 1, SpikeMean: 5, SpikeVar: 1, TrialCount: 3},
	}, sparse)
	pval, mod = p2.RunningModulation(2, 1)
	if pval.Defined || mod.Defined {
		t.Errorf("one running trial should leave modulation undefined, got %+v / %+v", pval, mod)
	}
}
