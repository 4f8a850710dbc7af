package grating

import (
	"sort"
	"testing"
)

func mustConditions(t *testing.T, conditions []Condition) *ConditionTable {
	t.Helper()
	table, err := NewConditionTable(conditions)
	if err != nil {
		t.Fatalf("building condition table: %v", err)
	}
	return table
}

func TestParseScalar(t *testing.T) {
	tests := []struct {
		input    string
		wantNull bool
		want     float64
		wantErr  bool
	}{
		{"0.32", false, 0.32, false},
		{" 90 ", false, 90, false},
		{"null", true, 0, false},
		{"NULL", true, 0, false},
		{"", true, 0, false},
		{"abc", false, 0, true},
	}

	for _, test := range tests {
		s, err := ParseScalar(test.input)
		if test.wantErr {
			if err == nil {
				t.Errorf("ParseScalar(%q): expected error", test.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseScalar(%q): unexpected error %v", test.input, err)
			continue
		}
		if s.IsNull() != test.wantNull {
			t.Errorf("ParseScalar(%q): IsNull=%v, want %v", test.input, s.IsNull(), test.wantNull)
		}
		if v, ok := s.Float(); ok && v != test.want {
			t.Errorf("ParseScalar(%q): value %v, want %v", test.input, v, test.want)
		}
	}
}

func TestConditionTableRejectsDuplicates(t *testing.T) {
	_, err := NewConditionTable([]Condition{
		{ID: 1, Ori: Val(0), SF: Val(0.02), Phase: Val(0)},
		{ID: 1, Ori: Val(90), SF: Val(0.02), Phase: Val(0)},
	})
	if err == nil {
		t.Fatal("expected duplicate condition id to be rejected")
	}
}

func TestStatisticsTableRejectsUnknownCondition(t *testing.T) {
	conditions := mustConditions(t, []Condition{
		{ID: 1, Ori: Val(0), SF: Val(0.02), Phase: Val(0)},
	})
	_, err := NewStatisticsTable([]Statistic{
		{UnitID: 7, ConditionID: 99, SpikeMean: 1},
	}, conditions)
	if err == nil {
		t.Fatal("expected unknown condition reference to be rejected")
	}
}

func TestDeriveAxisSortedAndNonNull(t *testing.T) {
	conditions := mustConditions(t, []Condition{
		{ID: 1, Ori: Val(90), SF: Val(0.08), Phase: Val(0)},
		{ID: 2, Ori: Val(0), SF: Val(0.02), Phase: Val(0)},
		{ID: 3, Ori: Val(90), SF: Val(0.02), Phase: Val(0)},
		{ID: 4, Ori: Null(), SF: Null(), Phase: Null()},
	})

	ori := DeriveAxis(DimOrientation, conditions)
	if got, want := len(ori.Values), 2; got != want {
		t.Fatalf("orientation axis length: got %d, want %d", got, want)
	}
	if !sort.Float64sAreSorted(ori.Values) {
		t.Errorf("orientation axis not sorted: %v", ori.Values)
	}

	sf := DeriveAxis(DimSpatialFrequency, conditions)
	if got, want := len(sf.Values), 2; got != want {
		t.Fatalf("sf axis length: got %d, want %d", got, want)
	}
	if sf.Values[0] != 0.02 || sf.Values[1] != 0.08 {
		t.Errorf("sf axis values: %v", sf.Values)
	}
	if sf.IndexOf(0.08) != 1 {
		t.Errorf("IndexOf(0.08) = %d, want 1", sf.IndexOf(0.08))
	}
	if sf.IndexOf(0.5) != -1 {
		t.Errorf("IndexOf(0.5) = %d, want -1", sf.IndexOf(0.5))
	}
}

func TestBlankConditionIDs(t *testing.T) {
	conditions := mustConditions(t, []Condition{
		{ID: 1, Ori: Val(0), SF: Val(0.02), Phase: Val(0)},
		{ID: 2, Ori: Null(), SF: Null(), Phase: Null()},
	})
	blanks := conditions.BlankConditionIDs()
	if len(blanks) != 1 || blanks[0] != 2 {
		t.Errorf("blank condition ids: %v, want [2]", blanks)
	}
}

func TestMeasureString(t *testing.T) {
	if got := Defined(0.5).String(); got != "0.5" {
		t.Errorf("Defined(0.5).String() = %q", got)
	}
	if got := Undefined(ReasonFitFailed).String(); got != "" {
		t.Errorf("undefined measure should render empty, got %q", got)
	}
}

func TestTrialTableNilSafe(t *testing.T) {
	var table *TrialTable
	if got := table.Get(1, 1); got != nil {
		t.Errorf("nil table Get should return nil, got %v", got)
	}
}
