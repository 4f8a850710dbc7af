package tuning

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurotune/domain/core"
	"neurotune/domain/grating"
)

// threeUnitSession builds the canonical end-to-end fixture over the 2x2 grid:
// unit 1 is tuned to ori 0 / sf 0.02, unit 2 responds uniformly, and unit 3
// is missing its sf 0.04 statistics entirely.
func threeUnitSession(t *testing.T, opts Options) *Session {
	t.Helper()
	conditions := gridConditions(t)
	statistics, err := grating.NewStatisticsTable([]grating.Statistic{
		statRow(1, 1, 10), statRow(1, 2, 3), statRow(1, 3, 2), statRow(1, 4, 1),
		statRow(2, 1, 5), statRow(2, 2, 5), statRow(2, 3, 5), statRow(2, 4, 5),
		statRow(3, 1, 4), statRow(3, 3, 2),
	}, conditions)
	require.NoError(t, err)

	trials := grating.NewTrialTable([]grating.Trial{
		{UnitID: 1, ConditionID: 1, Response: 5, RunningSpeed: grating.Null()},
		{UnitID: 1, ConditionID: 1, Response: 7, RunningSpeed: grating.Null()},
		{UnitID: 1, ConditionID: 1, Response: 6, RunningSpeed: grating.Null()},
		{UnitID: 1, ConditionID: 1, Response: 6, RunningSpeed: grating.Null()},
		{UnitID: 1, ConditionID: 2, Response: 1, RunningSpeed: grating.Null()},
		{UnitID: 1, ConditionID: 2, Response: 3, RunningSpeed: grating.Null()},
		{UnitID: 1, ConditionID: 2, Response: 2, RunningSpeed: grating.Null()},
		{UnitID: 1, ConditionID: 2, Response: 2, RunningSpeed: grating.Null()},
	})

	session, err := NewSession("end-to-end", Dataset{
		Conditions: conditions,
		Statistics: statistics,
		Trials:     trials,
	}, nil, opts)
	require.NoError(t, err)
	return session
}

func TestSessionMetricsEndToEnd(t *testing.T) {
	session := threeUnitSession(t, DefaultOptions())

	table, err := session.Metrics(context.Background())
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, session.RunID(), table.RunID)

	// Unit 3 lacks every sf 0.04 statistic: fatal for that unit only.
	require.Contains(t, table.Skipped, grating.UnitID(3))
	_, ok := table.Row(3)
	assert.False(t, ok)

	rowA, ok := table.Row(1)
	require.True(t, ok)
	assert.Equal(t, 0.0, rowA.PrefOri)
	assert.Equal(t, 0.02, rowA.PrefSF)
	assert.Equal(t, 0.0, rowA.PrefPhase)

	rowU, ok := table.Row(2)
	require.True(t, ok)

	// A tuned unit is more orientation-selective than a uniform responder.
	osiA, defined := rowA.GlobalOSI.Float()
	require.True(t, defined)
	osiU, defined := rowU.GlobalOSI.Float()
	require.True(t, defined)
	assert.Greater(t, osiA, osiU)
	assert.InDelta(t, 0.70710678, osiU, 1e-8)

	// Two sampled frequencies put every preferred index on a boundary: the
	// raw axis value is reported and the exponential fit is underdetermined.
	freq, defined := rowA.SFFit.Freq.Float()
	require.True(t, defined)
	assert.Equal(t, 0.02, freq)
	assert.Equal(t, grating.ReasonClosedSide, rowA.SFFit.LowCutoff.Reason)
	assert.Equal(t, grating.ReasonFitFailed, rowA.SFFit.HighCutoff.Reason)

	// Unit 1 has sweep trials, unit 2 does not.
	sfdi, defined := rowA.SFDI.Float()
	require.True(t, defined)
	assert.Greater(t, sfdi, 0.0)
	assert.Less(t, sfdi, 1.0)
	assert.Equal(t, grating.ReasonNoData, rowU.SFDI.Reason)

	// No collaborator provider was attached.
	assert.Equal(t, grating.ReasonNoData, rowA.FiringRate.Reason)
	assert.Equal(t, grating.ReasonNoData, rowA.TimeToPeak.Reason)
	assert.Equal(t, grating.ReasonNoData, rowA.RunPValue.Reason)
}

func TestSessionMetricsCached(t *testing.T) {
	session := threeUnitSession(t, DefaultOptions())
	ctx := context.Background()

	first, err := session.Metrics(ctx)
	require.NoError(t, err)
	second, err := session.Metrics(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestSessionMetricsForOrder(t *testing.T) {
	session := threeUnitSession(t, DefaultOptions())

	table, err := session.MetricsFor(context.Background(), []grating.UnitID{2, 1})
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, grating.UnitID(2), table.Rows[0].UnitID)
	assert.Equal(t, grating.UnitID(1), table.Rows[1].UnitID)
}

func TestSessionMetricsParallelMatchesSequential(t *testing.T) {
	opts := DefaultOptions()
	opts.Parallel = true
	parallel := threeUnitSession(t, opts)
	sequential := threeUnitSession(t, DefaultOptions())
	ctx := context.Background()

	pt, err := parallel.Metrics(ctx)
	require.NoError(t, err)
	st, err := sequential.Metrics(ctx)
	require.NoError(t, err)

	require.Equal(t, len(st.Rows), len(pt.Rows))
	for i := range st.Rows {
		assert.Equal(t, st.Rows[i].UnitID, pt.Rows[i].UnitID)
		assert.Equal(t, st.Rows[i].GlobalOSI, pt.Rows[i].GlobalOSI)
		assert.Equal(t, st.Rows[i].SFFit, pt.Rows[i].SFFit)
		assert.Equal(t, st.Rows[i].SFDI, pt.Rows[i].SFDI)
	}
	assert.Equal(t, st.Skipped, pt.Skipped)
}

func TestSessionMetricsEmptyUnitSet(t *testing.T) {
	session := threeUnitSession(t, DefaultOptions())
	_, err := session.MetricsFor(context.Background(), nil)
	assert.ErrorIs(t, err, core.ErrEmptyUnitSet)
}

func TestSessionMetricsCancelledContext(t *testing.T) {
	session := threeUnitSession(t, DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := session.MetricsFor(ctx, []grating.UnitID{1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSessionRejectsEmptyTables(t *testing.T) {
	conditions := gridConditions(t)
	statistics, err := grating.NewStatisticsTable(nil, conditions)
	require.NoError(t, err)

	_, err = NewSession("empty", Dataset{Conditions: conditions, Statistics: statistics}, nil, DefaultOptions())
	assert.Error(t, err)
}
