package ports

import (
	"context"

	"neurotune/domain/core"
	"neurotune/domain/grating"
)

// TableReader loads the session input tables from an external source.
// Implementations validate the table invariants (unique condition ids, every
// statistic keyed by an existing condition) at load time.
type TableReader interface {
	ReadConditions() (*grating.ConditionTable, error)
	ReadStatistics(conditions *grating.ConditionTable) (*grating.StatisticsTable, error)
}

// MetricsRepository persists assembled metrics tables per analysis run.
type MetricsRepository interface {
	SaveTable(ctx context.Context, table *grating.MetricsTable) error
	GetTable(ctx context.Context, runID core.RunID) (*grating.MetricsTable, error)
	ListRuns(ctx context.Context) ([]core.RunID, error)
}

// MetricsExporter writes an assembled metrics table to an external format.
type MetricsExporter interface {
	Export(table *grating.MetricsTable, path string) error
}
