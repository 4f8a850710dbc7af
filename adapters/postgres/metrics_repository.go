// Package postgres persists assembled metrics tables per analysis run.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"neurotune/domain/core"
	"neurotune/domain/grating"
	"neurotune/internal/errors"
)

// MetricsRepositoryImpl implements ports.MetricsRepository for PostgreSQL
type MetricsRepositoryImpl struct {
	db *sqlx.DB
}

// NewMetricsRepository creates a new PostgreSQL metrics repository
func NewMetricsRepository(db *sqlx.DB) *MetricsRepositoryImpl {
	return &MetricsRepositoryImpl{db: db}
}

// Connect opens a PostgreSQL connection pool for the repository
func Connect(databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, errors.WithCode(errors.CodeStorage, err)
	}
	return db, nil
}

// EnsureSchema creates the repository tables when they do not exist
func (r *MetricsRepositoryImpl) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS analysis_runs (
			run_id     TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			skipped    JSONB
		);
		CREATE TABLE IF NOT EXISTS unit_metrics (
			run_id  TEXT NOT NULL REFERENCES analysis_runs(run_id) ON DELETE CASCADE,
			unit_id BIGINT NOT NULL,
			seq     INT NOT NULL,
			row     JSONB NOT NULL,
			PRIMARY KEY (run_id, unit_id)
		);
	`)
	return errors.WithCode(errors.CodeStorage, err)
}

// SaveTable persists a metrics table and its row order in one transaction
func (r *MetricsRepositoryImpl) SaveTable(ctx context.Context, table *grating.MetricsTable) error {
	skipped, err := json.Marshal(table.Skipped)
	if err != nil {
		return errors.WithCode(errors.CodeStorage, err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.WithCode(errors.CodeStorage, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO analysis_runs (run_id, session_id, created_at, skipped)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (run_id) DO UPDATE
		SET session_id = EXCLUDED.session_id,
		    created_at = EXCLUDED.created_at,
		    skipped    = EXCLUDED.skipped
	`, table.RunID.String(), table.SessionID.String(), table.CreatedAt.Time(), skipped)
	if err != nil {
		return errors.WithCode(errors.CodeStorage, err)
	}

	for seq, row := range table.Rows {
		payload, err := json.Marshal(row)
		if err != nil {
			return errors.WithCode(errors.CodeStorage, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO unit_metrics (run_id, unit_id, seq, row)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (run_id, unit_id) DO UPDATE
			SET seq = EXCLUDED.seq, row = EXCLUDED.row
		`, table.RunID.String(), int64(row.UnitID), seq, payload)
		if err != nil {
			return errors.WithCode(errors.CodeStorage, err)
		}
	}

	return errors.WithCode(errors.CodeStorage, tx.Commit())
}

// GetTable loads a metrics table by run id, restoring row order
func (r *MetricsRepositoryImpl) GetTable(ctx context.Context, runID core.RunID) (*grating.MetricsTable, error) {
	var run struct {
		RunID     string    `db:"run_id"`
		SessionID string    `db:"session_id"`
		CreatedAt time.Time `db:"created_at"`
		Skipped   []byte    `db:"skipped"`
	}
	err := r.db.GetContext(ctx, &run, `
		SELECT run_id, session_id, created_at, skipped
		FROM analysis_runs WHERE run_id = $1
	`, runID.String())
	if err == sql.ErrNoRows {
		return nil, core.ErrRunNotFound
	}
	if err != nil {
		return nil, errors.WithCode(errors.CodeStorage, err)
	}

	table := &grating.MetricsTable{
		RunID:     core.RunID(run.RunID),
		SessionID: core.SessionID(run.SessionID),
		CreatedAt: core.NewTimestamp(run.CreatedAt),
	}
	if len(run.Skipped) > 0 {
		if err := json.Unmarshal(run.Skipped, &table.Skipped); err != nil {
			return nil, errors.WithCode(errors.CodeStorage, err)
		}
	}

	var payloads [][]byte
	err = r.db.SelectContext(ctx, &payloads, `
		SELECT row FROM unit_metrics WHERE run_id = $1 ORDER BY seq
	`, runID.String())
	if err != nil {
		return nil, errors.WithCode(errors.CodeStorage, err)
	}
	for _, payload := range payloads {
		var row grating.MetricsRow
		if err := json.Unmarshal(payload, &row); err != nil {
			return nil, errors.WithCode(errors.CodeStorage, err)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// ListRuns returns every stored run id, newest first
func (r *MetricsRepositoryImpl) ListRuns(ctx context.Context) ([]core.RunID, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `
		SELECT run_id FROM analysis_runs ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, errors.WithCode(errors.CodeStorage, err)
	}
	runs := make([]core.RunID, len(ids))
	for i, id := range ids {
		runs[i] = core.RunID(id)
	}
	return runs, nil
}
