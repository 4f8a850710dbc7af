// Package csvdata reads the session input tables from CSV files and writes
// metrics tables back out. The formats are the simple record schemas of the
// condition, statistics and trial tables, not the original recording
// containers.
package csvdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"neurotune/domain/grating"
	"neurotune/internal/errors"
)

// Reader loads the session tables from CSV files. Implements ports.TableReader.
type Reader struct {
	ConditionsPath string
	StatisticsPath string
	TrialsPath     string // optional
}

// NewReader creates a reader over the given file paths; trialsPath may be empty
func NewReader(conditionsPath, statisticsPath, trialsPath string) *Reader {
	return &Reader{
		ConditionsPath: conditionsPath,
		StatisticsPath: statisticsPath,
		TrialsPath:     trialsPath,
	}
}

// ReadConditions loads the stimulus condition table.
// Expected header: condition_id,orientation,spatial_frequency,phase
func (r *Reader) ReadConditions() (*grating.ConditionTable, error) {
	records, err := readRecords(r.ConditionsPath, 4)
	if err != nil {
		return nil, errors.WithCode(errors.CodeIngest, err)
	}

	conditions := make([]grating.Condition, 0, len(records))
	for i, rec := range records {
		id, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "conditions row %d: bad condition_id %q", i+2, rec[0])
		}
		ori, err := grating.ParseScalar(rec[1])
		if err != nil {
			return nil, errors.Wrapf(err, "conditions row %d", i+2)
		}
		sf, err := grating.ParseScalar(rec[2])
		if err != nil {
			return nil, errors.Wrapf(err, "conditions row %d", i+2)
		}
		phase, err := grating.ParseScalar(rec[3])
		if err != nil {
			return nil, errors.Wrapf(err, "conditions row %d", i+2)
		}
		conditions = append(conditions, grating.Condition{
			ID:    grating.ConditionID(id),
			Ori:   ori,
			SF:    sf,
			Phase: phase,
		})
	}

	table, err := grating.NewConditionTable(conditions)
	if err != nil {
		return nil, errors.WithCode(errors.CodeIngest, err)
	}
	return table, nil
}

// ReadStatistics loads the conditionwise statistics table, validating every
// row against the condition table.
// Expected header: unit_id,condition_id,spike_mean,spike_var,trial_count
func (r *Reader) ReadStatistics(conditions *grating.ConditionTable) (*grating.StatisticsTable, error) {
	records, err := readRecords(r.StatisticsPath, 5)
	if err != nil {
		return nil, errors.WithCode(errors.CodeIngest, err)
	}

	rows := make([]grating.Statistic, 0, len(records))
	for i, rec := range records {
		unit, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "statistics row %d: bad unit_id %q", i+2, rec[0])
		}
		cond, err := strconv.ParseInt(rec[1], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "statistics row %d: bad condition_id %q", i+2, rec[1])
		}
		mean, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "statistics row %d: bad spike_mean %q", i+2, rec[2])
		}
		variance, err := strconv.ParseFloat(rec[3], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "statistics row %d: bad spike_var %q", i+2, rec[3])
		}
		count, err := strconv.Atoi(rec[4])
		if err != nil {
			return nil, errors.Wrapf(err, "statistics row %d: bad trial_count %q", i+2, rec[4])
		}
		rows = append(rows, grating.Statistic{
			UnitID:      grating.UnitID(unit),
			ConditionID: grating.ConditionID(cond),
			SpikeMean:   mean,
			SpikeVar:    variance,
			TrialCount:  count,
		})
	}

	table, err := grating.NewStatisticsTable(rows, conditions)
	if err != nil {
		return nil, errors.WithCode(errors.CodeIngest, err)
	}
	return table, nil
}

// ReadTrials loads the optional trialwise response table; returns nil when no
// trials path was configured.
// Expected header: unit_id,condition_id,response,running_speed
func (r *Reader) ReadTrials() (*grating.TrialTable, error) {
	if r.TrialsPath == "" {
		return nil, nil
	}
	records, err := readRecords(r.TrialsPath, 4)
	if err != nil {
		return nil, errors.WithCode(errors.CodeIngest, err)
	}

	trials := make([]grating.Trial, 0, len(records))
	for i, rec := range records {
		unit, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "trials row %d: bad unit_id %q", i+2, rec[0])
		}
		cond, err := strconv.ParseInt(rec[1], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "trials row %d: bad condition_id %q", i+2, rec[1])
		}
		resp, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "trials row %d: bad response %q", i+2, rec[2])
		}
		speed, err := grating.ParseScalar(rec[3])
		if err != nil {
			return nil, errors.Wrapf(err, "trials row %d", i+2)
		}
		trials = append(trials, grating.Trial{
			UnitID:       grating.UnitID(unit),
			ConditionID:  grating.ConditionID(cond),
			Response:     resp,
			RunningSpeed: speed,
		})
	}
	return grating.NewTrialTable(trials), nil
}

// readRecords reads a CSV file, skips the header, and checks the column count
func readRecords(path string, wantCols int) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = wantCols

	// Header row
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%s: empty file", path)
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}
