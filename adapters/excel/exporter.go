// Package excel exports metrics tables as xlsx workbooks.
package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"neurotune/domain/grating"
	"neurotune/internal/errors"
)

const metricsSheet = "Metrics"

// Exporter writes a metrics table to an xlsx workbook, one row per unit.
// Undefined measures are left as blank cells. Implements ports.MetricsExporter.
type Exporter struct{}

// NewExporter creates an xlsx metrics exporter
func NewExporter() *Exporter {
	return &Exporter{}
}

// Export writes the metrics table to path
func (e *Exporter) Export(table *grating.MetricsTable, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", metricsSheet); err != nil {
		return errors.WithCode(errors.CodeExport, err)
	}

	for col, name := range grating.Columns() {
		if err := setCell(f, col+1, 1, name); err != nil {
			return err
		}
	}

	for i, row := range table.Rows {
		r := i + 2
		values := []interface{}{
			int64(row.UnitID),
			row.PrefSF, row.PrefOri, row.PrefPhase,
			measureCell(row.GlobalOSI),
			measureCell(row.SFFit.Index),
			measureCell(row.SFFit.Freq),
			measureCell(row.SFFit.LowCutoff),
			measureCell(row.SFFit.HighCutoff),
			measureCell(row.SFDI),
			measureCell(row.TimeToPeak),
			measureCell(row.FiringRate),
			measureCell(row.Reliability),
			measureCell(row.FanoFactor),
			measureCell(row.LifetimeSparseness),
			measureCell(row.RunPValue),
			measureCell(row.RunModulation),
		}
		for col, v := range values {
			if v == nil {
				continue
			}
			if err := setCell(f, col+1, r, v); err != nil {
				return err
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return errors.Wrapf(err, "saving metrics workbook to %s", path)
	}
	return nil
}

// measureCell returns the cell value for a measure, nil when undefined
func measureCell(m grating.Measure) interface{} {
	if v, ok := m.Float(); ok {
		return v
	}
	return nil
}

func setCell(f *excelize.File, col, row int, v interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return errors.WithCode(errors.CodeExport, err)
	}
	if err := f.SetCellValue(metricsSheet, cell, v); err != nil {
		return errors.WithCode(errors.CodeExport, fmt.Errorf("cell %s: %w", cell, err))
	}
	return nil
}
