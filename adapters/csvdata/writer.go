package csvdata

import (
	"encoding/csv"
	"os"
	"strconv"

	"neurotune/domain/grating"
	"neurotune/internal/errors"
)

// Writer exports a metrics table as CSV. Undefined measures render as empty
// cells. Implements ports.MetricsExporter.
type Writer struct{}

// NewWriter creates a CSV metrics exporter
func NewWriter() *Writer {
	return &Writer{}
}

// Export writes the metrics table to path, one row per unit plus a header
func (w *Writer) Export(table *grating.MetricsTable, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.WithCode(errors.CodeExport, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(grating.Columns()); err != nil {
		return errors.WithCode(errors.CodeExport, err)
	}
	for _, row := range table.Rows {
		record := []string{
			strconv.FormatInt(int64(row.UnitID), 10),
			formatFloat(row.PrefSF),
			formatFloat(row.PrefOri),
			formatFloat(row.PrefPhase),
			row.GlobalOSI.String(),
			row.SFFit.Index.String(),
			row.SFFit.Freq.String(),
			row.SFFit.LowCutoff.String(),
			row.SFFit.HighCutoff.String(),
			row.SFDI.String(),
			row.TimeToPeak.String(),
			row.FiringRate.String(),
			row.Reliability.String(),
			row.FanoFactor.String(),
			row.LifetimeSparseness.String(),
			row.RunPValue.String(),
			row.RunModulation.String(),
		}
		if err := cw.Write(record); err != nil {
			return errors.WithCode(errors.CodeExport, err)
		}
	}
	cw.Flush()
	return errors.WithCode(errors.CodeExport, cw.Error())
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
