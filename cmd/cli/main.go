package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"neurotune/adapters/csvdata"
	"neurotune/adapters/excel"
	"neurotune/adapters/postgres"
	"neurotune/domain/core"
	"neurotune/internal"
	"neurotune/internal/analysis/tuning"
	"neurotune/internal/analysis/unitmetrics"
	"neurotune/internal/config"
	"neurotune/internal/testkit"
)

func main() {
	// Optional .env; environment wins when both are set.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "neurotune",
		Short: "Static gratings tuning-metrics analysis",
	}

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newSynthCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newAnalyzeCmd() *cobra.Command {
	var (
		conditionsPath string
		statisticsPath string
		trialsPath     string
		outPath        string
		xlsxPath       string
		parallel       bool
		save           bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compute the per-unit metrics table from session CSV tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := internal.DefaultLogger
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if conditionsPath == "" {
				conditionsPath = cfg.Paths.ConditionsFile
			}
			if statisticsPath == "" {
				statisticsPath = cfg.Paths.StatisticsFile
			}
			if trialsPath == "" {
				trialsPath = cfg.Paths.TrialsFile
			}
			if conditionsPath == "" || statisticsPath == "" {
				return fmt.Errorf("conditions and statistics tables are required")
			}

			reader := csvdata.NewReader(conditionsPath, statisticsPath, trialsPath)
			conditions, err := reader.ReadConditions()
			if err != nil {
				return err
			}
			statistics, err := reader.ReadStatistics(conditions)
			if err != nil {
				return err
			}
			trials, err := reader.ReadTrials()
			if err != nil {
				return err
			}
			log.Info("loaded %d conditions, %d statistics rows", conditions.Len(), statistics.Len())

			provider := unitmetrics.NewProvider(conditions, statistics, trials, unitmetrics.Options{
				TrialDuration: cfg.Analysis.TrialDuration,
			})
			opts := tuning.DefaultOptions()
			opts.SFDIBias = cfg.Analysis.SFDIBias
			opts.Parallel = parallel || cfg.Analysis.Parallel

			session, err := tuning.NewSession(
				core.SessionID(core.NewID()),
				tuning.Dataset{Conditions: conditions, Statistics: statistics, Trials: trials},
				provider,
				opts,
			)
			if err != nil {
				return err
			}

			table, err := session.Metrics(cmd.Context())
			if err != nil {
				return err
			}
			log.Info("run %s: %d rows, %d skipped", table.RunID, len(table.Rows), len(table.Skipped))

			if outPath != "" {
				if err := csvdata.NewWriter().Export(table, outPath); err != nil {
					return err
				}
				log.Info("wrote %s", outPath)
			}
			if xlsxPath != "" {
				if err := excel.NewExporter().Export(table, xlsxPath); err != nil {
					return err
				}
				log.Info("wrote %s", xlsxPath)
			}
			if save {
				if !cfg.Database.Enabled {
					return fmt.Errorf("--save requires DATABASE_URL")
				}
				db, err := postgres.Connect(cfg.Database.URL)
				if err != nil {
					return err
				}
				defer db.Close()
				repo := postgres.NewMetricsRepository(db)
				ctx := context.Background()
				if err := repo.EnsureSchema(ctx); err != nil {
					return err
				}
				if err := repo.SaveTable(ctx, table); err != nil {
					return err
				}
				log.Info("saved run %s", table.RunID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&conditionsPath, "conditions", "", "stimulus condition table CSV")
	cmd.Flags().StringVar(&statisticsPath, "statistics", "", "conditionwise statistics table CSV")
	cmd.Flags().StringVar(&trialsPath, "trials", "", "optional trialwise response table CSV")
	cmd.Flags().StringVar(&outPath, "out", "", "write the metrics table to this CSV path")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "write the metrics table to this xlsx path")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "compute unit rows in parallel")
	cmd.Flags().BoolVar(&save, "save", false, "persist the run to PostgreSQL (DATABASE_URL)")
	return cmd
}

func newSynthCmd() *cobra.Command {
	var (
		outDir string
		units  int
		seed   int64
	)

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Generate a synthetic session's input tables for testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := testkit.DefaultConfig()
			cfg.UnitCount = units
			cfg.Seed = seed

			session, err := testkit.NewGenerator(cfg).Generate()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			if err := writeSessionTables(session, outDir); err != nil {
				return err
			}
			internal.DefaultLogger.Info("wrote synthetic tables for %d units to %s", units, outDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "synth", "output directory")
	cmd.Flags().IntVar(&units, "units", 20, "number of units")
	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed")
	return cmd
}

// writeSessionTables dumps a synthetic session in the analyze command's input format
func writeSessionTables(session *testkit.Session, dir string) error {
	if err := writeCSV(filepath.Join(dir, "conditions.csv"),
		[]string{"condition_id", "orientation", "spatial_frequency", "phase"},
		func(w *csv.Writer) error {
			for _, id := range session.Conditions.IDs() {
				c, _ := session.Conditions.Get(id)
				if err := w.Write([]string{
					strconv.FormatInt(int64(c.ID), 10),
					c.Ori.String(), c.SF.String(), c.Phase.String(),
				}); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
		return err
	}

	return writeCSV(filepath.Join(dir, "statistics.csv"),
		[]string{"unit_id", "condition_id", "spike_mean", "spike_var", "trial_count"},
		func(w *csv.Writer) error {
			for _, unit := range session.Statistics.Units() {
				for _, condID := range session.Conditions.IDs() {
					stat, ok := session.Statistics.Get(unit, condID)
					if !ok {
						continue
					}
					if err := w.Write([]string{
						strconv.FormatInt(int64(stat.UnitID), 10),
						strconv.FormatInt(int64(stat.ConditionID), 10),
						strconv.FormatFloat(stat.SpikeMean, 'g', -1, 64),
						strconv.FormatFloat(stat.SpikeVar, 'g', -1, 64),
						strconv.Itoa(stat.TrialCount),
					}); err != nil {
						return err
					}
				}
			}
			return nil
		})
}

func writeCSV(path string, header []string, body func(*csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := body(w); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
