package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"neurotune/adapters/api"
	"neurotune/adapters/csvdata"
	"neurotune/domain/core"
	"neurotune/domain/grating"
	"neurotune/internal"
	"neurotune/internal/analysis/tuning"
	"neurotune/internal/analysis/unitmetrics"
	"neurotune/internal/config"
)

// Serves one analysis run: loads the session tables named by the environment,
// computes the metrics table once, and exposes it read-only over HTTP.
func main() {
	_ = godotenv.Load()
	log := internal.DefaultLogger

	if err := run(log); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
}

func run(log *internal.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Paths.ConditionsFile == "" || cfg.Paths.StatisticsFile == "" {
		return fmt.Errorf("CONDITIONS_FILE and STATISTICS_FILE are required")
	}

	reader := csvdata.NewReader(cfg.Paths.ConditionsFile, cfg.Paths.StatisticsFile, cfg.Paths.TrialsFile)
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

	provider := unitmetrics.NewProvider(conditions, statistics, trials, unitmetrics.Options{
		TrialDuration: cfg.Analysis.TrialDuration,
	})
	opts := tuning.DefaultOptions()
	opts.SFDIBias = cfg.Analysis.SFDIBias
	opts.Parallel = cfg.Analysis.Parallel

	session, err := tuning.NewSession(
		core.SessionID(core.NewID()),
		tuning.Dataset{Conditions: conditions, Statistics: statistics, Trials: trials},
		provider,
		opts,
	)
	if err != nil {
		return err
	}

	table, err := session.Metrics(context.Background())
	if err != nil {
		return err
	}
	log.Info("run %s ready: %d rows", table.RunID, len(table.Rows))

	axes := map[grating.Dimension]grating.Axis{
		grating.DimOrientation:      session.Axis(grating.DimOrientation),
		grating.DimSpatialFrequency: session.Axis(grating.DimSpatialFrequency),
		grating.DimPhase:            session.Axis(grating.DimPhase),
	}
	server := api.NewServer(table, axes)

	addr := ":" + cfg.Server.Port
	log.Info("listening on %s", addr)
	return http.ListenAndServe(addr, server.Router())
}
