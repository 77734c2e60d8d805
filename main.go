package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"g74-faultstudy/internal/config"
	"g74-faultstudy/internal/engine"
	"g74-faultstudy/internal/engine/local"
	"g74-faultstudy/internal/history"
	"g74-faultstudy/internal/observability/metrics"
	"g74-faultstudy/internal/study"
	"g74-faultstudy/internal/workbook"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	var (
		casePath    = flag.String("case", "", "saved case to study (required)")
		busListPath = flag.String("buses", "", "workbook whose first column lists the busbars to fault (default: all buses)")
		outPath     = flag.String("out", "fault_study.xlsx", "results workbook path")
		reportPath  = flag.String("report", "", "optional PDF report path")
		workDir     = flag.String("work-dir", ".", "directory for solver working files")
		faultTimes  = flag.String("fault-times", "", "comma-separated fault times in seconds (default from config)")
		interimPath = flag.String("interim", "", "optional path for interim case saves around the solve")
		preflight   = flag.Bool("load-flow", false, "solve a load flow on the loaded case before the study")
		reload      = flag.Bool("reload", false, "restore the original case after the run")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "", log.LstdFlags)

	if *casePath == "" {
		logger.Fatal("-case is required")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}
	if *faultTimes != "" {
		times, err := parseFaultTimes(*faultTimes)
		if err != nil {
			logger.Fatalf("fault times error: %v", err)
		}
		cfg.FaultTimes = times
	}

	metrics.Init()
	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Printf("metrics listening on %s", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Printf("metrics server error: %v", err)
			}
		}()
	}

	opts := []study.Option{}
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("db open error: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("db ping error: %v", err)
		}
		opts = append(opts, study.WithHistory(history.NewPostgresRepository(db)))
	}

	var session engine.Session = local.New()
	session = engine.Instrument(session, func(op string, err error) {
		metrics.IncEngineCall(op)
		if err != nil {
			metrics.IncEngineFailure(op)
		}
	})

	var buses []int
	if *busListPath != "" {
		buses, err = loadRequestedBuses(*busListPath, logger)
		if err != nil {
			logger.Fatalf("busbar list error: %v", err)
		}
	}

	svc := study.NewService(session, cfg, logger, opts...)
	report, err := svc.Run(context.Background(), study.Request{
		CasePath:          *casePath,
		FaultTimes:        cfg.FaultTimes,
		Buses:             buses,
		WorkDir:           *workDir,
		WorkbookPath:      *outPath,
		ReportPath:        *reportPath,
		InterimCasePath:   *interimPath,
		PreflightLoadFlow: *preflight,
		ReloadCase:        *reload,
	})
	if err != nil {
		logger.Fatalf("study error: %v", err)
	}

	logger.Printf("case %s: %s", report.CaseName, report.Status)
	logger.Printf("results: %d busbars, %d raw outputs, workbook %s", len(report.Table.Rows()), len(report.Outputs), *outPath)
	for _, w := range report.Warnings {
		logger.Printf("warning: %s", w)
	}
}

func loadRequestedBuses(path string, logger *log.Logger) ([]int, error) {
	list, err := workbook.ImportBusbarList(path, logger)
	if err != nil {
		return nil, err
	}
	if len(list.Errors) > 0 {
		logger.Printf("busbar list: %d unreadable entries skipped", len(list.Errors))
	}
	return list.Buses, nil
}

func parseFaultTimes(raw string) ([]float64, error) {
	parts := strings.Split(raw, ",")
	times := make([]float64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid fault time %q: %w", part, err)
		}
		times = append(times, t)
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("no fault times in %q", raw)
	}
	return times, nil
}
