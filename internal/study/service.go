// Package study orchestrates a complete G7/4 breaker-duty fault study: case
// load, embedded-generation infeed, Norton-equivalent conversion, per-fault-
// time solving, result assembly and export. The engine session holds one
// global model, so the whole pipeline is strictly sequential.
package study

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"g74-faultstudy/internal/bkdy"
	"g74-faultstudy/internal/config"
	"g74-faultstudy/internal/conversion"
	"g74-faultstudy/internal/engine"
	"g74-faultstudy/internal/history"
	"g74-faultstudy/internal/infeed"
	"g74-faultstudy/internal/network"
	"g74-faultstudy/internal/observability/metrics"
	"g74-faultstudy/internal/results"
	"g74-faultstudy/internal/workbook"
)

var (
	// ErrNoFaultTimes is returned for a request with an empty time set.
	ErrNoFaultTimes = errors.New("study: at least one fault time required")
	// ErrNegativeFaultTime is returned for a negative fault time.
	ErrNegativeFaultTime = errors.New("study: fault times must be non-negative")
	// ErrUnknownBusbar is returned when a requested busbar is not in the
	// loaded model.
	ErrUnknownBusbar = errors.New("study: requested busbar not present in model")
)

// Request describes one fault-study run. An empty Buses set faults every
// busbar in the model.
type Request struct {
	CasePath   string
	FaultTimes []float64
	Buses      []int

	WorkDir      string
	WorkbookPath string
	ReportPath   string

	// PreflightLoadFlow solves a load flow on the freshly loaded case
	// before anything modifies it. Non-convergence is a warning.
	PreflightLoadFlow bool

	// InterimCasePath, when set, receives a save of the modified model
	// before and after solving.
	InterimCasePath string

	// ReloadCase restores the original case at the end of the run,
	// resetting the conversion state.
	ReloadCase bool
}

// Report is the outcome of a completed run.
type Report struct {
	CaseName  string
	Table     *results.Table
	Outputs   []bkdy.RawOutput
	Warnings  []string
	BkdyIssue bool
	Status    string
}

// Service runs fault studies against one engine session.
type Service struct {
	session engine.Session
	cfg     config.Config
	logger  *log.Logger
	runs    history.Repository
}

// Option configures the service.
type Option func(*Service)

// WithHistory persists completed runs to the given repository.
func WithHistory(repo history.Repository) Option {
	return func(s *Service) {
		s.runs = repo
	}
}

// NewService wires a study service over an engine session.
func NewService(session engine.Session, cfg config.Config, logger *log.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = log.Default()
	}
	s := &Service{session: session, cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes the full pipeline for one request.
func (s *Service) Run(ctx context.Context, req Request) (*Report, error) {
	started := time.Now()
	report, err := s.run(ctx, req)
	if err != nil {
		metrics.ObserveStudy(metrics.ResultError, time.Since(started))
		return nil, err
	}
	metrics.ObserveStudy(metrics.ResultSuccess, time.Since(started))
	return report, nil
}

func (s *Service) run(ctx context.Context, req Request) (*Report, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	induction := network.NewInductionData(s.session, s.logger)
	converter := conversion.New(s.session, induction, s.logger)
	control := NewCaseControl(s.session, converter, s.cfg, s.logger)

	stage := time.Now()
	if err := control.LoadCase(req.CasePath); err != nil {
		return nil, err
	}
	s.logger.Printf("study: case %s loaded in %.2fs", control.CaseName(), time.Since(stage).Seconds())

	if err := s.checkRequestedBuses(req.Buses); err != nil {
		return nil, err
	}

	var warnings []string

	if req.PreflightLoadFlow {
		convergent, err := control.RunLoadFlow(engine.LoadFlowOptions{LockTaps: true})
		if err != nil {
			return nil, err
		}
		if !convergent {
			warning := fmt.Sprintf("preflight load flow on case %s did not converge", control.CaseName())
			warnings = append(warnings, warning)
			s.logger.Printf("study: %s", warning)
		}
	}

	// Embedded-generation equivalents must be in the model before the
	// Norton-equivalent conversion or their infeed is lost.
	stage = time.Now()
	egModel := infeed.NewModel(network.NewLoadData(s.session, s.logger), s.cfg, s.logger)
	if err := egModel.IdentifyMachineParameters(); err != nil {
		return nil, err
	}
	if err := egModel.CalculateMachineMVAValues(); err != nil {
		return nil, err
	}
	if err := egModel.AddMachines(s.session); err != nil {
		return nil, err
	}
	warnings = append(warnings, egModel.Warnings()...)
	s.logger.Printf("study: embedded generation modelled in %.2fs (%d equivalents)",
		time.Since(stage).Seconds(), len(egModel.Equivalents()))

	if req.InterimCasePath != "" {
		if err := control.SaveCase(req.InterimCasePath); err != nil {
			return nil, err
		}
	}

	stage = time.Now()
	idev := bkdy.NewIdevWriter(network.NewMachineData(s.session, s.logger), induction, s.cfg, s.logger)
	duty := bkdy.NewStudy(s.session, converter, idev, s.logger)
	idevPath := filepath.Join(req.WorkDir, "bkdy_machines.idev")
	if err := duty.CreateBreakerDutyFile(idevPath); err != nil {
		return nil, err
	}
	warnings = append(warnings, idev.Warnings()...)
	s.logger.Printf("study: breaker-duty impedance file written in %.2fs", time.Since(stage).Seconds())

	stage = time.Now()
	outputs, err := duty.Run(req.FaultTimes, req.Buses, req.WorkDir)
	if err != nil {
		metrics.ObserveSolve(metrics.ResultError, time.Since(stage))
		return nil, err
	}
	metrics.ObserveSolve(metrics.ResultSuccess, time.Since(stage))
	s.logger.Printf("study: %d fault times solved in %.2fs", len(outputs), time.Since(stage).Seconds())

	if req.InterimCasePath != "" {
		if err := control.SaveCase(req.InterimCasePath); err != nil {
			return nil, err
		}
	}

	parser := results.NewParser(s.logger)
	byTime := make(map[float64][]results.BusRecord, len(outputs))
	for _, out := range outputs {
		records, err := parser.ParseFile(out.Path)
		if err != nil {
			return nil, err
		}
		byTime[out.FaultTime] = records
	}
	warnings = append(warnings, parser.Warnings()...)

	table, err := results.Assemble(byTime, s.cfg, s.logger)
	if err != nil {
		return nil, err
	}

	report := &Report{
		CaseName:  control.CaseName(),
		Table:     table,
		Outputs:   outputs,
		Warnings:  warnings,
		BkdyIssue: converter.BkdyIssue(),
	}
	report.Status = statusMessage(report)
	metrics.AddDataQualityWarnings(len(warnings))

	stage = time.Now()
	exporter := workbook.NewExporter(s.logger)
	if req.WorkbookPath != "" {
		if err := exporter.WriteWorkbook(req.WorkbookPath, table, report.Status); err != nil {
			return nil, err
		}
	}
	if req.ReportPath != "" {
		if err := exporter.WriteReport(req.ReportPath, report.CaseName, report.Status, warnings, table); err != nil {
			return nil, err
		}
	}
	s.logger.Printf("study: results exported in %.2fs", time.Since(stage).Seconds())

	s.persist(ctx, report, req)

	if req.ReloadCase {
		if err := control.LoadCase(""); err != nil {
			return nil, err
		}
		s.logger.Printf("study: original case %s reloaded", report.CaseName)
	}

	return report, nil
}

// checkRequestedBuses confirms every requested busbar exists in the model.
func (s *Service) checkRequestedBuses(buses []int) error {
	if len(buses) == 0 {
		return nil
	}
	busData := network.NewBusData(s.session, s.cfg, s.logger)
	all, err := busData.Fetch()
	if err != nil {
		return err
	}
	known := make(map[int]bool, len(all))
	for _, b := range all {
		known[b.Number] = true
	}
	for _, b := range buses {
		if !known[b] {
			return fmt.Errorf("%w: %d", ErrUnknownBusbar, b)
		}
	}
	return nil
}

// persist saves the run to history when a repository is configured. Failures
// are logged, not fatal: the workbook is already on disk.
func (s *Service) persist(ctx context.Context, report *Report, req Request) {
	if s.runs == nil {
		return
	}
	run := history.Run{
		CaseName:   report.CaseName,
		FaultTimes: req.FaultTimes,
		Unit:       s.cfg.Unit,
		Status:     report.Status,
		BkdyIssue:  report.BkdyIssue,
		Warnings:   report.Warnings,
	}
	rows := report.Table.Rows()
	hist := make([]history.Result, 0, len(rows))
	for _, row := range rows {
		hist = append(hist, history.Result{
			Bus:        row.Bus,
			Name:       row.Name,
			InitialSym: row.Values[results.FieldInitialSym],
			Peak:       row.Values[results.FieldPeak],
			BreakSym:   row.Values[results.FieldBreakSym],
			BreakAsym:  row.Values[results.FieldBreakAsym],
			DC:         row.Values[results.FieldDCComponent],
			TheveninR:  row.Values[results.FieldTheveninR],
			TheveninX:  row.Values[results.FieldTheveninX],
			PrefaultV:  row.Values[results.FieldPrefaultVoltage],
		})
	}
	if err := s.runs.SaveRun(ctx, run, hist); err != nil {
		s.logger.Printf("study: unable to persist run history: %v", err)
	}
}

func validate(req Request) error {
	if len(req.FaultTimes) == 0 {
		return ErrNoFaultTimes
	}
	for _, t := range req.FaultTimes {
		if t < 0 {
			return fmt.Errorf("%w: %v", ErrNegativeFaultTime, t)
		}
	}
	return nil
}

func statusMessage(report *Report) string {
	msg := fmt.Sprintf("Breaker-duty fault study of case %s complete: make %.3fs, break %.3fs",
		report.CaseName, report.Table.MakeTime, report.Table.BreakTime)
	if report.BkdyIssue {
		msg += " (accuracy degraded: induction machines approximated, see warnings)"
	}
	return msg
}
