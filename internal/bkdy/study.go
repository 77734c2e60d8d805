// Package bkdy drives the vendor break-duty short-circuit solver: it builds
// the machine-impedance input artifact and produces one raw output file per
// requested fault-clearing time.
package bkdy

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"g74-faultstudy/internal/conversion"
	"g74-faultstudy/internal/engine"
)

// faultSubsystemSID is the bus subsystem used when the study targets an
// explicit busbar set.
const faultSubsystemSID = 1

// ErrNoImpedanceFile is returned when a solve is attempted before the
// impedance artifact has been built.
var ErrNoImpedanceFile = errors.New("bkdy: breaker-duty impedance file not created")

// RawOutput names one per-fault-time solver output file.
type RawOutput struct {
	FaultTime float64
	Path      string
}

// Study runs the break-duty calculation.
type Study struct {
	session   engine.Session
	converter *conversion.Converter
	idev      *IdevWriter
	logger    *log.Logger

	idevPath string
}

// NewStudy wires a breaker-duty study against a session and its converter.
func NewStudy(session engine.Session, converter *conversion.Converter, idev *IdevWriter, logger *log.Logger) *Study {
	if logger == nil {
		logger = log.Default()
	}
	return &Study{session: session, converter: converter, idev: idev, logger: logger}
}

// CreateBreakerDutyFile writes the machine-impedance artifact the solver
// reads. Must run after any synthetic machines are added so their impedances
// are included.
func (s *Study) CreateBreakerDutyFile(path string) error {
	if err := s.idev.Write(path); err != nil {
		return err
	}
	s.idevPath = path
	return nil
}

// Run solves once per fault-clearing time, writing one raw output file per
// time into outDir. A non-empty bus set narrows the faulted busbars through
// a dedicated subsystem; an empty set faults every busbar. Any non-zero
// solver status is fatal for the whole run.
func (s *Study) Run(faultTimes []float64, buses []int, outDir string) ([]RawOutput, error) {
	if s.idevPath == "" {
		return nil, ErrNoImpedanceFile
	}

	// Machines must be in Norton-equivalent form before the solver runs.
	if err := s.converter.Convert(); err != nil {
		return nil, err
	}

	sel := engine.AllBuses
	if len(buses) > 0 {
		if err := s.session.DefineBusSubsystem(faultSubsystemSID, buses); err != nil {
			return nil, fmt.Errorf("bkdy: define fault subsystem: %w", err)
		}
		sel = engine.Selector{SID: faultSubsystemSID, Flag: engine.AllBuses.Flag}
	}

	outputs := make([]RawOutput, 0, len(faultTimes))
	for _, t := range faultTimes {
		out := filepath.Join(outDir, fmt.Sprintf("bkdy_%.3fs.out", t))
		s.logger.Printf("bkdy: solving fault_time=%.3fs output=%s", t, out)
		if err := s.session.BreakerDuty(sel, t, s.idevPath, out); err != nil {
			s.logger.Printf("CRITICAL bkdy: solve failed: fault_time=%.3f status=%d", t, engine.StatusCode(err))
			return nil, fmt.Errorf("bkdy: solve at %.3fs: %w", t, err)
		}
		outputs = append(outputs, RawOutput{FaultTime: t, Path: out})
	}
	return outputs, nil
}
