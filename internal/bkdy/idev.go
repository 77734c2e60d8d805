package bkdy

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"g74-faultstudy/internal/config"
	"g74-faultstudy/internal/network"
)

// MachineSource yields the machine records written to the impedance file.
type MachineSource interface {
	Fetch() ([]network.Machine, error)
}

// InductionCounter reports the model's induction-machine count.
type InductionCounter interface {
	Count(reset bool) (int, error)
}

// IdevWriter builds the plain-text machine-impedance artifact consumed by
// the breaker-duty solver: one comma-separated machine per line holding bus,
// id, the transient and subtransient open-circuit time constants (d then q
// axis), then Xd, Xq, X'd, X'q and the subtransient reactance, terminated by
// a sentinel 0 line. Q-axis reactances are assumed equal to the d-axis
// values and all machines share the configured default time constants.
type IdevWriter struct {
	machines  MachineSource
	induction InductionCounter
	cfg       config.Config
	logger    *log.Logger

	warnings []string
}

// NewIdevWriter wires the writer against the model's machine data.
func NewIdevWriter(machines MachineSource, induction InductionCounter, cfg config.Config, logger *log.Logger) *IdevWriter {
	if logger == nil {
		logger = log.Default()
	}
	return &IdevWriter{machines: machines, induction: induction, cfg: cfg, logger: logger}
}

// Write produces the impedance file at path.
func (w *IdevWriter) Write(path string) error {
	machines, err := w.machines.Fetch()
	if err != nil {
		return fmt.Errorf("bkdy: idev machine data: %w", err)
	}

	tc := w.cfg.TimeConstants
	w.logger.Printf(
		"bkdy: default time constants assumed for all machines, q-axis reactances mirror d-axis: T'd0=%v T''d0=%v T'q0=%v T''q0=%v",
		tc.Td0, tc.Tdd0, tc.Tq0, tc.Tqq0)

	var sb strings.Builder
	for _, m := range machines {
		x11 := m.XSubtransient
		x1d := m.XTransient
		xd := m.XSynchronous
		fields := []string{
			strconv.Itoa(m.Bus),
			m.ID,
			formatPU(tc.Td0),
			formatPU(tc.Tq0),
			formatPU(tc.Tdd0),
			formatPU(tc.Tqq0),
			formatPU(xd),
			formatPU(xd), // Xq = Xd
			formatPU(x1d),
			formatPU(x1d), // X'q = X'd
			formatPU(x11),
		}
		sb.WriteString(strings.Join(fields, ","))
		sb.WriteByte('\n')
	}
	sb.WriteString("0\n")

	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("bkdy: write idev %s: %w", path, err)
	}
	return w.appendInductionRecord(path)
}

// appendInductionRecord closes the file with the induction-machine record.
// Their detailed contribution is not modelled; when any exist the study
// continues with a placeholder zero record and a logged warning.
func (w *IdevWriter) appendInductionRecord(path string) error {
	count, err := w.induction.Count(false)
	if err != nil {
		return fmt.Errorf("bkdy: idev induction data: %w", err)
	}
	if count > 0 {
		warning := fmt.Sprintf("%d induction machines in the model are not represented in the impedance file", count)
		w.warnings = append(w.warnings, warning)
		w.logger.Printf("bkdy: %s", warning)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("bkdy: append idev %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString("0"); err != nil {
		return fmt.Errorf("bkdy: append idev %s: %w", path, err)
	}
	return nil
}

// Warnings returns data-quality warnings accumulated while writing.
func (w *IdevWriter) Warnings() []string {
	return w.warnings
}

func formatPU(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
