// Package infeed derives equivalent synchronous machines representing the
// aggregated fault-current contribution of embedded generation, following the
// ENA G7/4 methodology: one equivalent per qualifying load, sized from the
// load's MVA demand by a connection-voltage-class multiplier, with impedance
// set from an assumed X/R ratio.
package infeed

import (
	"errors"
	"fmt"
	"log"
	"math"

	"g74-faultstudy/internal/config"
	"g74-faultstudy/internal/engine"
	"g74-faultstudy/internal/network"
)

// MachineID identifies synthetic equivalents written into the model.
const MachineID = "EG"

var (
	// ErrNotIdentified is returned when MVA calculation or machine
	// insertion runs before the load scan.
	ErrNotIdentified = errors.New("infeed: machine parameters not identified")
	// ErrNotCalculated is returned when AddMachines runs before the MVA
	// ratings have been finalised.
	ErrNotCalculated = errors.New("infeed: machine MVA values not calculated")
)

// Equivalent is the G7/4 equivalent machine derived from one load.
type Equivalent struct {
	Bus       int
	LoadID    string
	LoadMVA   float64
	NominalKV float64

	RatingMVA float64

	// Per-unit impedances on the machine base.
	RPos  float64
	XPos  float64
	RZero float64
	XZero float64
}

// LoadSource yields the load records the equivalents are derived from.
type LoadSource interface {
	Fetch() ([]network.Load, error)
}

// Model computes and installs the embedded-generation equivalents.
type Model struct {
	loads  LoadSource
	cfg    config.Config
	logger *log.Logger

	equivalents []Equivalent
	warnings    []string

	identified bool
	calculated bool
}

// NewModel wires the infeed calculation against a load source.
func NewModel(loads LoadSource, cfg config.Config, logger *log.Logger) *Model {
	if logger == nil {
		logger = log.Default()
	}
	return &Model{loads: loads, cfg: cfg, logger: logger}
}

// IdentifyMachineParameters scans every load and records an equivalent for
// each one whose demand exceeds the minimum MVA threshold. Loads with no
// recorded connection voltage are skipped with a warning; the run continues
// with degraded fidelity rather than aborting.
func (m *Model) IdentifyMachineParameters() error {
	loads, err := m.loads.Fetch()
	if err != nil {
		return fmt.Errorf("infeed: %w", err)
	}

	rpos := 1.0 / math.Sqrt(1.0+m.cfg.XR33*m.cfg.XR33)
	x11 := math.Sqrt(1.0 - rpos*rpos)

	m.equivalents = m.equivalents[:0]
	for _, l := range loads {
		if l.MVA <= m.cfg.MinLoadMVA {
			continue
		}
		if l.NominalKV <= 0 {
			warning := fmt.Sprintf(
				"load %s at bus %d has no connection voltage, embedded generation contribution omitted",
				l.ID, l.Bus)
			m.warnings = append(m.warnings, warning)
			m.logger.Printf("infeed: %s", warning)
			continue
		}
		m.equivalents = append(m.equivalents, Equivalent{
			Bus:       l.Bus,
			LoadID:    l.ID,
			LoadMVA:   l.MVA,
			NominalKV: l.NominalKV,
			RPos:      rpos,
			XPos:      x11,
			RZero:     m.cfg.ZeroSequenceLarge,
			XZero:     m.cfg.ZeroSequenceLarge,
		})
	}
	m.identified = true
	m.calculated = false
	return nil
}

// CalculateMachineMVAValues finalises each equivalent's rating by applying
// the voltage-class multiplier to the load demand.
func (m *Model) CalculateMachineMVAValues() error {
	if !m.identified {
		return ErrNotIdentified
	}
	for i := range m.equivalents {
		e := &m.equivalents[i]
		e.RatingMVA = e.LoadMVA * m.multiplierFor(e.NominalKV)
	}
	m.calculated = true
	return nil
}

// AddMachines writes the synthetic machines into the live model. This must
// run before the Norton-equivalent conversion or the embedded-generation
// infeed is omitted from the fault study.
func (m *Model) AddMachines(session engine.Session) error {
	if !m.identified {
		return ErrNotIdentified
	}
	if !m.calculated {
		return ErrNotCalculated
	}
	for _, e := range m.equivalents {
		seed := engine.MachineSeed{
			Bus:           e.Bus,
			ID:            MachineID,
			MVABase:       e.RatingMVA,
			RPos:          e.RPos,
			XPos:          e.XPos,
			RZero:         e.RZero,
			XZero:         e.XZero,
			XSubtransient: e.XPos,
			XTransient:    e.XPos,
			XSynchronous:  e.XPos,
		}
		if err := session.AddMachine(seed); err != nil {
			return fmt.Errorf("infeed: add machine at bus %d: %w", e.Bus, err)
		}
	}
	m.logger.Printf("infeed: added %d equivalent machines", len(m.equivalents))
	return nil
}

// Equivalents returns the derived machines in load order.
func (m *Model) Equivalents() []Equivalent {
	return m.equivalents
}

// Warnings returns the accumulated data-quality warnings.
func (m *Model) Warnings() []string {
	return m.warnings
}

func (m *Model) multiplierFor(nominalKV float64) float64 {
	mult := m.cfg.Multipliers
	switch {
	case nominalKV < 1.0:
		return mult.LV
	case nominalKV >= 10.0 && nominalKV <= 12.0:
		return mult.KV11
	case nominalKV >= 30.0 && nominalKV <= 36.0:
		return mult.KV33
	default:
		return mult.HV
	}
}
