// Package network exposes read-only accessors over the busbar, machine and
// load records of the currently loaded engine model. Each accessor issues
// exactly one engine query per underlying array; a non-zero engine status
// fails the whole call with no partial result.
package network

import (
	"fmt"
	"log"

	"g74-faultstudy/internal/config"
	"g74-faultstudy/internal/engine"
)

// Busbar is one row of the bus arrays, joined by position.
type Busbar struct {
	Number    int
	Name      string
	State     int
	NominalKV float64
	PU        float64

	// Steady-state voltage limits resolved from the nominal-voltage
	// bracket table. HasLimits is false when no bracket matched.
	LowerLimit float64
	UpperLimit float64
	HasLimits  bool
}

// Machine is one row of the machine arrays, joined by position.
type Machine struct {
	Bus           int
	ID            string
	XSubtransient float64
	XTransient    float64
	XSynchronous  float64
}

// Load is one row of the load arrays, joined by position. NominalKV is zero
// when the connection voltage is not recorded in the model.
type Load struct {
	Bus       int
	ID        string
	MVA       float64
	NominalKV float64
}

// BusData reads busbar state and voltage information.
type BusData struct {
	session engine.Session
	cfg     config.Config
	sel     engine.Selector
	logger  *log.Logger
}

// NewBusData queries all buses, in and out of service, unless a narrower
// selector is set with WithSelector.
func NewBusData(session engine.Session, cfg config.Config, logger *log.Logger) *BusData {
	if logger == nil {
		logger = log.Default()
	}
	return &BusData{session: session, cfg: cfg, sel: engine.AllBuses, logger: logger}
}

// WithSelector narrows the bus subsystem the queries run against.
func (b *BusData) WithSelector(sel engine.Selector) *BusData {
	b.sel = sel
	return b
}

// Fetch retrieves the busbar table from the loaded case.
func (b *BusData) Fetch() ([]Busbar, error) {
	ints, err := b.session.BusInts(b.sel, []string{engine.FieldBusNumber, engine.FieldBusState})
	if err != nil {
		b.logger.Printf("bus query failed: op=%s status=%d", engine.OpBusInts, engine.StatusCode(err))
		return nil, fmt.Errorf("network: bus state query: %w", err)
	}
	reals, err := b.session.BusReals(b.sel, []string{engine.FieldBusBase, engine.FieldBusPU})
	if err != nil {
		b.logger.Printf("bus query failed: op=%s status=%d", engine.OpBusReals, engine.StatusCode(err))
		return nil, fmt.Errorf("network: bus voltage query: %w", err)
	}
	chars, err := b.session.BusChars(b.sel, []string{engine.FieldBusName})
	if err != nil {
		b.logger.Printf("bus query failed: op=%s status=%d", engine.OpBusChars, engine.StatusCode(err))
		return nil, fmt.Errorf("network: bus name query: %w", err)
	}

	numbers, states := ints[0], ints[1]
	nominals, voltages := reals[0], reals[1]
	names := chars[0]

	buses := make([]Busbar, len(numbers))
	for i := range numbers {
		bus := Busbar{
			Number:    numbers[i],
			State:     states[i],
			NominalKV: nominals[i],
			PU:        voltages[i],
			Name:      names[i],
		}
		if bracket, ok := b.cfg.LimitsFor(bus.NominalKV); ok {
			bus.LowerLimit = bracket.VMin
			bus.UpperLimit = bracket.VMax
			bus.HasLimits = true
		}
		buses[i] = bus
	}
	return buses, nil
}

// MachineData reads the synchronous-machine reactances needed for the
// breaker-duty impedance file.
type MachineData struct {
	session engine.Session
	sel     engine.Selector
	logger  *log.Logger
}

// NewMachineData queries every machine in the model.
func NewMachineData(session engine.Session, logger *log.Logger) *MachineData {
	if logger == nil {
		logger = log.Default()
	}
	return &MachineData{session: session, sel: engine.AllBuses, logger: logger}
}

// Fetch retrieves the machine table from the loaded case.
func (m *MachineData) Fetch() ([]Machine, error) {
	ints, err := m.session.MachineInts(m.sel, []string{engine.FieldMachineBus})
	if err != nil {
		m.logger.Printf("machine query failed: op=%s status=%d", engine.OpMachineInts, engine.StatusCode(err))
		return nil, fmt.Errorf("network: machine bus query: %w", err)
	}
	reals, err := m.session.MachineReals(m.sel, []string{
		engine.FieldXSubtransient, engine.FieldXTransient, engine.FieldXSynchronous,
	})
	if err != nil {
		m.logger.Printf("machine query failed: op=%s status=%d", engine.OpMachineReals, engine.StatusCode(err))
		return nil, fmt.Errorf("network: machine impedance query: %w", err)
	}
	chars, err := m.session.MachineChars(m.sel, []string{engine.FieldMachineID})
	if err != nil {
		m.logger.Printf("machine query failed: op=%s status=%d", engine.OpMachineChars, engine.StatusCode(err))
		return nil, fmt.Errorf("network: machine id query: %w", err)
	}

	machines := make([]Machine, len(ints[0]))
	for i := range machines {
		machines[i] = Machine{
			Bus:           ints[0][i],
			ID:            chars[0][i],
			XSubtransient: reals[0][i],
			XTransient:    reals[1][i],
			XSynchronous:  reals[2][i],
		}
	}
	return machines, nil
}

// LoadData reads per-load MVA demand and connection voltage.
type LoadData struct {
	session engine.Session
	sel     engine.Selector
	logger  *log.Logger
}

// NewLoadData queries in-service loads at in-service busbars.
func NewLoadData(session engine.Session, logger *log.Logger) *LoadData {
	if logger == nil {
		logger = log.Default()
	}
	return &LoadData{session: session, sel: engine.InService, logger: logger}
}

// Fetch retrieves the load table from the loaded case.
func (l *LoadData) Fetch() ([]Load, error) {
	ints, err := l.session.LoadInts(l.sel, []string{engine.FieldLoadBus})
	if err != nil {
		l.logger.Printf("load query failed: op=%s status=%d", engine.OpLoadInts, engine.StatusCode(err))
		return nil, fmt.Errorf("network: load bus query: %w", err)
	}
	reals, err := l.session.LoadReals(l.sel, []string{engine.FieldLoadMVAAct, engine.FieldLoadBase})
	if err != nil {
		l.logger.Printf("load query failed: op=%s status=%d", engine.OpLoadReals, engine.StatusCode(err))
		return nil, fmt.Errorf("network: load demand query: %w", err)
	}
	chars, err := l.session.LoadChars(l.sel, []string{engine.FieldLoadID})
	if err != nil {
		l.logger.Printf("load query failed: op=%s status=%d", engine.OpLoadChars, engine.StatusCode(err))
		return nil, fmt.Errorf("network: load id query: %w", err)
	}

	loads := make([]Load, len(ints[0]))
	for i := range loads {
		loads[i] = Load{
			Bus:       ints[0][i],
			ID:        chars[0][i],
			MVA:       reals[0][i],
			NominalKV: reals[1][i],
		}
	}
	return loads, nil
}

// InductionData counts induction machines in the model. The count is cached
// after the first query.
type InductionData struct {
	session engine.Session
	sel     engine.Selector
	logger  *log.Logger
	count   int
	fetched bool
}

// NewInductionData counts in-service induction machines.
func NewInductionData(session engine.Session, logger *log.Logger) *InductionData {
	if logger == nil {
		logger = log.Default()
	}
	return &InductionData{session: session, sel: engine.InService, logger: logger}
}

// Count returns the induction-machine count, querying the engine on first
// use. Pass reset to force a fresh query.
func (d *InductionData) Count(reset bool) (int, error) {
	if d.fetched && !reset {
		return d.count, nil
	}
	n, err := d.session.InductionMachineCount(d.sel)
	if err != nil {
		d.logger.Printf("induction count query failed: op=%s status=%d", engine.OpInductionCount, engine.StatusCode(err))
		return 0, fmt.Errorf("network: induction machine count: %w", err)
	}
	d.count = n
	d.fetched = true
	return d.count, nil
}
