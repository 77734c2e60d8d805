// Package local provides an in-memory engine backend. It mimics the call
// surface and status-code behaviour of the vendor engine closely enough to
// rehearse the full study pipeline without a vendor licence, including
// plausible breaker-duty report text derived from the model's machine
// reactances. Cases are plain YAML model descriptions rather than the
// vendor's binary format. Tests use it for failure injection and
// call-order assertions.
package local

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"g74-faultstudy/internal/engine"
)

// Bus is a model busbar.
type Bus struct {
	Number int     `yaml:"number"`
	State  int     `yaml:"state"`
	BaseKV float64 `yaml:"base_kv"`
	PU     float64 `yaml:"pu"`
	Name   string  `yaml:"name"`
}

// Machine is a model synchronous machine.
type Machine struct {
	Bus           int     `yaml:"bus"`
	ID            string  `yaml:"id"`
	XSubtransient float64 `yaml:"x_subtransient"`
	XTransient    float64 `yaml:"x_transient"`
	XSynchronous  float64 `yaml:"x_synchronous"`
	MVABase       float64 `yaml:"mva_base"`
}

// Load is a model load record.
type Load struct {
	Bus    int     `yaml:"bus"`
	ID     string  `yaml:"id"`
	MVA    float64 `yaml:"mva"`
	BaseKV float64 `yaml:"base_kv"`
}

// Engine implements engine.Session against an in-memory network model.
// Calls are recorded in order so tests can assert sequencing and
// idempotency.
type Engine struct {
	mu sync.Mutex

	Buses          []Bus
	Machines       []Machine
	Loads          []Load
	InductionCount int

	// StickyLoads keeps this many loads reported unconverted on every
	// conversion iteration, to exercise the iteration bound.
	StickyLoads int

	calls      []string
	failures   map[string]int
	subsystems map[int][]int

	loadedCase       string
	snapshot         *caseFile
	unconvertedLoads int
	loadConvActive   bool
}

var _ engine.Session = (*Engine)(nil)

// New returns an empty model.
func New() *Engine {
	return &Engine{
		failures:   make(map[string]int),
		subsystems: make(map[int][]int),
	}
}

// FailWith makes the named vendor operation return the given status code on
// every subsequent call.
func (e *Engine) FailWith(op string, code int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures[op] = code
}

// Calls returns the recorded vendor operations in call order.
func (e *Engine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.calls))
	copy(out, e.calls)
	return out
}

// CallCount counts recorded operations whose name starts with op.
func (e *Engine) CallCount(op string) int {
	n := 0
	for _, c := range e.Calls() {
		if c == op || strings.HasPrefix(c, op+":") {
			n++
		}
	}
	return n
}

func (e *Engine) record(call string) { e.calls = append(e.calls, call) }

func (e *Engine) check(op string) error {
	if code, ok := e.failures[op]; ok {
		return &engine.StatusError{Op: op, Code: code}
	}
	return nil
}

func (e *Engine) LoadCase(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(engine.OpLoadCase)
	if err := e.check(engine.OpLoadCase); err != nil {
		return err
	}
	// YAML case files replace the model wholesale. Any other path keeps
	// the model as programmed, so tests can preload it directly; the
	// first such load snapshots the model and later loads restore it,
	// dropping anything added since.
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
		if err := e.loadCaseFile(path); err != nil {
			return err
		}
	} else if e.snapshot != nil {
		e.restoreSnapshot()
	} else {
		e.snapshot = e.takeSnapshot()
	}
	e.loadedCase = path
	return nil
}

func (e *Engine) takeSnapshot() *caseFile {
	cf := &caseFile{
		Buses:          make([]Bus, len(e.Buses)),
		Machines:       make([]Machine, len(e.Machines)),
		Loads:          make([]Load, len(e.Loads)),
		InductionCount: e.InductionCount,
	}
	copy(cf.Buses, e.Buses)
	copy(cf.Machines, e.Machines)
	copy(cf.Loads, e.Loads)
	return cf
}

func (e *Engine) restoreSnapshot() {
	e.Buses = make([]Bus, len(e.snapshot.Buses))
	e.Machines = make([]Machine, len(e.snapshot.Machines))
	e.Loads = make([]Load, len(e.snapshot.Loads))
	copy(e.Buses, e.snapshot.Buses)
	copy(e.Machines, e.snapshot.Machines)
	copy(e.Loads, e.snapshot.Loads)
	e.InductionCount = e.snapshot.InductionCount
}

// caseFile is the YAML model description the local backend accepts instead
// of the vendor's binary case format.
type caseFile struct {
	Buses          []Bus     `yaml:"buses"`
	Machines       []Machine `yaml:"machines"`
	Loads          []Load    `yaml:"loads"`
	InductionCount int       `yaml:"induction_machines"`
}

func (e *Engine) loadCaseFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &engine.StatusError{Op: engine.OpLoadCase, Code: 1}
	}
	var cf caseFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return &engine.StatusError{Op: engine.OpLoadCase, Code: 2}
	}
	e.Buses = cf.Buses
	e.Machines = cf.Machines
	e.Loads = cf.Loads
	e.InductionCount = cf.InductionCount
	return nil
}

// LoadedCase reports the path of the case currently loaded.
func (e *Engine) LoadedCase() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadedCase
}

func (e *Engine) SaveCase(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(engine.OpSaveCase)
	return e.check(engine.OpSaveCase)
}

func (e *Engine) SetSolutionParameters(maxIterations int, mwMvarTolerance float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(engine.OpSolutionParameters)
	return e.check(engine.OpSolutionParameters)
}

func (e *Engine) BusInts(sel engine.Selector, fields []string) ([][]int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(engine.OpBusInts)
	if err := e.check(engine.OpBusInts); err != nil {
		return nil, err
	}
	out := make([][]int, len(fields))
	for i, field := range fields {
		col := make([]int, len(e.Buses))
		for j, b := range e.Buses {
			switch field {
			case engine.FieldBusNumber:
				col[j] = b.Number
			case engine.FieldBusState:
				col[j] = b.State
			default:
				return nil, &engine.StatusError{Op: engine.OpBusInts, Code: 4}
			}
		}
		out[i] = col
	}
	return out, nil
}

func (e *Engine) BusReals(sel engine.Selector, fields []string) ([][]float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(engine.OpBusReals)
	if err := e.check(engine.OpBusReals); err != nil {
		return nil, err
	}
	out := make([][]float64, len(fields))
	for i, field := range fields {
		col := make([]float64, len(e.Buses))
		for j, b := range e.Buses {
			switch field {
			case engine.FieldBusBase:
				col[j] = b.BaseKV
			case engine.FieldBusPU:
				col[j] = b.PU
			default:
				return nil, &engine.StatusError{Op: engine.OpBusReals, Code: 4}
			}
		}
		out[i] = col
	}
	return out, nil
}

func (e *Engine) BusChars(sel engine.Selector, fields []string) ([][]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(engine.OpBusChars)
	if err := e.check(engine.OpBusChars); err != nil {
		return nil, err
	}
	out := make([][]string, len(fields))
	for i := range fields {
		col := make([]string, len(e.Buses))
		for j, b := range e.Buses {
			col[j] = b.Name
		}
		out[i] = col
	}
	return out, nil
}

func (e *Engine) MachineInts(sel engine.Selector, fields []string) ([][]int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(engine.OpMachineInts)
	if err := e.check(engine.OpMachineInts); err != nil {
		return nil, err
	}
	out := make([][]int, len(fields))
	for i := range fields {
		col := make([]int, len(e.Machines))
		for j, m := range e.Machines {
			col[j] = m.Bus
		}
		out[i] = col
	}
	return out, nil
}

func (e *Engine) MachineReals(sel engine.Selector, fields []string) ([][]float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(engine.OpMachineReals)
	if err := e.check(engine.OpMachineReals); err != nil {
		return nil, err
	}
	out := make([][]float64, len(fields))
	for i, field := range fields {
		col := make([]float64, len(e.Machines))
		for j, m := range e.Machines {
			switch field {
			case engine.FieldXSubtransient:
				col[j] = m.XSubtransient
			case engine.FieldXTransient:
				col[j] = m.XTransient
			case engine.FieldXSynchronous:
				col[j] = m.XSynchronous
			default:
				return nil, &engine.StatusError{Op: engine.OpMachineReals, Code: 4}
			}
		}
		out[i] = col
	}
	return out, nil
}

func (e *Engine) MachineChars(sel engine.Selector, fields []string) ([][]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(engine.OpMachineChars)
	if err := e.check(engine.OpMachineChars); err != nil {
		return nil, err
	}
	out := make([][]string, len(fields))
	for i := range fields {
		col := make([]string, len(e.Machines))
		for j, m := range e.Machines {
			col[j] = m.ID
		}
		out[i] = col
	}
	return out, nil
}

func (e *Engine) LoadInts(sel engine.Selector, fields []string) ([][]int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(engine.OpLoadInts)
	if err := e.check(engine.OpLoadInts); err != nil {
		return nil, err
	}
	out := make([][]int, len(fields))
	for i := range fields {
		col := make([]int, len(e.Loads))
		for j, l := range e.Loads {
			col[j] = l.Bus
		}
		out[i] = col
	}
	return out, nil
}

func (e *Engine) LoadReals(sel engine.Selector, fields []string) ([][]float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(engine.OpLoadReals)
	if err := e.check(engine.OpLoadReals); err != nil {
		return nil, err
	}
	out := make([][]float64, len(fields))
	for i, field := range fields {
		col := make([]float64, len(e.Loads))
		for j, l := range e.Loads {
			switch field {
			case engine.FieldLoadMVAAct:
				col[j] = l.MVA
			case engine.FieldLoadBase:
				col[j] = l.BaseKV
			default:
				return nil, &engine.StatusError{Op: engine.OpLoadReals, Code: 4}
			}
		}
		out[i] = col
	}
	return out, nil
}

func (e *Engine) LoadChars(sel engine.Selector, fields []string) ([][]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(engine.OpLoadChars)
	if err := e.check(engine.OpLoadChars); err != nil {
		return nil, err
	}
	out := make([][]string, len(fields))
	for i := range fields {
		col := make([]string, len(e.Loads))
		for j, l := range e.Loads {
			col[j] = l.ID
		}
		out[i] = col
	}
	return out, nil
}

func (e *Engine) InductionMachineCount(sel engine.Selector) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(engine.OpInductionCount)
	if err := e.check(engine.OpInductionCount); err != nil {
		return 0, err
	}
	return e.InductionCount, nil
}

func (e *Engine) AddMachine(seed engine.MachineSeed) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(engine.OpAddMachine)
	if err := e.check(engine.OpAddMachine); err != nil {
		return err
	}
	x := seed.XSubtransient
	if x == 0 {
		x = seed.XPos
	}
	e.Machines = append(e.Machines, Machine{
		Bus:           seed.Bus,
		ID:            seed.ID,
		XSubtransient: x,
		XTransient:    seed.XTransient,
		XSynchronous:  seed.XSynchronous,
		MVABase:       seed.MVABase,
	})
	// A bus hosting a machine becomes generator-type.
	for i := range e.Buses {
		if e.Buses[i].Number == seed.Bus {
			e.Buses[i].State = engine.StateGenerator
		}
	}
	return nil
}

func (e *Engine) DefineBusSubsystem(sid int, buses []int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(engine.OpBusSubsystem)
	if err := e.check(engine.OpBusSubsystem); err != nil {
		return err
	}
	cp := make([]int, len(buses))
	copy(cp, buses)
	e.subsystems[sid] = cp
	return nil
}

func (e *Engine) ConvertGenerators(option int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(engine.OpConvertGenerators)
	if err := e.check(engine.OpConvertGenerators); err != nil {
		return err
	}
	e.unconvertedLoads = len(e.Loads)
	return nil
}

func (e *Engine) ConvertLoads(phase int, params engine.LoadConversionParams) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(fmt.Sprintf("%s:%d", engine.OpConvertLoads, phase))
	if err := e.check(engine.OpConvertLoads); err != nil {
		return 0, err
	}
	switch phase {
	case engine.LoadConversionInit:
		e.loadConvActive = true
		e.unconvertedLoads = len(e.Loads)
		return 0, nil
	case engine.LoadConversionIterate:
		if !e.loadConvActive {
			return 0, &engine.StatusError{Op: engine.OpConvertLoads, Code: 3}
		}
		e.unconvertedLoads = e.StickyLoads
		return e.unconvertedLoads, nil
	case engine.LoadConversionFinalize:
		e.loadConvActive = false
		return 0, nil
	}
	return 0, &engine.StatusError{Op: engine.OpConvertLoads, Code: 1}
}

func (e *Engine) OrderBuses(option int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(engine.OpOrderBuses)
	return e.check(engine.OpOrderBuses)
}

func (e *Engine) FactorizeAdmittance() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(engine.OpFactorize)
	return e.check(engine.OpFactorize)
}

func (e *Engine) SolveLoadFlow(opts engine.LoadFlowOptions) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(engine.OpLoadFlow)
	return e.check(engine.OpLoadFlow)
}

func (e *Engine) Solved() int { return 0 }

// BreakerDuty writes a report file in the vendor's line-tagged layout. The
// fault quantities come from a crude Thevenin reduction: machines at the
// faulted bus contribute their subtransient reactance directly, remote
// machines through a nominal tie reactance.
func (e *Engine) BreakerDuty(sel engine.Selector, faultTime float64, idevPath, outputPath string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record(fmt.Sprintf("%s:%.3f", engine.OpBreakerDuty, faultTime))
	if err := e.check(engine.OpBreakerDuty); err != nil {
		return err
	}
	if _, err := os.Stat(idevPath); err != nil {
		return &engine.StatusError{Op: engine.OpBreakerDuty, Code: 7}
	}

	buses := e.subsystemBuses(sel)
	var sb strings.Builder
	for _, b := range buses {
		xth := e.theveninReactance(b.Number)
		if math.IsInf(xth, 1) {
			continue
		}
		rth := xth / 10.0

		vpf := b.PU
		if vpf == 0 {
			vpf = 1.0
		}
		ibase := 100.0 / (math.Sqrt(3) * b.BaseKV) // kA on 100 MVA base
		ikss := vpf / xth * ibase
		peak := math.Sqrt2 * 1.8 * ikss
		ibsym := ikss * (0.8 + 0.2*math.Exp(-faultTime/0.12))
		idc := math.Sqrt2 * ikss * math.Exp(-faultTime/0.045)
		ibasym := math.Hypot(ibsym, idc)
		faultMVA := math.Sqrt(3) * b.BaseKV * ikss

		fmt.Fprintf(&sb, "FAULTED BUS %d [%s] AT TIME %.3f\n", b.Number, b.Name, faultTime)
		fmt.Fprintf(&sb, "FAULT CURRENT %.4f %.4f %.4f %.4f %.4f %.4f %.4f\n",
			ikss, peak, ibsym, ibasym, idc, vpf, faultMVA)
		fmt.Fprintf(&sb, "THEVENIN IMPEDANCE %.5f %.5f %.5f %.5f %.1f %.1f %.5f\n",
			rth, xth, rth, xth, 999999.0, 999999.0, math.Hypot(rth, xth))
	}
	return os.WriteFile(outputPath, []byte(sb.String()), 0o644)
}

func (e *Engine) subsystemBuses(sel engine.Selector) []Bus {
	if nums, ok := e.subsystems[sel.SID]; ok && len(nums) > 0 {
		want := make(map[int]bool, len(nums))
		for _, n := range nums {
			want[n] = true
		}
		var out []Bus
		for _, b := range e.Buses {
			if want[b.Number] {
				out = append(out, b)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
		return out
	}
	out := make([]Bus, len(e.Buses))
	copy(out, e.Buses)
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// theveninReactance folds every machine's subtransient reactance into a
// single equivalent at the bus. Remote machines see an extra 0.05 p.u. tie.
func (e *Engine) theveninReactance(bus int) float64 {
	inv := 0.0
	for _, m := range e.Machines {
		x := m.XSubtransient
		if x <= 0 {
			continue
		}
		if m.Bus != bus {
			x += 0.05
		}
		inv += 1.0 / x
	}
	if inv == 0 {
		return math.Inf(1)
	}
	return 1.0 / inv
}
