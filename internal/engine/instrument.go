package engine

// Hook observes every vendor call and its outcome. Used to feed metrics
// without coupling the engine boundary to the metrics registry.
type Hook func(op string, err error)

// Instrument wraps a session so every call reports through hook.
func Instrument(s Session, hook Hook) Session {
	if hook == nil {
		return s
	}
	return &instrumented{next: s, hook: hook}
}

type instrumented struct {
	next Session
	hook Hook
}

func (i *instrumented) observe(op string, err error) error {
	i.hook(op, err)
	return err
}

func (i *instrumented) LoadCase(path string) error {
	return i.observe(OpLoadCase, i.next.LoadCase(path))
}

func (i *instrumented) SaveCase(path string) error {
	return i.observe(OpSaveCase, i.next.SaveCase(path))
}

func (i *instrumented) SetSolutionParameters(maxIterations int, mwMvarTolerance float64) error {
	return i.observe(OpSolutionParameters, i.next.SetSolutionParameters(maxIterations, mwMvarTolerance))
}

func (i *instrumented) BusInts(sel Selector, fields []string) ([][]int, error) {
	out, err := i.next.BusInts(sel, fields)
	return out, i.observe(OpBusInts, err)
}

func (i *instrumented) BusReals(sel Selector, fields []string) ([][]float64, error) {
	out, err := i.next.BusReals(sel, fields)
	return out, i.observe(OpBusReals, err)
}

func (i *instrumented) BusChars(sel Selector, fields []string) ([][]string, error) {
	out, err := i.next.BusChars(sel, fields)
	return out, i.observe(OpBusChars, err)
}

func (i *instrumented) MachineInts(sel Selector, fields []string) ([][]int, error) {
	out, err := i.next.MachineInts(sel, fields)
	return out, i.observe(OpMachineInts, err)
}

func (i *instrumented) MachineReals(sel Selector, fields []string) ([][]float64, error) {
	out, err := i.next.MachineReals(sel, fields)
	return out, i.observe(OpMachineReals, err)
}

func (i *instrumented) MachineChars(sel Selector, fields []string) ([][]string, error) {
	out, err := i.next.MachineChars(sel, fields)
	return out, i.observe(OpMachineChars, err)
}

func (i *instrumented) LoadInts(sel Selector, fields []string) ([][]int, error) {
	out, err := i.next.LoadInts(sel, fields)
	return out, i.observe(OpLoadInts, err)
}

func (i *instrumented) LoadReals(sel Selector, fields []string) ([][]float64, error) {
	out, err := i.next.LoadReals(sel, fields)
	return out, i.observe(OpLoadReals, err)
}

func (i *instrumented) LoadChars(sel Selector, fields []string) ([][]string, error) {
	out, err := i.next.LoadChars(sel, fields)
	return out, i.observe(OpLoadChars, err)
}

func (i *instrumented) InductionMachineCount(sel Selector) (int, error) {
	n, err := i.next.InductionMachineCount(sel)
	return n, i.observe(OpInductionCount, err)
}

func (i *instrumented) AddMachine(seed MachineSeed) error {
	return i.observe(OpAddMachine, i.next.AddMachine(seed))
}

func (i *instrumented) DefineBusSubsystem(sid int, buses []int) error {
	return i.observe(OpBusSubsystem, i.next.DefineBusSubsystem(sid, buses))
}

func (i *instrumented) ConvertGenerators(option int) error {
	return i.observe(OpConvertGenerators, i.next.ConvertGenerators(option))
}

func (i *instrumented) ConvertLoads(phase int, params LoadConversionParams) (int, error) {
	remaining, err := i.next.ConvertLoads(phase, params)
	return remaining, i.observe(OpConvertLoads, err)
}

func (i *instrumented) OrderBuses(option int) error {
	return i.observe(OpOrderBuses, i.next.OrderBuses(option))
}

func (i *instrumented) FactorizeAdmittance() error {
	return i.observe(OpFactorize, i.next.FactorizeAdmittance())
}

func (i *instrumented) SolveLoadFlow(opts LoadFlowOptions) error {
	return i.observe(OpLoadFlow, i.next.SolveLoadFlow(opts))
}

func (i *instrumented) Solved() int {
	return i.next.Solved()
}

func (i *instrumented) BreakerDuty(sel Selector, faultTime float64, idevPath, outputPath string) error {
	return i.observe(OpBreakerDuty, i.next.BreakerDuty(sel, faultTime, idevPath, outputPath))
}
