package engine

// Vendor array-API field names recognised by the query calls.
const (
	FieldBusNumber = "NUMBER"
	FieldBusState  = "TYPE"
	FieldBusBase   = "BASE"
	FieldBusPU     = "PU"
	FieldBusName   = "EXNAME"

	FieldMachineBus    = "NUMBER"
	FieldMachineID     = "ID"
	FieldXSubtransient = "XSUBTR"
	FieldXTransient    = "XTRANS"
	FieldXSynchronous  = "XSYNCH"

	FieldLoadBus    = "NUMBER"
	FieldLoadID     = "ID"
	FieldLoadMVAAct = "MVAACT"
	FieldLoadBase   = "BASE"
)

// Busbar state code for generator-type buses.
const StateGenerator = 2

// Selector addresses a bus subsystem inside the loaded model. SID -1 with
// flag 2 selects every busbar whether in or out of service.
type Selector struct {
	SID  int
	Flag int
}

// AllBuses is the default all-in-service-and-out selector.
var AllBuses = Selector{SID: -1, Flag: 2}

// InService selects only in-service equipment at in-service busbars.
var InService = Selector{SID: -1, Flag: 1}

// MachineSeed is the electrical data written into the model when a synthetic
// machine is added. Impedances are per unit on the machine MVA base.
type MachineSeed struct {
	Bus int
	ID  string

	MVABase float64

	RPos float64
	XPos float64

	RZero float64
	XZero float64

	XSubtransient float64
	XTransient    float64
	XSynchronous  float64
}

// LoadConversionParams drive the iterative constant-impedance load
// conversion. The four coefficients split active/reactive power between
// constant-current and constant-admittance representation.
type LoadConversionParams struct {
	Status1 int
	Status2 int
	LoadIn1 float64
	LoadIn2 float64
	LoadIn3 float64
	LoadIn4 float64
}

// Load-conversion call phases, applied in order.
const (
	LoadConversionInit     = 1
	LoadConversionIterate  = 2
	LoadConversionFinalize = 3
)

// LoadFlowOptions carry the fixed solver options every study uses.
type LoadFlowOptions struct {
	FlatStart bool
	LockTaps  bool
}

// Session is the boundary to the vendor power-system simulation engine. The
// engine owns exactly one globally loaded network model; calls mutate or
// query that shared state and are not safe for concurrent use. Every method
// maps onto a single vendor activity and surfaces non-zero vendor statuses
// as *StatusError.
type Session interface {
	// Case lifecycle.
	LoadCase(path string) error
	SaveCase(path string) error
	SetSolutionParameters(maxIterations int, mwMvarTolerance float64) error

	// Array queries, aligned by selector.
	BusInts(sel Selector, fields []string) ([][]int, error)
	BusReals(sel Selector, fields []string) ([][]float64, error)
	BusChars(sel Selector, fields []string) ([][]string, error)
	MachineInts(sel Selector, fields []string) ([][]int, error)
	MachineReals(sel Selector, fields []string) ([][]float64, error)
	MachineChars(sel Selector, fields []string) ([][]string, error)
	LoadInts(sel Selector, fields []string) ([][]int, error)
	LoadReals(sel Selector, fields []string) ([][]float64, error)
	LoadChars(sel Selector, fields []string) ([][]string, error)
	InductionMachineCount(sel Selector) (int, error)

	// Model mutation.
	AddMachine(seed MachineSeed) error
	DefineBusSubsystem(sid int, buses []int) error

	// Norton-equivalent preparation.
	ConvertGenerators(option int) error
	ConvertLoads(phase int, params LoadConversionParams) (remaining int, err error)
	OrderBuses(option int) error
	FactorizeAdmittance() error

	// Solvers.
	SolveLoadFlow(opts LoadFlowOptions) error
	Solved() int
	BreakerDuty(sel Selector, faultTime float64, idevPath, outputPath string) error
}
