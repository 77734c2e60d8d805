package engine

import (
	"errors"
	"fmt"
)

// Vendor operation names carried by StatusError.
const (
	OpLoadCase           = "case"
	OpSaveCase           = "save"
	OpSolutionParameters = "solution_parameters"
	OpBusInts            = "abusint"
	OpBusReals           = "abusreal"
	OpBusChars           = "abuschar"
	OpMachineInts        = "amachint"
	OpMachineReals       = "amachreal"
	OpMachineChars       = "amachchar"
	OpLoadInts           = "aloadint"
	OpLoadReals          = "aloadreal"
	OpLoadChars          = "aloadchar"
	OpInductionCount     = "aindmaccount"
	OpAddMachine         = "machine_data"
	OpBusSubsystem       = "bsys"
	OpConvertGenerators  = "cong"
	OpConvertLoads       = "conl"
	OpOrderBuses         = "ordr"
	OpFactorize          = "fact"
	OpLoadFlow           = "fnsl"
	OpBreakerDuty        = "bkdy"
)

// StatusError reports a non-zero status code returned by a vendor activity.
// The engine has no transient-failure semantics, so a StatusError is never
// retried.
type StatusError struct {
	Op   string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("engine: %s returned status %d", e.Op, e.Code)
}

// StatusCode extracts the vendor status from err, or -1 when err carries no
// StatusError.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return -1
}

// IsOp reports whether err is a StatusError from the named vendor operation.
func IsOp(err error, op string) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Op == op
}
