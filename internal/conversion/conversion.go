// Package conversion guards the one-way Norton-equivalent preparation of the
// loaded model: generators first, then loads, followed by bus reordering and
// admittance-matrix factorization ready for breaker-duty solving.
package conversion

import (
	"errors"
	"fmt"
	"log"

	"g74-faultstudy/internal/engine"
)

// State of the loaded model with respect to Norton-equivalent conversion.
type State int

const (
	Unconverted State = iota
	Converted
)

func (s State) String() string {
	if s == Converted {
		return "converted"
	}
	return "unconverted"
}

// zsourceOption selects Zsource treatment of conventional machines in the
// generator conversion. Induction machines are not covered by this option.
const zsourceOption = 0

// iterationBound caps the constant-impedance load-conversion loop. Loads
// still unconverted after this many iterations indicate a solver or model
// inconsistency, not a transient condition.
const iterationBound = 3

var (
	// ErrIterationBound is returned when loads remain unconverted after
	// the bounded number of conversion iterations.
	ErrIterationBound = errors.New("conversion: unconverted loads remain after iteration bound")
	// ErrGeneratorConversion is returned when the generator conversion
	// fails for a model-content reason.
	ErrGeneratorConversion = errors.New("conversion: unable to convert generators")
)

// InductionCounter reports how many induction machines the model carries.
type InductionCounter interface {
	Count(reset bool) (int, error)
}

// Converter tracks conversion state for one engine session.
type Converter struct {
	session   engine.Session
	induction InductionCounter
	logger    *log.Logger

	state     State
	bkdyIssue bool
}

// New returns a Converter in the Unconverted state.
func New(session engine.Session, induction InductionCounter, logger *log.Logger) *Converter {
	if logger == nil {
		logger = log.Default()
	}
	return &Converter{session: session, induction: induction, logger: logger}
}

// State reports the current conversion state.
func (c *Converter) State() State { return c.state }

// BkdyIssue reports whether a condition was seen that degrades the accuracy
// of the breaker-duty results. The flag propagates into the study report.
func (c *Converter) BkdyIssue() bool { return c.bkdyIssue }

// Reset returns the converter to Unconverted. Called whenever the base case
// is reloaded, which restores the model's original form.
func (c *Converter) Reset() {
	c.state = Unconverted
}

// Convert runs generator conversion then load conversion, in that order.
// A second call is a logged no-op for the conversion itself; the bus
// reordering and factorization still run so the solver always sees a
// factorized matrix. Ordering and factorization failures are logged as
// critical but do not abort the run.
func (c *Converter) Convert() error {
	if c.state == Unconverted {
		if err := c.convertGenerators(); err != nil {
			return err
		}
		if err := c.convertLoads(); err != nil {
			return err
		}
		c.state = Converted
	} else {
		c.logger.Printf("conversion: convert requested but model already converted, skipping")
	}

	if err := c.session.OrderBuses(0); err != nil {
		c.logger.Printf("CRITICAL conversion: bus ordering for sparse factorization failed: status=%d", engine.StatusCode(err))
	}
	if err := c.session.FactorizeAdmittance(); err != nil {
		c.logger.Printf("CRITICAL conversion: admittance matrix factorization failed: status=%d", engine.StatusCode(err))
	}
	return nil
}

func (c *Converter) convertGenerators() error {
	c.logger.Printf("conversion: converting generators, zsource option %d", zsourceOption)

	// The Zsource assumptions do not hold for induction machines; note the
	// degraded accuracy and continue with the documented approximation.
	count, err := c.induction.Count(false)
	if err != nil {
		return fmt.Errorf("conversion: %w", err)
	}
	if count > 0 {
		c.logger.Printf("conversion: %d induction machines present, equivalent-source assumptions may not hold", count)
		c.bkdyIssue = true
	}

	err = c.session.ConvertGenerators(zsourceOption)
	switch code := engine.StatusCode(err); {
	case err == nil:
	case code == 2:
		// Already converted upstream of us. Not an accuracy issue but it
		// means call-order discipline slipped somewhere.
		c.logger.Printf("conversion: generators were already converted (status 2)")
	case code == 3 || code == 4:
		c.logger.Printf("CRITICAL conversion: generator conversion rejected, check machine impedances: status=%d", code)
		return fmt.Errorf("%w: status %d", ErrGeneratorConversion, code)
	default:
		c.logger.Printf("CRITICAL conversion: generator conversion failed: status=%d", code)
		return fmt.Errorf("conversion: convert generators: %w", err)
	}
	return nil
}

func (c *Converter) convertLoads() error {
	c.logger.Printf("conversion: converting loads to constant admittance")

	// Active and reactive power both fully constant-admittance.
	params := engine.LoadConversionParams{
		Status1: 0,
		Status2: 0,
		LoadIn1: 0.0,
		LoadIn2: 1.0,
		LoadIn3: 0.0,
		LoadIn4: 1.0,
	}

	if _, err := c.session.ConvertLoads(engine.LoadConversionInit, params); err != nil {
		c.logger.Printf("CRITICAL conversion: load conversion init failed: status=%d", engine.StatusCode(err))
		return fmt.Errorf("conversion: load conversion init: %w", err)
	}

	remaining := 1
	for i := 0; remaining > 0; i++ {
		if i >= iterationBound {
			c.logger.Printf("CRITICAL conversion: %d loads still unconverted after %d iterations", remaining, i)
			return fmt.Errorf("%w: %d remaining", ErrIterationBound, remaining)
		}
		var err error
		remaining, err = c.session.ConvertLoads(engine.LoadConversionIterate, params)
		if err != nil {
			c.logger.Printf("CRITICAL conversion: load conversion iteration failed: status=%d", engine.StatusCode(err))
			return fmt.Errorf("conversion: load conversion iterate: %w", err)
		}
	}

	if _, err := c.session.ConvertLoads(engine.LoadConversionFinalize, params); err != nil {
		c.logger.Printf("CRITICAL conversion: load conversion finalize failed: status=%d", engine.StatusCode(err))
		return fmt.Errorf("conversion: load conversion finalize: %w", err)
	}
	return nil
}
