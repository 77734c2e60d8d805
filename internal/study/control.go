package study

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"g74-faultstudy/internal/config"
	"g74-faultstudy/internal/conversion"
	"g74-faultstudy/internal/engine"
)

var (
	// ErrNoCaseLoaded is returned when a reload or save is requested
	// before any case has been loaded.
	ErrNoCaseLoaded = errors.New("study: no case loaded")
	// ErrGeneratorsConverted is returned when a load flow is attempted on
	// a converted model, which requires a case reload first.
	ErrGeneratorsConverted = errors.New("study: generators converted, reload the case before running a load flow")
)

// CaseControl owns the case lifecycle for one engine session: loading,
// reloading and saving the network case, and running load flows with the
// study's fixed solution parameters. Loading a case always resets the
// conversion state.
type CaseControl struct {
	session   engine.Session
	converter *conversion.Converter
	cfg       config.Config
	logger    *log.Logger

	casePath string
	caseName string
}

// NewCaseControl wires case control over a session and its converter.
func NewCaseControl(session engine.Session, converter *conversion.Converter, cfg config.Config, logger *log.Logger) *CaseControl {
	if logger == nil {
		logger = log.Default()
	}
	return &CaseControl{session: session, converter: converter, cfg: cfg, logger: logger}
}

// CaseName is the base name of the loaded case, without extension.
func (c *CaseControl) CaseName() string { return c.caseName }

// LoadCase loads the case at path, or reloads the previous case when path is
// empty. Solution parameters are applied on every load so all studies run
// with the same tolerances; a failure there is a warning, not fatal.
func (c *CaseControl) LoadCase(path string) error {
	if path == "" {
		if c.casePath == "" {
			return ErrNoCaseLoaded
		}
		path = c.casePath
	} else {
		c.casePath = path
		base := filepath.Base(path)
		c.caseName = strings.TrimSuffix(base, filepath.Ext(base))
	}

	if err := c.session.LoadCase(path); err != nil {
		c.logger.Printf("CRITICAL study: unable to load case %s: status=%d", path, engine.StatusCode(err))
		return fmt.Errorf("study: load case %s: %w", path, err)
	}

	if err := c.session.SetSolutionParameters(c.cfg.MaxIterations, c.cfg.MVARTolerance); err != nil {
		c.logger.Printf("study: unable to set solution parameters (max_iterations=%d), continuing: status=%d",
			c.cfg.MaxIterations, engine.StatusCode(err))
	}

	c.converter.Reset()
	return nil
}

// SaveCase writes the current model state to path, or over the loaded case
// when path is empty.
func (c *CaseControl) SaveCase(path string) error {
	if path == "" {
		if c.casePath == "" {
			return ErrNoCaseLoaded
		}
		path = c.casePath
	}
	if err := c.session.SaveCase(path); err != nil {
		c.logger.Printf("CRITICAL study: unable to save case %s: status=%d", path, engine.StatusCode(err))
		return fmt.Errorf("study: save case %s: %w", path, err)
	}
	return nil
}

// RunLoadFlow solves a load flow and reports convergence. Attempting this on
// a converted model is fatal; islanded buses make the flow non-convergent
// but not fatal.
func (c *CaseControl) RunLoadFlow(opts engine.LoadFlowOptions) (bool, error) {
	err := c.session.SolveLoadFlow(opts)
	switch code := engine.StatusCode(err); {
	case err == nil:
	case code == 1 || code == 5:
		c.logger.Printf("CRITICAL study: load flow rejected, invalid options or prerequisites: status=%d", code)
		return false, fmt.Errorf("study: load flow: %w", err)
	case code == 2:
		c.logger.Printf("CRITICAL study: load flow attempted on converted generators")
		return false, ErrGeneratorsConverted
	case code == 3 || code == 4:
		c.logger.Printf("study: islanded busbars present, load flow not convergent: status=%d", code)
		return false, nil
	default:
		c.logger.Printf("CRITICAL study: load flow failed with unrecognised status=%d", code)
		return false, fmt.Errorf("study: load flow: %w", err)
	}

	switch solved := c.session.Solved(); solved {
	case 0:
		return true, nil
	case 1, 2, 3, 5:
		c.logger.Printf("study: non-convergent load flow: solved=%d", solved)
		return false, nil
	default:
		c.logger.Printf("study: load flow convergence check failed: solved=%d", solved)
		return false, nil
	}
}
