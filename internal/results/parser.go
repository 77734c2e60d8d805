package results

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Line markers emitted by the breaker-duty solver.
const (
	markerFaultedBus = "FAULTED BUS"
	markerCurrent    = "FAULT CURRENT"
	markerImpedance  = "THEVENIN IMPEDANCE"
)

// fieldsPerLine is the exact numeric field count of FAULT CURRENT and
// THEVENIN IMPEDANCE lines. Anything else is a fatal parse error.
const fieldsPerLine = 7

// numberPattern also matches the solver's overflow sentinel (a run of
// asterisks) and NaN so those can be mapped to zero instead of breaking the
// field count.
var numberPattern = regexp.MustCompile(`-?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?|\*+|NaN`)

// ParseError reports a solver output line that did not match the expected
// field count.
type ParseError struct {
	Line string
	Want int
	Got  int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("results: expected %d numeric fields, got %d in line %q", e.Want, e.Got, e.Line)
}

// CurrentLine is a parsed FAULT CURRENT record. Currents are in kiloamps as
// produced by the solver; scaling to the configured unit happens at table
// assembly.
type CurrentLine struct {
	InitialSym  float64
	Peak        float64
	BreakSym    float64
	BreakAsym   float64
	DCComponent float64
	PrefaultV   float64
	FaultMVA    float64
}

// ImpedanceLine is a parsed THEVENIN IMPEDANCE record, per unit on the study
// base MVA.
type ImpedanceLine struct {
	R     float64
	X     float64
	RNeg  float64
	XNeg  float64
	RZero float64
	XZero float64
	ZMag  float64
}

// BusRecord collects the records belonging to one faulted busbar within one
// fault-time output file.
type BusRecord struct {
	Bus  int
	Name string

	Current   CurrentLine
	Impedance ImpedanceLine
}

// Parser classifies and extracts raw solver output lines.
type Parser struct {
	logger   *log.Logger
	warnings []string
}

// NewParser returns a parser logging data-quality warnings to logger.
func NewParser(logger *log.Logger) *Parser {
	if logger == nil {
		logger = log.Default()
	}
	return &Parser{logger: logger}
}

// Warnings returns the accumulated data-quality warnings.
func (p *Parser) Warnings() []string {
	return p.warnings
}

// ParseFile parses one raw fault-output artifact.
func (p *Parser) ParseFile(path string) ([]BusRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("results: open %s: %w", path, err)
	}
	defer f.Close()
	records, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("results: parse %s: %w", path, err)
	}
	return records, nil
}

// Parse reads line-tagged solver output. Unrecognised lines are skipped;
// tagged lines with the wrong field count are fatal.
func (p *Parser) Parse(r io.Reader) ([]BusRecord, error) {
	var records []BusRecord
	var current *BusRecord

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, markerFaultedBus):
			if current != nil {
				records = append(records, *current)
			}
			bus, name, err := p.parseBusHeader(line)
			if err != nil {
				return nil, err
			}
			current = &BusRecord{Bus: bus, Name: name}

		case strings.HasPrefix(line, markerCurrent):
			values, err := p.parseValues(line, markerCurrent)
			if err != nil {
				return nil, err
			}
			if current == nil {
				return nil, &ParseError{Line: line, Want: fieldsPerLine, Got: len(values)}
			}
			current.Current = CurrentLine{
				InitialSym:  values[0],
				Peak:        values[1],
				BreakSym:    values[2],
				BreakAsym:   values[3],
				DCComponent: values[4],
				PrefaultV:   values[5],
				FaultMVA:    values[6],
			}

		case strings.HasPrefix(line, markerImpedance):
			values, err := p.parseValues(line, markerImpedance)
			if err != nil {
				return nil, err
			}
			if current == nil {
				return nil, &ParseError{Line: line, Want: fieldsPerLine, Got: len(values)}
			}
			current.Impedance = ImpedanceLine{
				R:     values[0],
				X:     values[1],
				RNeg:  values[2],
				XNeg:  values[3],
				RZero: values[4],
				XZero: values[5],
				ZMag:  values[6],
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("results: read: %w", err)
	}
	if current != nil {
		records = append(records, *current)
	}
	return records, nil
}

func (p *Parser) parseBusHeader(line string) (int, string, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, markerFaultedBus))
	match := numberPattern.FindString(rest)
	if match == "" {
		return 0, "", &ParseError{Line: line, Want: 1, Got: 0}
	}
	bus, err := strconv.Atoi(match)
	if err != nil {
		return 0, "", &ParseError{Line: line, Want: 1, Got: 0}
	}
	name := ""
	if open := strings.Index(rest, "["); open >= 0 {
		if end := strings.Index(rest[open:], "]"); end > 0 {
			name = strings.TrimSpace(rest[open+1 : open+end])
		}
	}
	return bus, name, nil
}

func (p *Parser) parseValues(line, marker string) ([]float64, error) {
	rest := strings.TrimPrefix(line, marker)
	matches := numberPattern.FindAllString(rest, -1)
	if len(matches) != fieldsPerLine {
		return nil, &ParseError{Line: line, Want: fieldsPerLine, Got: len(matches)}
	}
	values := make([]float64, fieldsPerLine)
	for i, m := range matches {
		// Field overflow prints as a run of asterisks; NaN leaks out of
		// the solver on some degenerate networks. Both are reported and
		// carried as zero rather than failing the study.
		if strings.HasPrefix(m, "*") || m == "NaN" {
			warning := fmt.Sprintf("unparseable value %q in %s line treated as 0.0", m, marker)
			p.warnings = append(p.warnings, warning)
			p.logger.Printf("results: %s", warning)
			values[i] = 0.0
			continue
		}
		v, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return nil, &ParseError{Line: line, Want: fieldsPerLine, Got: i}
		}
		values[i] = v
	}
	return values, nil
}
