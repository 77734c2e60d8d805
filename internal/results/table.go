package results

import (
	"errors"
	"fmt"
	"log"
	"sort"

	"g74-faultstudy/internal/config"
)

var (
	// ErrNoOutputs is returned when assembly runs with no parsed records.
	ErrNoOutputs = errors.New("results: no solver outputs to assemble")
	// ErrMissingBreakRun is returned when the make-time records have no
	// matching break-time records.
	ErrMissingBreakRun = errors.New("results: no break-time solver output")
)

// Row is the finished result set for one faulted busbar. Values are keyed by
// the enumerated field, already scaled into the configured current unit.
type Row struct {
	Bus    int
	Name   string
	Values map[Field]float64
}

// Table is the final per-bus result table: one row per faulted busbar, with
// make quantities from the near-instantaneous run and break quantities from
// the clearing-time run. Immutable once assembled.
type Table struct {
	MakeTime  float64
	BreakTime float64
	Unit      string

	rows []Row
}

// Rows returns the rows in ascending busbar order.
func (t *Table) Rows() []Row {
	return t.rows
}

// Row finds the row for one busbar.
func (t *Table) Row(bus int) (Row, bool) {
	for _, r := range t.rows {
		if r.Bus == bus {
			return r, true
		}
	}
	return Row{}, false
}

// Assemble combines parsed per-fault-time records into the final table. The
// shortest fault time supplies the make quantities, the longest the break
// quantities; with a single fault time both labels draw from the same run.
func Assemble(byTime map[float64][]BusRecord, cfg config.Config, logger *log.Logger) (*Table, error) {
	if logger == nil {
		logger = log.Default()
	}
	if len(byTime) == 0 {
		return nil, ErrNoOutputs
	}

	times := make([]float64, 0, len(byTime))
	for t := range byTime {
		times = append(times, t)
	}
	sort.Float64s(times)
	makeTime := times[0]
	breakTime := times[len(times)-1]
	if len(times) > 2 {
		logger.Printf("results: %d fault times supplied, make=%.3fs break=%.3fs, intermediate runs ignored in the table",
			len(times), makeTime, breakTime)
	}

	makeRecords := byTime[makeTime]
	breakRecords := byTime[breakTime]
	if len(breakRecords) == 0 {
		return nil, ErrMissingBreakRun
	}
	breakByBus := make(map[int]BusRecord, len(breakRecords))
	for _, r := range breakRecords {
		breakByBus[r.Bus] = r
	}

	scale := cfg.CurrentScale()
	rows := make([]Row, 0, len(makeRecords))
	for _, mk := range makeRecords {
		br, ok := breakByBus[mk.Bus]
		if !ok {
			return nil, fmt.Errorf("results: bus %d present at %.3fs but missing from %.3fs run", mk.Bus, makeTime, breakTime)
		}
		rows = append(rows, Row{
			Bus:  mk.Bus,
			Name: mk.Name,
			Values: map[Field]float64{
				FieldInitialSym:      mk.Current.InitialSym * scale,
				FieldPeak:            mk.Current.Peak * scale,
				FieldTheveninR:       mk.Impedance.R,
				FieldTheveninX:       mk.Impedance.X,
				FieldBreakSym:        br.Current.BreakSym * scale,
				FieldBreakAsym:       br.Current.BreakAsym * scale,
				FieldDCComponent:     br.Current.DCComponent * scale,
				FieldPrefaultVoltage: mk.Current.PrefaultV,
			},
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Bus < rows[j].Bus })

	return &Table{
		MakeTime:  makeTime,
		BreakTime: breakTime,
		Unit:      cfg.Unit,
		rows:      rows,
	}, nil
}
