package results

import (
	"errors"
	"testing"

	"g74-faultstudy/internal/config"
)

func record(bus int, name string, initial, brk float64) BusRecord {
	return BusRecord{
		Bus:  bus,
		Name: name,
		Current: CurrentLine{
			InitialSym:  initial,
			Peak:        initial * 2.5,
			BreakSym:    brk,
			BreakAsym:   brk * 1.1,
			DCComponent: brk * 0.5,
			PrefaultV:   1.0,
		},
		Impedance: ImpedanceLine{R: 0.004, X: 0.04},
	}
}

func TestAssembleMakeAndBreak(t *testing.T) {
	byTime := map[float64][]BusRecord{
		0.01: {record(101, "GRID A", 12.5, 11.9), record(204, "MILL", 4.2, 4.0)},
		0.06: {record(101, "GRID A", 12.5, 9.8), record(204, "MILL", 4.2, 3.1)},
	}
	table, err := Assemble(byTime, config.Default(), nil)
	if err != nil {
		t.Fatalf("assemble error: %v", err)
	}
	if table.MakeTime != 0.01 || table.BreakTime != 0.06 {
		t.Fatalf("times = %v/%v", table.MakeTime, table.BreakTime)
	}

	rows := table.Rows()
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Bus != 101 || rows[1].Bus != 204 {
		t.Fatalf("row order = %d, %d", rows[0].Bus, rows[1].Bus)
	}

	row, ok := table.Row(101)
	if !ok {
		t.Fatal("bus 101 missing")
	}
	// Make quantities come from the 0.01s run, break from the 0.06s run.
	if row.Values[FieldInitialSym] != 12.5 {
		t.Fatalf("initial sym = %v", row.Values[FieldInitialSym])
	}
	if row.Values[FieldBreakSym] != 9.8 {
		t.Fatalf("break sym = %v, want from 0.06s run", row.Values[FieldBreakSym])
	}
	if row.Values[FieldTheveninX] != 0.04 {
		t.Fatalf("thevenin X = %v", row.Values[FieldTheveninX])
	}
}

func TestAssembleScalesToAmps(t *testing.T) {
	cfg := config.Default()
	cfg.Unit = config.UnitAmps

	byTime := map[float64][]BusRecord{
		0.01: {record(101, "A", 12.5, 11.9)},
	}
	table, err := Assemble(byTime, cfg, nil)
	if err != nil {
		t.Fatalf("assemble error: %v", err)
	}
	row, _ := table.Row(101)
	if row.Values[FieldInitialSym] != 12500.0 {
		t.Fatalf("initial sym = %v, want 12500 A", row.Values[FieldInitialSym])
	}
	// Impedances stay per unit regardless of the current unit.
	if row.Values[FieldTheveninR] != 0.004 {
		t.Fatalf("thevenin R = %v", row.Values[FieldTheveninR])
	}
	if table.Unit != config.UnitAmps {
		t.Fatalf("unit = %q", table.Unit)
	}
}

func TestAssembleSingleTime(t *testing.T) {
	byTime := map[float64][]BusRecord{
		0.06: {record(101, "A", 12.5, 9.8)},
	}
	table, err := Assemble(byTime, config.Default(), nil)
	if err != nil {
		t.Fatalf("assemble error: %v", err)
	}
	if table.MakeTime != 0.06 || table.BreakTime != 0.06 {
		t.Fatalf("times = %v/%v, want both 0.06", table.MakeTime, table.BreakTime)
	}
}

func TestAssembleEmpty(t *testing.T) {
	if _, err := Assemble(nil, config.Default(), nil); !errors.Is(err, ErrNoOutputs) {
		t.Fatalf("got %v, want no-outputs error", err)
	}
}

func TestAssembleMissingBusAtBreakTime(t *testing.T) {
	byTime := map[float64][]BusRecord{
		0.01: {record(101, "A", 12.5, 11.9), record(204, "B", 4.2, 4.0)},
		0.06: {record(101, "A", 12.5, 9.8)},
	}
	if _, err := Assemble(byTime, config.Default(), nil); err == nil {
		t.Fatal("expected error for bus missing from break run")
	}
}

func TestAssembleEmptyBreakRun(t *testing.T) {
	byTime := map[float64][]BusRecord{
		0.01: {record(101, "A", 12.5, 11.9)},
		0.06: {},
	}
	if _, err := Assemble(byTime, config.Default(), nil); !errors.Is(err, ErrMissingBreakRun) {
		t.Fatalf("got %v, want missing break run", err)
	}
}

func TestFieldMetadata(t *testing.T) {
	if FieldInitialSym.Phase() != PhaseMake || FieldBreakSym.Phase() != PhaseBreak {
		t.Fatal("phase assignment wrong")
	}
	if FieldPrefaultVoltage.Phase() != PhaseSteady {
		t.Fatal("prefault voltage should be steady state")
	}
	if FieldInitialSym.Unit("kA") != "kA" || FieldTheveninX.Unit("kA") != "pu" {
		t.Fatal("unit assignment wrong")
	}
	if !FieldPeak.IsCurrent() || FieldTheveninR.IsCurrent() {
		t.Fatal("current classification wrong")
	}
	if len(Columns()) != 5 {
		t.Fatalf("column count = %d, want 5", len(Columns()))
	}
}
