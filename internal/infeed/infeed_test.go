package infeed

import (
	"errors"
	"math"
	"strings"
	"testing"

	"g74-faultstudy/internal/config"
	"g74-faultstudy/internal/engine/local"
	"g74-faultstudy/internal/network"
)

type loadStub struct {
	loads []network.Load
	err   error
}

func (s *loadStub) Fetch() ([]network.Load, error) {
	return s.loads, s.err
}

func TestIdentifySkipsSmallLoads(t *testing.T) {
	loads := &loadStub{loads: []network.Load{
		{Bus: 101, ID: "1", MVA: 0.1, NominalKV: 11.0},
		{Bus: 102, ID: "1", MVA: 0.15, NominalKV: 11.0},
		{Bus: 103, ID: "1", MVA: 0.2, NominalKV: 11.0},
	}}
	m := NewModel(loads, config.Default(), nil)
	if err := m.IdentifyMachineParameters(); err != nil {
		t.Fatalf("identify error: %v", err)
	}
	eq := m.Equivalents()
	if len(eq) != 1 {
		t.Fatalf("got %d equivalents, want 1", len(eq))
	}
	if eq[0].Bus != 103 {
		t.Fatalf("equivalent at bus %d, want 103", eq[0].Bus)
	}
}

func TestIdentifySkipsUnknownVoltage(t *testing.T) {
	loads := &loadStub{loads: []network.Load{
		{Bus: 101, ID: "1", MVA: 5.0, NominalKV: 0},
		{Bus: 102, ID: "1", MVA: 5.0, NominalKV: 11.0},
	}}
	m := NewModel(loads, config.Default(), nil)
	if err := m.IdentifyMachineParameters(); err != nil {
		t.Fatalf("identify error: %v", err)
	}
	if len(m.Equivalents()) != 1 {
		t.Fatalf("got %d equivalents, want 1", len(m.Equivalents()))
	}
	warnings := m.Warnings()
	if len(warnings) != 1 {
		t.Fatalf("got %d warnings, want 1", len(warnings))
	}
	if !strings.Contains(warnings[0], "bus 101") {
		t.Fatalf("warning does not name the bus: %q", warnings[0])
	}
}

func TestImpedanceHasUnitMagnitude(t *testing.T) {
	loads := &loadStub{loads: []network.Load{
		{Bus: 101, ID: "1", MVA: 5.0, NominalKV: 33.0},
	}}
	cfg := config.Default()
	m := NewModel(loads, cfg, nil)
	if err := m.IdentifyMachineParameters(); err != nil {
		t.Fatalf("identify error: %v", err)
	}
	e := m.Equivalents()[0]
	mag := e.RPos*e.RPos + e.XPos*e.XPos
	if math.Abs(mag-1.0) > 1e-12 {
		t.Fatalf("r^2 + x^2 = %v, want 1", mag)
	}
	wantR := 1.0 / math.Sqrt(1.0+cfg.XR33*cfg.XR33)
	if math.Abs(e.RPos-wantR) > 1e-12 {
		t.Fatalf("r = %v, want %v", e.RPos, wantR)
	}
	if e.RZero != cfg.ZeroSequenceLarge || e.XZero != cfg.ZeroSequenceLarge {
		t.Fatalf("zero sequence = %v/%v, want %v", e.RZero, e.XZero, cfg.ZeroSequenceLarge)
	}
}

func TestCalculateAppliesVoltageClassMultipliers(t *testing.T) {
	loads := &loadStub{loads: []network.Load{
		{Bus: 1, ID: "1", MVA: 1.0, NominalKV: 0.415},
		{Bus: 2, ID: "1", MVA: 1.0, NominalKV: 11.0},
		{Bus: 3, ID: "1", MVA: 1.0, NominalKV: 33.0},
		{Bus: 4, ID: "1", MVA: 1.0, NominalKV: 132.0},
	}}
	m := NewModel(loads, config.Default(), nil)
	if err := m.IdentifyMachineParameters(); err != nil {
		t.Fatalf("identify error: %v", err)
	}
	if err := m.CalculateMachineMVAValues(); err != nil {
		t.Fatalf("calculate error: %v", err)
	}
	want := map[int]float64{1: 2.6, 2: 1.0, 3: 1.0, 4: 1.0}
	for _, e := range m.Equivalents() {
		if e.RatingMVA != want[e.Bus] {
			t.Fatalf("bus %d rating = %v, want %v", e.Bus, e.RatingMVA, want[e.Bus])
		}
	}
}

func TestAddMachinesWritesEquivalents(t *testing.T) {
	loads := &loadStub{loads: []network.Load{
		{Bus: 101, ID: "1", MVA: 5.0, NominalKV: 33.0},
	}}
	m := NewModel(loads, config.Default(), nil)
	if err := m.IdentifyMachineParameters(); err != nil {
		t.Fatalf("identify error: %v", err)
	}
	if err := m.CalculateMachineMVAValues(); err != nil {
		t.Fatalf("calculate error: %v", err)
	}

	session := local.New()
	if err := m.AddMachines(session); err != nil {
		t.Fatalf("add machines error: %v", err)
	}
	if len(session.Machines) != 1 {
		t.Fatalf("got %d machines, want 1", len(session.Machines))
	}
	got := session.Machines[0]
	if got.Bus != 101 || got.ID != MachineID {
		t.Fatalf("machine = %+v", got)
	}
	if got.MVABase != 5.0 {
		t.Fatalf("machine rating = %v, want 5.0", got.MVABase)
	}
	if got.XSubtransient != m.Equivalents()[0].XPos {
		t.Fatalf("subtransient reactance = %v, want %v", got.XSubtransient, m.Equivalents()[0].XPos)
	}
}

func TestCallOrderEnforced(t *testing.T) {
	m := NewModel(&loadStub{}, config.Default(), nil)

	if err := m.CalculateMachineMVAValues(); !errors.Is(err, ErrNotIdentified) {
		t.Fatalf("calculate before identify: %v", err)
	}
	if err := m.AddMachines(local.New()); !errors.Is(err, ErrNotIdentified) {
		t.Fatalf("add before identify: %v", err)
	}
	if err := m.IdentifyMachineParameters(); err != nil {
		t.Fatalf("identify error: %v", err)
	}
	if err := m.AddMachines(local.New()); !errors.Is(err, ErrNotCalculated) {
		t.Fatalf("add before calculate: %v", err)
	}
}

func TestIdentifyPropagatesFetchError(t *testing.T) {
	m := NewModel(&loadStub{err: errors.New("boom")}, config.Default(), nil)
	if err := m.IdentifyMachineParameters(); err == nil {
		t.Fatal("expected fetch error")
	}
}
