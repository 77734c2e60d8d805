package network

import (
	"testing"

	"g74-faultstudy/internal/config"
	"g74-faultstudy/internal/engine"
	"g74-faultstudy/internal/engine/local"
)

func sessionFixture() *local.Engine {
	e := local.New()
	e.Buses = []local.Bus{
		{Number: 101, State: 1, BaseKV: 110.0, PU: 1.01, Name: "GRID A"},
		{Number: 204, State: 2, BaseKV: 11.0, PU: 0.99, Name: "MILL"},
	}
	e.Machines = []local.Machine{
		{Bus: 101, ID: "G1", XSubtransient: 0.1, XTransient: 0.2, XSynchronous: 0.3},
	}
	e.Loads = []local.Load{
		{Bus: 204, ID: "1", MVA: 5.0, BaseKV: 11.0},
	}
	e.InductionCount = 2
	return e
}

func TestBusDataFetch(t *testing.T) {
	session := sessionFixture()
	buses, err := NewBusData(session, config.Default(), nil).Fetch()
	if err != nil {
		t.Fatalf("fetch error: %v", err)
	}
	if len(buses) != 2 {
		t.Fatalf("got %d buses, want 2", len(buses))
	}

	grid := buses[0]
	if grid.Number != 101 || grid.Name != "GRID A" || grid.State != 1 {
		t.Fatalf("bus = %+v", grid)
	}
	if grid.NominalKV != 110.0 || grid.PU != 1.01 {
		t.Fatalf("bus voltages = %+v", grid)
	}
	// 110 kV falls in a limit bracket; 11 kV does not.
	if !grid.HasLimits {
		t.Fatal("expected limits for 110 kV bus")
	}
	if grid.LowerLimit != 99.0/110.0 || grid.UpperLimit != 120.0/110.0 {
		t.Fatalf("limits = %v..%v", grid.LowerLimit, grid.UpperLimit)
	}
	if buses[1].HasLimits {
		t.Fatal("11 kV bus should carry no limits")
	}
}

func TestBusDataFailurePropagates(t *testing.T) {
	session := sessionFixture()
	session.FailWith(engine.OpBusReals, 3)
	if _, err := NewBusData(session, config.Default(), nil).Fetch(); engine.StatusCode(err) != 3 {
		t.Fatalf("got %v, want status 3", err)
	}
}

func TestMachineDataFetch(t *testing.T) {
	machines, err := NewMachineData(sessionFixture(), nil).Fetch()
	if err != nil {
		t.Fatalf("fetch error: %v", err)
	}
	if len(machines) != 1 {
		t.Fatalf("got %d machines, want 1", len(machines))
	}
	m := machines[0]
	if m.Bus != 101 || m.ID != "G1" {
		t.Fatalf("machine = %+v", m)
	}
	if m.XSubtransient != 0.1 || m.XTransient != 0.2 || m.XSynchronous != 0.3 {
		t.Fatalf("machine reactances = %+v", m)
	}
}

func TestLoadDataFetch(t *testing.T) {
	loads, err := NewLoadData(sessionFixture(), nil).Fetch()
	if err != nil {
		t.Fatalf("fetch error: %v", err)
	}
	if len(loads) != 1 {
		t.Fatalf("got %d loads, want 1", len(loads))
	}
	l := loads[0]
	if l.Bus != 204 || l.ID != "1" || l.MVA != 5.0 || l.NominalKV != 11.0 {
		t.Fatalf("load = %+v", l)
	}
}

func TestInductionDataCaches(t *testing.T) {
	session := sessionFixture()
	d := NewInductionData(session, nil)

	n, err := d.Count(false)
	if err != nil || n != 2 {
		t.Fatalf("count = %d, %v", n, err)
	}
	if _, err := d.Count(false); err != nil {
		t.Fatalf("cached count error: %v", err)
	}
	if got := session.CallCount(engine.OpInductionCount); got != 1 {
		t.Fatalf("engine queries = %d, want 1 (cached)", got)
	}

	if _, err := d.Count(true); err != nil {
		t.Fatalf("reset count error: %v", err)
	}
	if got := session.CallCount(engine.OpInductionCount); got != 2 {
		t.Fatalf("engine queries = %d, want 2 after reset", got)
	}
}
