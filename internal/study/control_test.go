package study

import (
	"errors"
	"testing"

	"g74-faultstudy/internal/config"
	"g74-faultstudy/internal/conversion"
	"g74-faultstudy/internal/engine"
	"g74-faultstudy/internal/engine/local"
	"g74-faultstudy/internal/network"
)

func controlFixture() (*CaseControl, *local.Engine, *conversion.Converter) {
	session := local.New()
	session.Buses = []local.Bus{{Number: 101, State: 1, BaseKV: 33.0, PU: 1.0, Name: "A"}}
	converter := conversion.New(session, network.NewInductionData(session, nil), nil)
	return NewCaseControl(session, converter, config.Default(), nil), session, converter
}

func TestLoadCaseSetsName(t *testing.T) {
	control, session, _ := controlFixture()

	if err := control.LoadCase("cases/winter_peak.sav"); err != nil {
		t.Fatalf("load case: %v", err)
	}
	if control.CaseName() != "winter_peak" {
		t.Fatalf("case name = %q", control.CaseName())
	}
	if session.CallCount(engine.OpSolutionParameters) != 1 {
		t.Fatal("solution parameters not applied on load")
	}
}

func TestReloadBeforeLoadFails(t *testing.T) {
	control, _, _ := controlFixture()
	if err := control.LoadCase(""); !errors.Is(err, ErrNoCaseLoaded) {
		t.Fatalf("got %v, want no-case error", err)
	}
	if err := control.SaveCase(""); !errors.Is(err, ErrNoCaseLoaded) {
		t.Fatalf("save got %v, want no-case error", err)
	}
}

func TestReloadResetsConversion(t *testing.T) {
	control, session, converter := controlFixture()

	if err := control.LoadCase("winter_peak.sav"); err != nil {
		t.Fatalf("load case: %v", err)
	}
	if err := converter.Convert(); err != nil {
		t.Fatalf("convert: %v", err)
	}
	if converter.State() != conversion.Converted {
		t.Fatalf("state = %v", converter.State())
	}

	if err := control.LoadCase(""); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if converter.State() != conversion.Unconverted {
		t.Fatal("reload should reset conversion state")
	}
	if session.CallCount(engine.OpLoadCase) != 2 {
		t.Fatalf("load calls = %d, want 2", session.CallCount(engine.OpLoadCase))
	}
}

func TestSolutionParameterFailureIsWarning(t *testing.T) {
	control, session, _ := controlFixture()
	session.FailWith(engine.OpSolutionParameters, 1)

	if err := control.LoadCase("winter_peak.sav"); err != nil {
		t.Fatalf("load should survive solution parameter failure: %v", err)
	}
}

func TestRunLoadFlowConvergent(t *testing.T) {
	control, _, _ := controlFixture()
	if err := control.LoadCase("winter_peak.sav"); err != nil {
		t.Fatalf("load case: %v", err)
	}

	convergent, err := control.RunLoadFlow(engine.LoadFlowOptions{})
	if err != nil {
		t.Fatalf("load flow error: %v", err)
	}
	if !convergent {
		t.Fatal("expected convergent load flow")
	}
}

func TestRunLoadFlowOnConvertedModel(t *testing.T) {
	control, session, _ := controlFixture()
	session.FailWith(engine.OpLoadFlow, 2)

	if _, err := control.RunLoadFlow(engine.LoadFlowOptions{}); !errors.Is(err, ErrGeneratorsConverted) {
		t.Fatalf("got %v, want converted-generators error", err)
	}
}

func TestRunLoadFlowIslandedNotFatal(t *testing.T) {
	control, session, _ := controlFixture()
	session.FailWith(engine.OpLoadFlow, 3)

	convergent, err := control.RunLoadFlow(engine.LoadFlowOptions{})
	if err != nil {
		t.Fatalf("islanded buses should not be fatal: %v", err)
	}
	if convergent {
		t.Fatal("islanded load flow reported convergent")
	}
}

func TestRunLoadFlowRejected(t *testing.T) {
	control, session, _ := controlFixture()
	session.FailWith(engine.OpLoadFlow, 1)

	if _, err := control.RunLoadFlow(engine.LoadFlowOptions{}); err == nil {
		t.Fatal("expected fatal load flow error")
	}
}
