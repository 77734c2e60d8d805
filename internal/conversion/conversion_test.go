package conversion

import (
	"errors"
	"testing"

	"g74-faultstudy/internal/engine"
	"g74-faultstudy/internal/engine/local"
)

type countStub struct {
	n   int
	err error
}

func (s countStub) Count(reset bool) (int, error) {
	return s.n, s.err
}

func modelWithLoads(n int) *local.Engine {
	e := local.New()
	for i := 0; i < n; i++ {
		e.Loads = append(e.Loads, local.Load{Bus: 100 + i, ID: "1", MVA: 1.0, BaseKV: 11.0})
	}
	return e
}

func TestConvertSequence(t *testing.T) {
	session := modelWithLoads(2)
	c := New(session, countStub{}, nil)

	if c.State() != Unconverted {
		t.Fatalf("initial state = %v", c.State())
	}
	if err := c.Convert(); err != nil {
		t.Fatalf("convert error: %v", err)
	}
	if c.State() != Converted {
		t.Fatalf("state = %v, want converted", c.State())
	}

	if n := session.CallCount(engine.OpConvertGenerators); n != 1 {
		t.Fatalf("generator conversions = %d, want 1", n)
	}
	// Init, at least one iteration, finalize.
	if n := session.CallCount(engine.OpConvertLoads); n < 3 {
		t.Fatalf("load conversion calls = %d, want >= 3", n)
	}
	if n := session.CallCount(engine.OpOrderBuses); n != 1 {
		t.Fatalf("orderings = %d, want 1", n)
	}
	if n := session.CallCount(engine.OpFactorize); n != 1 {
		t.Fatalf("factorizations = %d, want 1", n)
	}
}

func TestConvertIsIdempotent(t *testing.T) {
	session := modelWithLoads(1)
	c := New(session, countStub{}, nil)

	if err := c.Convert(); err != nil {
		t.Fatalf("first convert error: %v", err)
	}
	if err := c.Convert(); err != nil {
		t.Fatalf("second convert error: %v", err)
	}

	if n := session.CallCount(engine.OpConvertGenerators); n != 1 {
		t.Fatalf("generator conversions = %d, want 1 after repeat", n)
	}
	// Ordering and factorization still run on the repeat.
	if n := session.CallCount(engine.OpOrderBuses); n != 2 {
		t.Fatalf("orderings = %d, want 2", n)
	}
	if n := session.CallCount(engine.OpFactorize); n != 2 {
		t.Fatalf("factorizations = %d, want 2", n)
	}
}

func TestResetAllowsReconversion(t *testing.T) {
	session := modelWithLoads(1)
	c := New(session, countStub{}, nil)

	if err := c.Convert(); err != nil {
		t.Fatalf("convert error: %v", err)
	}
	c.Reset()
	if c.State() != Unconverted {
		t.Fatalf("state after reset = %v", c.State())
	}
	if err := c.Convert(); err != nil {
		t.Fatalf("reconvert error: %v", err)
	}
	if n := session.CallCount(engine.OpConvertGenerators); n != 2 {
		t.Fatalf("generator conversions = %d, want 2 after reset", n)
	}
}

func TestIterationBound(t *testing.T) {
	session := modelWithLoads(3)
	session.StickyLoads = 2
	c := New(session, countStub{}, nil)

	err := c.Convert()
	if !errors.Is(err, ErrIterationBound) {
		t.Fatalf("got %v, want iteration bound error", err)
	}
	if c.State() != Unconverted {
		t.Fatalf("state = %v, want unconverted after failure", c.State())
	}
}

func TestInductionMachinesFlagAccuracyIssue(t *testing.T) {
	c := New(modelWithLoads(1), countStub{n: 3}, nil)
	if err := c.Convert(); err != nil {
		t.Fatalf("convert error: %v", err)
	}
	if !c.BkdyIssue() {
		t.Fatal("expected accuracy issue flag with induction machines present")
	}

	clean := New(modelWithLoads(1), countStub{}, nil)
	if err := clean.Convert(); err != nil {
		t.Fatalf("convert error: %v", err)
	}
	if clean.BkdyIssue() {
		t.Fatal("unexpected accuracy issue flag")
	}
}

func TestGeneratorAlreadyConvertedContinues(t *testing.T) {
	session := modelWithLoads(1)
	session.FailWith(engine.OpConvertGenerators, 2)
	c := New(session, countStub{}, nil)

	if err := c.Convert(); err != nil {
		t.Fatalf("status 2 should not abort: %v", err)
	}
	if c.State() != Converted {
		t.Fatalf("state = %v, want converted", c.State())
	}
}

func TestGeneratorConversionRejected(t *testing.T) {
	session := modelWithLoads(1)
	session.FailWith(engine.OpConvertGenerators, 3)
	c := New(session, countStub{}, nil)

	err := c.Convert()
	if !errors.Is(err, ErrGeneratorConversion) {
		t.Fatalf("got %v, want generator conversion error", err)
	}
}

func TestInductionCountErrorIsFatal(t *testing.T) {
	c := New(modelWithLoads(1), countStub{err: errors.New("count failed")}, nil)
	if err := c.Convert(); err == nil {
		t.Fatal("expected error from induction count")
	}
}
