package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FAULTSTUDY_UNIT", UnitAmps)
	t.Setenv("FAULTSTUDY_BASE_MVA", "50")
	t.Setenv("FAULTSTUDY_FAULT_TIMES", "0.02, 0.1")
	t.Setenv("DATABASE_URL", "postgres://localhost/faults")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Unit != UnitAmps {
		t.Fatalf("unit = %q, want %q", cfg.Unit, UnitAmps)
	}
	if cfg.BaseMVA != 50 {
		t.Fatalf("base MVA = %v, want 50", cfg.BaseMVA)
	}
	if len(cfg.FaultTimes) != 2 || cfg.FaultTimes[0] != 0.02 || cfg.FaultTimes[1] != 0.1 {
		t.Fatalf("fault times = %v", cfg.FaultTimes)
	}
	if cfg.DatabaseURL != "postgres://localhost/faults" {
		t.Fatalf("database url = %q", cfg.DatabaseURL)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faultstudy.yaml")
	data := []byte("unit: A\nmin_load_mva: 0.5\nmva_multipliers:\n  lv: 3.0\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("FAULTSTUDY_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Unit != UnitAmps {
		t.Fatalf("unit = %q, want %q", cfg.Unit, UnitAmps)
	}
	if cfg.MinLoadMVA != 0.5 {
		t.Fatalf("min load MVA = %v, want 0.5", cfg.MinLoadMVA)
	}
	if cfg.Multipliers.LV != 3.0 {
		t.Fatalf("LV multiplier = %v, want 3.0", cfg.Multipliers.LV)
	}
	// Untouched values keep their defaults.
	if cfg.XR33 != 2.76 {
		t.Fatalf("X/R = %v, want default 2.76", cfg.XR33)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad unit", func(c *Config) { c.Unit = "MA" }},
		{"zero base", func(c *Config) { c.BaseMVA = 0 }},
		{"no fault times", func(c *Config) { c.FaultTimes = nil }},
		{"negative fault time", func(c *Config) { c.FaultTimes = []float64{-0.01} }},
		{"negative min load", func(c *Config) { c.MinLoadMVA = -1 }},
		{"zero X/R", func(c *Config) { c.XR33 = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadRejectsBadFaultTimes(t *testing.T) {
	t.Setenv("FAULTSTUDY_FAULT_TIMES", "0.01,abc")
	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLimitsFor(t *testing.T) {
	cfg := Default()

	bracket, ok := cfg.LimitsFor(110.0)
	if !ok {
		t.Fatal("expected a bracket for 110 kV")
	}
	if bracket.VMin != 99.0/110.0 || bracket.VMax != 120.0/110.0 {
		t.Fatalf("110 kV limits = %v..%v", bracket.VMin, bracket.VMax)
	}

	if _, ok := cfg.LimitsFor(11.0); ok {
		t.Fatal("11 kV should carry no limits")
	}
	if _, ok := cfg.LimitsFor(275.0); !ok {
		t.Fatal("275 kV should fall in the 250..276 bracket")
	}
}

func TestCurrentScale(t *testing.T) {
	cfg := Default()
	if cfg.CurrentScale() != 1.0 {
		t.Fatalf("kA scale = %v, want 1", cfg.CurrentScale())
	}
	cfg.Unit = UnitAmps
	if cfg.CurrentScale() != 1000.0 {
		t.Fatalf("A scale = %v, want 1000", cfg.CurrentScale())
	}
}

func TestParseFaultTimesEmpty(t *testing.T) {
	if _, err := parseFaultTimes(" , "); err == nil {
		t.Fatal("expected error for empty list")
	}
	if _, err := parseFaultTimes("0.01"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
