package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Current unit options for reported fault currents.
const (
	UnitKiloamps = "kA"
	UnitAmps     = "A"
)

// VoltageBracket gives the steady-state per-unit voltage limits that apply to
// busbars whose nominal voltage falls inside (Low, High].
type VoltageBracket struct {
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
	VMin float64 `yaml:"vmin"`
	VMax float64 `yaml:"vmax"`
}

// MVAMultipliers scales load MVA demand into the rating of the G7/4
// equivalent machine, selected by the connection voltage class.
type MVAMultipliers struct {
	LV   float64 `yaml:"lv"`
	HV   float64 `yaml:"hv"`
	KV11 float64 `yaml:"kv11"`
	KV33 float64 `yaml:"kv33"`
}

// TimeConstants are the open-circuit decay time constants assumed for every
// machine written to the breaker-duty impedance file. Q-axis values mirror
// the d-axis values.
type TimeConstants struct {
	Td0  float64 `yaml:"td0"`
	Tdd0 float64 `yaml:"tdd0"`
	Tq0  float64 `yaml:"tq0"`
	Tqq0 float64 `yaml:"tqq0"`
}

// Config carries every tunable constant of a fault-study run.
type Config struct {
	BaseMVA    float64 `yaml:"base_mva"`
	Unit       string  `yaml:"unit"`
	XR33       float64 `yaml:"x_r_33"`
	MinLoadMVA float64 `yaml:"min_load_mva"`

	FaultTimes []float64 `yaml:"fault_times"`

	Multipliers   MVAMultipliers   `yaml:"mva_multipliers"`
	TimeConstants TimeConstants    `yaml:"time_constants"`
	Brackets      []VoltageBracket `yaml:"voltage_brackets"`

	// Load-flow solution parameters applied on case load.
	MaxIterations int     `yaml:"max_iterations"`
	MVARTolerance float64 `yaml:"mw_mvar_tolerance"`

	// ZeroSequenceLarge pins the zero-sequence impedance of equivalent
	// machines so their zero-sequence infeed is negligible.
	ZeroSequenceLarge float64 `yaml:"zero_sequence_large"`

	DatabaseURL string `yaml:"database_url"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Default returns the configuration used when no file or env overrides are
// present. Bracket limits follow the post-contingency steady-state limits the
// study was originally commissioned against.
func Default() Config {
	return Config{
		BaseMVA:    100.0,
		Unit:       UnitKiloamps,
		XR33:       2.76,
		MinLoadMVA: 0.15,
		FaultTimes: []float64{0.01, 0.06},
		Multipliers: MVAMultipliers{
			LV:   2.6,
			HV:   1.0,
			KV11: 1.0,
			KV33: 1.0,
		},
		TimeConstants: TimeConstants{
			Td0:  0.04,
			Tdd0: 0.12,
			Tq0:  0.04,
			Tqq0: 0.12,
		},
		Brackets: []VoltageBracket{
			{Low: 109.0, High: 111.0, VMin: 99.0 / 110.0, VMax: 120.0 / 110.0},
			{Low: 219.0, High: 221.0, VMin: 200.0 / 220.0, VMax: 240.0 / 220.0},
			{Low: 250.0, High: 276.0, VMin: 250.0 / 275.0, VMax: 303.0 / 275.0},
			{Low: 379.0, High: 401.0, VMin: 360.0 / 380.0, VMax: 410.0 / 380.0},
		},
		MaxIterations:     100,
		MVARTolerance:     1.0,
		ZeroSequenceLarge: 999999.0,
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// FAULTSTUDY_CONFIG, and scalar env overrides, in that order.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("FAULTSTUDY_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if v := os.Getenv("FAULTSTUDY_UNIT"); v != "" {
		cfg.Unit = v
	}
	if v := os.Getenv("FAULTSTUDY_BASE_MVA"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("config: FAULTSTUDY_BASE_MVA: %w", err)
		}
		cfg.BaseMVA = f
	}
	if v := os.Getenv("FAULTSTUDY_FAULT_TIMES"); v != "" {
		times, err := parseFaultTimes(v)
		if err != nil {
			return cfg, err
		}
		cfg.FaultTimes = times
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}

	return cfg, cfg.Validate()
}

// Validate enforces the cross-field invariants the pipeline depends on.
func (c Config) Validate() error {
	if c.Unit != UnitKiloamps && c.Unit != UnitAmps {
		return fmt.Errorf("config: unit must be %q or %q, got %q", UnitKiloamps, UnitAmps, c.Unit)
	}
	if c.BaseMVA <= 0 {
		return errors.New("config: base MVA must be positive")
	}
	if len(c.FaultTimes) == 0 {
		return errors.New("config: at least one fault time required")
	}
	for _, t := range c.FaultTimes {
		if t < 0 {
			return fmt.Errorf("config: negative fault time %v", t)
		}
	}
	if c.MinLoadMVA < 0 {
		return errors.New("config: negative minimum load MVA")
	}
	if c.XR33 <= 0 {
		return errors.New("config: X/R ratio must be positive")
	}
	return nil
}

// LimitsFor resolves the voltage-limit bracket for a nominal voltage. The
// second return is false when no bracket matches, in which case the busbar
// carries no limits.
func (c Config) LimitsFor(nominalKV float64) (VoltageBracket, bool) {
	for _, b := range c.Brackets {
		if nominalKV > b.Low && nominalKV <= b.High {
			return b, true
		}
	}
	return VoltageBracket{}, false
}

// CurrentScale is the factor applied to solver currents (reported in kA) to
// express them in the configured unit.
func (c Config) CurrentScale() float64 {
	if c.Unit == UnitAmps {
		return 1000.0
	}
	return 1.0
}

func parseFaultTimes(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	times := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("config: fault time %q: %w", p, err)
		}
		times = append(times, f)
	}
	if len(times) == 0 {
		return nil, errors.New("config: empty fault time list")
	}
	return times, nil
}
