// Package results turns raw breaker-duty solver output into the
// unit-normalized result table used for engineering sign-off.
package results

// Field enumerates the reported result quantities. Each field carries its
// own display label, unit and the fault-time label it is drawn from, so no
// stringly-typed column lookups are needed downstream.
type Field int

const (
	// Make quantities, drawn from the near-instantaneous fault time.
	FieldInitialSym Field = iota
	FieldPeak
	FieldTheveninR
	FieldTheveninX

	// Break quantities, drawn from the clearing time.
	FieldBreakSym
	FieldBreakAsym
	FieldDCComponent

	FieldPrefaultVoltage
)

// Phase labels per the G7/4 make/break convention.
type Phase int

const (
	PhaseMake Phase = iota
	PhaseBreak
	PhaseSteady
)

func (p Phase) String() string {
	switch p {
	case PhaseMake:
		return "Make"
	case PhaseBreak:
		return "Break"
	default:
		return "Steady"
	}
}

// Phase reports which fault-time run the field's value is taken from.
func (f Field) Phase() Phase {
	switch f {
	case FieldBreakSym, FieldBreakAsym, FieldDCComponent:
		return PhaseBreak
	case FieldPrefaultVoltage:
		return PhaseSteady
	default:
		return PhaseMake
	}
}

// Label is the externally meaningful column heading.
func (f Field) Label() string {
	switch f {
	case FieldInitialSym:
		return "Ik'' Initial Symmetrical"
	case FieldPeak:
		return "ip Peak Make"
	case FieldBreakSym:
		return "Ib Symmetrical Break"
	case FieldBreakAsym:
		return "Ib Asymmetrical Break"
	case FieldDCComponent:
		return "Idc DC Component"
	case FieldTheveninR:
		return "R Thevenin"
	case FieldTheveninX:
		return "X Thevenin"
	case FieldPrefaultVoltage:
		return "V Prefault"
	default:
		return "Unknown"
	}
}

// Unit returns the display unit given the process-wide current unit.
func (f Field) Unit(currentUnit string) string {
	switch f {
	case FieldInitialSym, FieldPeak, FieldBreakSym, FieldBreakAsym, FieldDCComponent:
		return currentUnit
	case FieldTheveninR, FieldTheveninX:
		return "pu"
	case FieldPrefaultVoltage:
		return "pu"
	default:
		return ""
	}
}

// IsCurrent reports whether the field scales with the current-unit setting.
func (f Field) IsCurrent() bool {
	switch f {
	case FieldInitialSym, FieldPeak, FieldBreakSym, FieldBreakAsym, FieldDCComponent:
		return true
	default:
		return false
	}
}

// Columns is the fixed, externally meaningful column order of the final
// result table.
func Columns() []Field {
	return []Field{FieldInitialSym, FieldPeak, FieldBreakSym, FieldTheveninR, FieldTheveninX}
}
