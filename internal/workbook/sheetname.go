package workbook

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// sheetCollisionCap bounds the "(n)" suffix search when a requested sheet
// name already exists.
const sheetCollisionCap = 100

// ErrSheetNamesExhausted is returned when every suffixed variant of a sheet
// name up to the collision cap is already taken.
var ErrSheetNamesExhausted = errors.New("workbook: sheet name collisions exhausted")

// dedupeSheetName returns the requested name, or the first free "name(n)"
// variant when it collides with an existing sheet.
func dedupeSheetName(f *excelize.File, name string) (string, error) {
	idx, err := f.GetSheetIndex(name)
	if err != nil {
		return "", fmt.Errorf("workbook: sheet lookup %q: %w", name, err)
	}
	if idx == -1 {
		return name, nil
	}
	for n := 1; n <= sheetCollisionCap; n++ {
		candidate := fmt.Sprintf("%s(%d)", name, n)
		idx, err := f.GetSheetIndex(candidate)
		if err != nil {
			return "", fmt.Errorf("workbook: sheet lookup %q: %w", candidate, err)
		}
		if idx == -1 {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrSheetNamesExhausted, name)
}
