// Package history persists completed study runs so fault-level results can
// be compared across network-case revisions.
package history

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Run is one completed (or failed) fault-study run.
type Run struct {
	ID         string
	CaseName   string
	FaultTimes []float64
	Unit       string
	Status     string
	BkdyIssue  bool
	Warnings   []string
	CreatedAt  time.Time
}

// Result is one per-bus row of a run's result table.
type Result struct {
	RunID string
	Bus   int
	Name  string

	InitialSym float64
	Peak       float64
	BreakSym   float64
	BreakAsym  float64
	DC         float64
	TheveninR  float64
	TheveninX  float64
	PrefaultV  float64
}

// Repository stores study runs.
type Repository interface {
	SaveRun(ctx context.Context, run Run, results []Result) error
	ListRuns(ctx context.Context, caseName string, limit int) ([]Run, error)
}

// NewID generates a random run id.
func NewID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return "run-" + hex.EncodeToString(buf)
}
