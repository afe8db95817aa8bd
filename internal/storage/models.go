package storage

import "time"

// Run is one recorded design analysis.
type Run struct {
	ID          string
	Folder      string
	TopModule   string
	StartedAt   time.Time
	FinishedAt  time.Time
	Success     bool
	Error       string
	Predicted   *bool // nil when no verdict was produced
	Actual      *bool // nil when the design had no label
	Correct     *bool // nil unless both Predicted and Actual are set
	LeakageType string
	Flat        bool
	Cyclic      bool
	Modules     []RunModule
}

// RunModule is one entry of a run's module order.
type RunModule struct {
	Position     int
	Name         string
	Dependencies []string
}

// ListOptions filters ListRuns.
type ListOptions struct {
	Folder string // Exact match, empty for all
	Limit  int    // 0 means no limit
}

// Accuracy summarizes labeled runs.
type Accuracy struct {
	Labeled int
	Correct int
}

// Percent returns the share of correct predictions, or 0 without labeled runs.
func (a Accuracy) Percent() float64 {
	if a.Labeled == 0 {
		return 0
	}
	return float64(a.Correct) / float64(a.Labeled) * 100
}
