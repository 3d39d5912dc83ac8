package entities

import "fmt"

// ProcessResult reports the outcome of an accrual operation. Precondition
// failures are reported here instead of as errors since they are routine.
type ProcessResult struct {
	Success            bool
	Message            string
	Debug              []string
	Point              *ScholarshipPoint
	CommissionsCreated int
}

// Debugf appends a formatted line to the debug trace
func (r *ProcessResult) Debugf(format string, v ...interface{}) {
	r.Debug = append(r.Debug, fmt.Sprintf(format, v...))
}

// Fail marks the result as unsuccessful with a message
func (r *ProcessResult) Fail(message string) *ProcessResult {
	r.Success = false
	r.Message = message
	return r
}

// RepairSummary collects the outcome of a sweep over many items
type RepairSummary struct {
	Processed int
	Created   int
	Failed    int
	Errors    []string
	Details   []string
}

// AddError records a per-item failure and keeps the sweep going
func (s *RepairSummary) AddError(item string, err error) {
	s.Failed++
	s.Errors = append(s.Errors, fmt.Sprintf("%s: %v", item, err))
}

// CycleReset reports what a cycle rollover closed out
type CycleReset struct {
	CycleYear          int
	PointsExpired      int
	CommissionsExpired int
	InventoriesClosed  int
}
