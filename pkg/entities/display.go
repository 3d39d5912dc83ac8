package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScholarshipProgress is the read-only view of one combination for an agent
type ScholarshipProgress struct {
	Combination
	DegreeName          string
	ThresholdConfigured bool
	Threshold           int
	ActivePoints        int
	PointsToNext        int
	EarnedCommissions   int
	UsedCommissions     int
	ExpiredCommissions  int
}

// AgentContribution is one agent's share of a system projection
type AgentContribution struct {
	AgentID         string
	TotalPoints     int
	CompletedCycles int // floor(total / agent threshold)
	PartialProgress int // points into the cycle in progress
}

// SystemProjection is the house's scholarship position for one (university, degree)
type SystemProjection struct {
	UniversityID                 string
	DegreeID                     string
	DegreeName                   string
	ApplicationYear              int // 0 when projected across every cycle year
	UniversityThreshold          int
	AgentThreshold               int
	GCD                          int
	AgentsNeeded                 int
	StudentsPerSystemScholarship int
	TotalStudents                int
	SystemScholarshipsEarned     int
	CurrentCycleProgress         int
	ProgressPercentage           decimal.Decimal
	Agents                       []AgentContribution
}

// SkippedProjection names a (university, degree) that could not be projected
type SkippedProjection struct {
	UniversityID string
	DegreeID     string
	DegreeName   string
	Reason       string
}

// ProjectionReport is the result of projecting every (university, degree) with points
type ProjectionReport struct {
	GeneratedAt time.Time
	Projections []*SystemProjection
	Skipped     []SkippedProjection
}
