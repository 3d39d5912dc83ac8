package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Combination is the (agent, university, degree) key that points and
// scholarship commissions are accrued against
type Combination struct {
	AgentID      string
	UniversityID string
	DegreeID     string
}

// String returns a stable representation used for lock keys and logs
func (c Combination) String() string {
	return fmt.Sprintf("%s/%s/%s", c.AgentID, c.UniversityID, c.DegreeID)
}

// PointStatus is the lifecycle state of a scholarship point
type PointStatus string

const (
	PointStatusActive   PointStatus = "active"
	PointStatusRedeemed PointStatus = "redeemed"
	PointStatusExpired  PointStatus = "expired"
)

// ScholarshipPoint is one unit of progress toward a scholarship, earned by an approved application
type ScholarshipPoint struct {
	ID                     string
	AgentID                string
	UniversityID           string
	DegreeID               string
	DegreeName             string
	ProgramID              string
	ApplicationID          string // Unique: exactly one point per application
	StudentID              string
	Status                 PointStatus
	ApplicationYear        int
	CycleStart             time.Time
	CycleEnd               time.Time
	EarnedAt               time.Time
	ExpiresAt              time.Time
	RedeemedAt             *time.Time
	RedeemedInCommissionID string
}

// Combination returns the accrual key of the point
func (p *ScholarshipPoint) Combination() Combination {
	return Combination{AgentID: p.AgentID, UniversityID: p.UniversityID, DegreeID: p.DegreeID}
}

// ScholarshipCommissionStatus is the lifecycle state of a scholarship commission
type ScholarshipCommissionStatus string

const (
	ScholarshipStatusEarned  ScholarshipCommissionStatus = "earned"
	ScholarshipStatusUsed    ScholarshipCommissionStatus = "used"
	ScholarshipStatusExpired ScholarshipCommissionStatus = "expired"
)

// ScholarshipCommission is a redeemable free-application credit
type ScholarshipCommission struct {
	ID                    string
	CommissionNumber      string // SC-{year}-{seq}
	AgentID               string
	UniversityID          string
	DegreeID              string
	DegreeName            string
	QualifyingPointsCount int
	Status                ScholarshipCommissionStatus
	ApplicationYear       int
	EarnedAt              time.Time
	UsedAt                *time.Time
	UsedInApplicationID   string
	ExpiredAt             *time.Time
}

// FormatCommissionNumber builds the SC-{year}-{seq} identifier
func FormatCommissionNumber(year, seq int) string {
	return fmt.Sprintf("SC-%d-%04d", year, seq)
}

// ScholarshipRequirement is the per-university, per-degree threshold configuration
type ScholarshipRequirement struct {
	MinStudents          int // Agent threshold: points per agent scholarship
	MinAgentScholarships int // System threshold: points per university-owed scholarship
}

// InventoryStatus is the lifecycle state of an admin inventory row
type InventoryStatus string

const (
	InventoryStatusActive   InventoryStatus = "active"
	InventoryStatusClosed   InventoryStatus = "closed"
	InventoryStatusArchived InventoryStatus = "archived"
)

// InventoryKey identifies one admin inventory row
type InventoryKey struct {
	UniversityID    string
	DegreeID        string
	DegreeName      string
	ApplicationYear int
}

// AdminScholarshipInventory is the derived scholarship position of the house
// for one (university, degree, year)
type AdminScholarshipInventory struct {
	ID                        string
	UniversityID              string
	DegreeID                  string
	DegreeName                string
	ApplicationYear           int
	TotalApplications         int
	TotalFromUniversity       decimal.Decimal
	ScholarshipsGivenToAgents decimal.Decimal
	MarginScholarships        decimal.Decimal
	UnclaimedScholarships     decimal.Decimal
	AvailableScholarships     decimal.Decimal
	CalculationDetails        map[string]interface{}
	Status                    InventoryStatus
	LastCalculatedAt          time.Time
}

// Key returns the inventory key of the row
func (i *AdminScholarshipInventory) Key() InventoryKey {
	return InventoryKey{
		UniversityID:    i.UniversityID,
		DegreeID:        i.DegreeID,
		DegreeName:      i.DegreeName,
		ApplicationYear: i.ApplicationYear,
	}
}
