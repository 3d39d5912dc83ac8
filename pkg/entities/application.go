package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// ApplicationStatus is the lifecycle state of a student application
type ApplicationStatus string

const (
	StatusNeedsReview               ApplicationStatus = "needs_review"
	StatusSubmitted                 ApplicationStatus = "submitted"
	StatusAdditionalDocumentsNeeded ApplicationStatus = "additional_documents_needed"
	StatusApplied                   ApplicationStatus = "applied"
	StatusOfferReceived             ApplicationStatus = "offer_received"
	StatusPaymentApproval           ApplicationStatus = "payment_approval"
	StatusReadyForApproval          ApplicationStatus = "ready_for_approval"
	StatusApproved                  ApplicationStatus = "approved"
	StatusRejected                  ApplicationStatus = "rejected"
)

var applicationStatuses = map[ApplicationStatus]string{
	StatusNeedsReview:               "Needs Review",
	StatusSubmitted:                 "Submitted",
	StatusAdditionalDocumentsNeeded: "Additional Documents Needed",
	StatusApplied:                   "Applied",
	StatusOfferReceived:             "Offer Received",
	StatusPaymentApproval:           "Payment Approval",
	StatusReadyForApproval:          "Ready for Approval",
	StatusApproved:                  "Approved",
	StatusRejected:                  "Rejected",
}

// ParseApplicationStatus returns the status for s, or false if s is not in the vocabulary
func ParseApplicationStatus(s string) (ApplicationStatus, bool) {
	status := ApplicationStatus(s)
	_, ok := applicationStatuses[status]
	return status, ok
}

// Label returns the human readable status name
func (s ApplicationStatus) Label() string {
	if label, ok := applicationStatuses[s]; ok {
		return label
	}
	return string(s)
}

// IsTerminal reports whether the application can no longer move
func (s ApplicationStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// CommissionType selects the reward path taken when an application is approved
type CommissionType string

const (
	CommissionTypeMoney       CommissionType = "money"
	CommissionTypeScholarship CommissionType = "scholarship"
)

// Application is a student's application to a university program, submitted by an agent
type Application struct {
	ID               string
	AgentID          string
	StudentID        string
	ProgramID        string
	UniversityID     string
	DegreeID         string
	DegreeName       string
	Status           ApplicationStatus
	CommissionType   CommissionType
	CommissionAmount decimal.Decimal // Money path only

	SubmittedAt          *time.Time
	DocumentsRequestedAt *time.Time
	PaymentVerifiedAt    *time.Time
	PaymentVerifiedBy    string
	ApprovedAt           *time.Time
	ApprovedBy           string
	RejectedAt           *time.Time
	RejectedBy           string
	RejectionReason      string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Combination returns the (agent, university, degree) key the application accrues against
func (a *Application) Combination() Combination {
	return Combination{
		AgentID:      a.AgentID,
		UniversityID: a.UniversityID,
		DegreeID:     a.DegreeID,
	}
}

// StatusHistory is an immutable record of one status transition
type StatusHistory struct {
	ID            string
	ApplicationID string
	FromStatus    ApplicationStatus
	ToStatus      ApplicationStatus
	ActorID       string
	ActorRole     Role
	Reason        string
	Metadata      map[string]string
	CreatedAt     time.Time
}

// Role is a back-office user role
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdminStaff Role = "admin_staff"
	RoleAgent      Role = "agent"
)

// IsAdmin reports whether the role may perform any allowed transition
func (r Role) IsAdmin() bool {
	return r == RoleSuperAdmin || r == RoleAdminStaff
}

// Actor identifies who performs an operation
type Actor struct {
	ID   string
	Role Role
}
