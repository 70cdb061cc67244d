package domain

// BorrowerStatus is the lifecycle state of a borrower record in the directory.
type BorrowerStatus string

const (
	BorrowerActive    BorrowerStatus = "Active"
	BorrowerInactive  BorrowerStatus = "Inactive"
	BorrowerSuspended BorrowerStatus = "Suspended"
)

// DefaultPolicyClass is used when a borrower record carries no policy class.
const DefaultPolicyClass = "student"

// Borrower is the read-only view of a student/staff record consumed by circulation.
type Borrower struct {
	BorrowerID  string         `json:"borrowerID"`
	Name        string         `json:"name"`
	RegNo       string         `json:"regNo"`
	DeptName    string         `json:"deptName"`
	Email       string         `json:"email"`
	Status      BorrowerStatus `json:"status"`
	PolicyClass string         `json:"policyClass"`
}

// IsActive reports whether the borrower may take part in circulation.
func (b Borrower) IsActive() bool {
	return b.Status == BorrowerActive
}

// Class returns the policy class, falling back to DefaultPolicyClass.
func (b Borrower) Class() string {
	if b.PolicyClass == "" {
		return DefaultPolicyClass
	}
	return b.PolicyClass
}
