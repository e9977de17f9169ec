package repository

import (
	"time"
)

// Transaction statuses.
const (
	StatusUnreconciled    = "unreconciled"
	StatusPendingApproval = "pending_approval"
	StatusApproved        = "approved"
	StatusReconciled      = "reconciled"
)

// Transaction sources.
const (
	SourceManual   = "manual"
	SourceStarling = "starling"
	SourceMindbody = "mindbody"
	SourceCSV      = "csv"
)

// Transaction types, derived from amount sign.
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// Rule match types.
const (
	MatchTypeVendor       = "vendor"
	MatchTypeStaff        = "staff"
	MatchTypeDescription  = "description"
	MatchTypeAmount       = "amount"
	MatchTypeRegex        = "regex"
	MatchTypeComposite    = "composite"
	MatchTypeCounterParty = "counter_party"
	MatchTypeConditions   = "conditions"
)

// Condition fields.
const (
	FieldCounterParty    = "counter_party"
	FieldReference       = "reference"
	FieldAmount          = "amount"
	FieldTransactionType = "transaction_type"
)

// Condition operators.
const (
	OpContains    = "contains"
	OpNotContains = "not_contains"
	OpEquals      = "equals"
	OpStartsWith  = "starts_with"
	OpEndsWith    = "ends_with"
	OpRegex       = "regex"
	OpGreaterThan = "greater_than"
	OpLessThan    = "less_than"
	OpBetween     = "between"
)

// Pending match statuses.
const (
	MatchPending  = "pending"
	MatchApproved = "approved"
	MatchRejected = "rejected"
)

// Transaction represents a transaction row.
type Transaction struct {
	ID               string
	OwnerID          string
	Date             time.Time
	AmountCents      int64
	Description      string
	RawParty         string
	Notes            *string
	CategoryID       *string
	VendorID         *string
	StaffID          *string
	PayableID        *string
	BillID           *string
	DebtID           *string
	Confirmed        bool
	Status           string
	ExternalID       *string
	ImportHash       *string
	Source           string
	ReconciledMethod *string
	ReconciledAt     *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Type classifies the transaction by amount sign. Negative amounts are
// expenses, everything else income. This is the only derivation used anywhere.
func (t Transaction) Type() string {
	if t.AmountCents < 0 {
		return TypeExpense
	}
	return TypeIncome
}

// Condition is one structured criterion of a conditions rule. All conditions
// on a rule are AND-ed.
type Condition struct {
	Field    string  `json:"field"`
	Operator string  `json:"operator"`
	Value    string  `json:"value"`
	Value2   *string `json:"value2,omitempty"`
}

// Rule represents a reconciliation rule row.
type Rule struct {
	ID                      string
	OwnerID                 string
	Name                    string
	Description             string
	Priority                int
	MatchType               string
	MatchVendorID           *string
	MatchStaffID            *string
	MatchDescriptionPattern *string
	MatchCounterParty       *string
	MatchAmountMinCents     *int64
	MatchAmountMaxCents     *int64
	MatchTransactionType    *string
	Conditions              []Condition
	ActionCategoryID        *string
	ActionStaffID           *string
	ActionVendorID          *string
	ActionNotes             *string
	IsActive                bool
	RequiresApproval        bool
	MatchCount              int
	LastMatchedAt           *time.Time
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// PendingMatch represents a proposed categorization awaiting review.
type PendingMatch struct {
	ID                  string
	OwnerID             string
	TransactionID       string
	RuleID              *string
	SuggestedCategoryID *string
	SuggestedStaffID    *string
	SuggestedVendorID   *string
	SuggestedNotes      *string
	MatchConfidence     float64
	Status              string
	CreatedAt           time.Time
	ReviewedAt          *time.Time
}

// Category represents a category row.
type Category struct {
	ID      string
	OwnerID string
	Name    string
	Kind    string
}

// Vendor represents a vendor row.
type Vendor struct {
	ID      string
	OwnerID string
	Name    string
}

// Staff represents a staff row.
type Staff struct {
	ID      string
	OwnerID string
	Name    string
}

// TransactionLink is a dependent join row (payables, bills, debts). A
// transaction carrying one is never deleted by duplicate cleanup.
type TransactionLink struct {
	TransactionID string
	LinkType      string
	LinkID        string
}
