package types

// TriageStatus is the approval state of a triage record
type TriageStatus string

const (
	TriageStatusPending  TriageStatus = "pending"
	TriageStatusApproved TriageStatus = "approved"
	TriageStatusRejected TriageStatus = "rejected"
	TriageStatusExpired  TriageStatus = "expired"
)

// IsValid checks if the status is a known value
func (s TriageStatus) IsValid() bool {
	switch s {
	case TriageStatusPending, TriageStatusApproved, TriageStatusRejected, TriageStatusExpired:
		return true
	}
	return false
}

// IsDecided returns true if the status is a terminal state
func (s TriageStatus) IsDecided() bool {
	return s.IsValid() && s != TriageStatusPending
}

// String returns the string representation
func (s TriageStatus) String() string {
	return string(s)
}

// DecisionKind is the action a human chose for a pending triage
type DecisionKind string

const (
	DecisionApprove DecisionKind = "approve"
	DecisionReject  DecisionKind = "reject"
)

// IsValid checks if the decision kind is known
func (k DecisionKind) IsValid() bool {
	return k == DecisionApprove || k == DecisionReject
}

// Status returns the triage status resulting from the decision
func (k DecisionKind) Status() TriageStatus {
	if k == DecisionApprove {
		return TriageStatusApproved
	}
	return TriageStatusRejected
}

// String returns the string representation
func (k DecisionKind) String() string {
	return string(k)
}
