package types

import (
	"fmt"

	"github.com/google/uuid"
)

// TriageID identifies a triage record
type TriageID string

// String returns the string representation
func (id TriageID) String() string {
	return string(id)
}

// NewTriageID creates a new TriageID
func NewTriageID() TriageID {
	return TriageID(uuid.New().String())
}

// AuditID identifies an audit log entry
type AuditID string

// String returns the string representation
func (id AuditID) String() string {
	return string(id)
}

// NewAuditID creates a new AuditID
func NewAuditID() AuditID {
	return AuditID(uuid.New().String())
}

// RepoName is a GitHub repository full name (owner/name)
type RepoName string

// String returns the string representation
func (n RepoName) String() string {
	return string(n)
}

// IssueNumber is a GitHub issue number
type IssueNumber int

// String returns the string representation
func (n IssueNumber) String() string {
	return fmt.Sprintf("%d", n)
}

// Int returns the int representation
func (n IssueNumber) Int() int {
	return int(n)
}

// SlackUserID represents a Slack user identifier
type SlackUserID string

// String returns the string representation
func (id SlackUserID) String() string {
	return string(id)
}

// ChannelID represents a Slack channel identifier
type ChannelID string

// String returns the string representation
func (id ChannelID) String() string {
	return string(id)
}

// MessageTS represents a Slack message timestamp
type MessageTS string

// String returns the string representation
func (ts MessageTS) String() string {
	return string(ts)
}
