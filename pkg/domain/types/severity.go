package types

import "strings"

// Severity is one of five ordered triage severity levels
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Severities returns all severity levels ordered from most to least severe
func Severities() []Severity {
	return []Severity{
		SeverityCritical,
		SeverityHigh,
		SeverityMedium,
		SeverityLow,
		SeverityInfo,
	}
}

// IsValid checks if the severity is one of the known levels
func (s Severity) IsValid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return true
	}
	return false
}

// String returns the string representation
func (s Severity) String() string {
	return string(s)
}

// Label returns the GitHub label name for the severity
func (s Severity) Label() string {
	switch s {
	case SeverityCritical:
		return "Critical"
	case SeverityHigh:
		return "High"
	case SeverityMedium:
		return "Medium"
	case SeverityLow:
		return "Low"
	case SeverityInfo:
		return "Info"
	}
	return "Unknown"
}

// Rank returns the ordering of the severity, 5 (critical) down to 1 (info).
// Unknown severities rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 5
	case SeverityHigh:
		return 4
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 2
	case SeverityInfo:
		return 1
	}
	return 0
}

// Emoji returns the emoji used for the severity in chat messages
func (s Severity) Emoji() string {
	switch s {
	case SeverityCritical:
		return "🔴"
	case SeverityHigh:
		return "🟠"
	case SeverityMedium:
		return "🟡"
	case SeverityLow:
		return "🟢"
	case SeverityInfo:
		return "🔵"
	}
	return "📋"
}

// LabelColor returns the hex color for the GitHub label
func (s Severity) LabelColor() string {
	switch s {
	case SeverityCritical:
		return "d73a4a"
	case SeverityHigh:
		return "ff6600"
	case SeverityMedium:
		return "ffcc00"
	case SeverityLow:
		return "00cc66"
	case SeverityInfo:
		return "0099cc"
	}
	return "ffffff"
}

// Description returns the classification rubric text for the severity
func (s Severity) Description() string {
	switch s {
	case SeverityCritical:
		return "System down, data loss, security vulnerability"
	case SeverityHigh:
		return "Major functionality broken, significant performance degradation"
	case SeverityMedium:
		return "Minor bugs with workarounds, important feature requests"
	case SeverityLow:
		return "Cosmetic issues, typos, documentation updates"
	case SeverityInfo:
		return "Questions, discussions, feedback"
	}
	return ""
}

// ParseSeverity parses a severity from its ID or label form,
// case-insensitively. Returns false if the input matches no known level.
func ParseSeverity(s string) (Severity, bool) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if sev.IsValid() {
		return sev, true
	}
	return "", false
}
