package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration for YAML parsing ("1h", "30m", ...)
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return goerr.Wrap(err, "duration must be a string")
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return goerr.Wrap(err, "invalid duration", goerr.V("value", raw))
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the wrapped time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Policy holds triage tuning loaded from a YAML file. All fields are
// optional; zero values are replaced by defaults.
type Policy struct {
	// SimilarityThreshold flags a duplicate when a nearest neighbor
	// scores at or above it (0.0-1.0)
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// CandidateLimit bounds the nearest-neighbor query
	CandidateLimit int `yaml:"candidate_limit"`

	// ApprovalTimeout expires a pending triage with no human decision
	ApprovalTimeout Duration `yaml:"approval_timeout"`
}

// DefaultPolicy returns the built-in triage policy
func DefaultPolicy() *Policy {
	return &Policy{
		SimilarityThreshold: 0.85,
		CandidateLimit:      5,
		ApprovalTimeout:     Duration(time.Hour),
	}
}

// ParsePolicy parses YAML data into a Policy, filling defaults for
// omitted fields
func ParsePolicy(data []byte) (*Policy, error) {
	policy := &Policy{}
	if err := yaml.Unmarshal(data, policy); err != nil {
		return nil, goerr.Wrap(err, "failed to parse policy YAML")
	}
	policy.fillDefaults()

	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return policy, nil
}

func (p *Policy) fillDefaults() {
	def := DefaultPolicy()
	if p.SimilarityThreshold == 0 {
		p.SimilarityThreshold = def.SimilarityThreshold
	}
	if p.CandidateLimit == 0 {
		p.CandidateLimit = def.CandidateLimit
	}
	if p.ApprovalTimeout == 0 {
		p.ApprovalTimeout = def.ApprovalTimeout
	}
}

// Validate validates the policy
func (p *Policy) Validate() error {
	if p.SimilarityThreshold <= 0 || p.SimilarityThreshold > 1 {
		return goerr.New("similarity threshold must be in (0, 1]",
			goerr.V("threshold", p.SimilarityThreshold))
	}
	if p.CandidateLimit <= 0 {
		return goerr.New("candidate limit must be positive",
			goerr.V("limit", p.CandidateLimit))
	}
	if p.ApprovalTimeout.Duration() <= 0 {
		return goerr.New("approval timeout must be positive",
			goerr.V("timeout", p.ApprovalTimeout.Duration()))
	}
	return nil
}
