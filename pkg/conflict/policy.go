package conflict

import (
	"slices"

	"github.com/matzehuels/peerguard/pkg/errors"
	"github.com/matzehuels/peerguard/pkg/versions"
)

// Policy describes the package whose peer requirements are checked.
type Policy struct {
	// Subject is the package peers are checked against ("react").
	Subject string `toml:"subject" yaml:"subject" json:"subject"`

	// Companions move in lockstep with Subject ("react-dom") and are not
	// themselves checked.
	Companions []string `toml:"companions" yaml:"companions" json:"companions"`

	// PinRange is the known-compatible range remediation rewrites Subject
	// and Companions to.
	PinRange string `toml:"pin_range" yaml:"pin_range" json:"pinRange"`

	// IncompatibleMajors are the Subject majors that trigger a pin when a
	// blocking conflict exists.
	IncompatibleMajors []uint64 `toml:"incompatible_majors" yaml:"incompatible_majors" json:"incompatibleMajors"`
}

// DefaultPolicy returns the React 19 migration policy.
func DefaultPolicy() Policy {
	return Policy{
		Subject:            "react",
		Companions:         []string{"react-dom"},
		PinRange:           "^18.2.0",
		IncompatibleMajors: []uint64{19},
	}
}

// Excludes reports whether name is the subject or one of its companions.
func (p Policy) Excludes(name string) bool {
	return name == p.Subject || slices.Contains(p.Companions, name)
}

// Pinned returns the subject followed by its companions.
func (p Policy) Pinned() []string {
	return append([]string{p.Subject}, p.Companions...)
}

// Validate checks that the policy is usable.
func (p Policy) Validate() error {
	if p.Subject == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "policy subject is required")
	}
	for _, name := range p.Pinned() {
		if err := errors.ValidateNpmPackageName(name); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "policy package %q", name)
		}
	}
	if len(p.IncompatibleMajors) == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "policy needs at least one incompatible %s major", p.Subject)
	}
	if err := errors.ValidateVersionRange(p.PinRange); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "policy pin range")
	}
	if _, err := versions.ParseRange(p.PinRange); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "policy pin range %q", p.PinRange)
	}
	return nil
}
