// Package pipeline sequences one evaluation of a project: load the manifest,
// decide whether anything changed, detect conflicts, optionally remediate,
// and archive a report.
//
// # States
//
// An evaluation moves through
//
//	Idle → Checking → Unchanged
//	                → Evaluating → [Remediating →] Reported
//
// Unchanged and Reported are terminal. Saving the report is the last thing
// that happens on every path that leaves Checking for Evaluating.
//
// # Usage
//
//	runner := pipeline.NewRunner(detector, tracker, reports, logger)
//	result, err := runner.Run(ctx, pipeline.Options{
//	    ProjectDir: ".",
//	    AutoFix:    true,
//	})
//	if err != nil {
//	    return err
//	}
//	if result.Unresolved() {
//	    os.Exit(1)
//	}
//
// Only one evaluation runs per project directory at a time; Run takes an
// advisory lock on the directory before reading the manifest.
package pipeline

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/matzehuels/peerguard/pkg/conflict"
	"github.com/matzehuels/peerguard/pkg/errors"
	"github.com/matzehuels/peerguard/pkg/logscan"
	"github.com/matzehuels/peerguard/pkg/observability"
	"github.com/matzehuels/peerguard/pkg/remediate"
	"github.com/matzehuels/peerguard/pkg/report"
)

// State is a step of the evaluation state machine.
type State string

const (
	StateIdle        State = "idle"
	StateChecking    State = "checking"
	StateUnchanged   State = "unchanged"
	StateEvaluating  State = "evaluating"
	StateRemediating State = "remediating"
	StateReported    State = "reported"
)

// DefaultSaveTimeout bounds the report save that follows a cancellation.
const DefaultSaveTimeout = 5 * time.Second

// Options configures one evaluation.
type Options struct {
	// ProjectDir holds package.json. Relative paths are made absolute.
	ProjectDir string `json:"projectDir"`

	// Force evaluates even when the dependency set is unchanged.
	Force bool `json:"force,omitempty"`

	// AutoFix applies remediation when something justifies it. Without it
	// the pipeline never writes to the project.
	AutoFix bool `json:"autoFix,omitempty"`

	// FixType selects the remediation steps; empty means auto.
	FixType remediate.FixType `json:"fixType,omitempty"`

	// LogPath names a build log to analyze in the same run. A log always
	// forces an evaluation, since a build can fail without a manifest edit.
	LogPath string `json:"logPath,omitempty"`

	// Verify adds project-structure issues to the report.
	Verify bool `json:"verify,omitempty"`
}

// ValidateAndSetDefaults checks the options and fills defaults.
func (o *Options) ValidateAndSetDefaults() error {
	if o.ProjectDir == "" {
		return errors.New(errors.ErrCodeInvalidInput, "project directory is required")
	}
	abs, err := filepath.Abs(o.ProjectDir)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "project directory %q", o.ProjectDir)
	}
	o.ProjectDir = abs

	fix, err := remediate.ParseFixType(string(o.FixType))
	if err != nil {
		return err
	}
	o.FixType = fix
	return nil
}

// Result is the outcome of Run.
type Result struct {
	// State is the terminal state reached (Unchanged or Reported), or the
	// state in which the run failed.
	State State

	Conflicts []conflict.Record
	Actions   []remediate.Action
	Analysis  *logscan.Analysis

	// Report and ReportPath are set once the report is saved.
	Report     *report.Report
	ReportPath string

	// Partial is set when the context ended before every lookup finished.
	Partial bool

	// RemediationErr joins failed remediation actions. It does not fail the
	// run; the report records what did succeed.
	RemediationErr error

	Stats Stats
}

// Stats contains timing and lookup counts.
type Stats struct {
	Checked    int
	Skipped    int
	DetectTime time.Duration
	TotalTime  time.Duration
}

// Blocking reports whether a blocking conflict was detected.
func (r *Result) Blocking() bool {
	for _, c := range r.Conflicts {
		if c.Severity == conflict.SeverityBlocking {
			return true
		}
	}
	return false
}

// Unresolved reports whether a blocking conflict was detected and this run
// applied nothing to address it.
func (r *Result) Unresolved() bool {
	return r.Blocking() && len(r.Actions) == 0
}

// Summary condenses the result into counts.
func (r *Result) Summary() observability.EvaluationSummary {
	s := observability.EvaluationSummary{
		Unchanged:      r.State == StateUnchanged,
		Conflicts:      len(r.Conflicts),
		Actions:        len(r.Actions),
		SkippedLookups: r.Stats.Skipped,
		Partial:        r.Partial,
	}
	for _, c := range r.Conflicts {
		if c.Severity == conflict.SeverityBlocking {
			s.Blocking++
		}
	}
	if r.Report != nil {
		s.Findings = len(r.Report.Findings)
	}
	return s
}

// String renders the one-line summary the CLI prints.
func (r *Result) String() string {
	if r.State == StateUnchanged {
		return "dependencies unchanged since the last evaluation"
	}
	s := r.Summary()
	out := fmt.Sprintf("%d conflicts (%d blocking), %d findings, %d actions", s.Conflicts, s.Blocking, s.Findings, s.Actions)
	if s.SkippedLookups > 0 {
		out += fmt.Sprintf(", %d lookups skipped", s.SkippedLookups)
	}
	if s.Partial {
		out += " (partial)"
	}
	return out
}
