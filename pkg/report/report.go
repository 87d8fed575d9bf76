// Package report defines the evaluation report and the stores that archive it.
//
// A report is written once at the end of every evaluation that was not
// short-circuited by an unchanged dependency set. Reports are never rewritten:
// each store only appends and reads back.
//
// The JSON document keeps the field names of the historical report format
// (timestamp, projectName, conflicts, recommendations) so existing dashboards
// keep parsing it; everything else is additive.
package report

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/peerguard/pkg/conflict"
	"github.com/matzehuels/peerguard/pkg/errors"
	"github.com/matzehuels/peerguard/pkg/logscan"
	"github.com/matzehuels/peerguard/pkg/remediate"
)

// TimestampLayout formats Report.Timestamp and the report file names.
const TimestampLayout = "20060102-150405"

// Recommendation types.
const (
	RecommendNpmrc     = "npmrc"
	RecommendDowngrade = "downgrade"
)

// Conflict is the persisted form of a conflict.Record.
type Conflict struct {
	Package              string            `json:"package" bson:"package"`
	RequiredReactVersion string            `json:"requiredReactVersion" bson:"requiredReactVersion"`
	DeclaredRange        string            `json:"declaredRange" bson:"declaredRange"`
	Severity             conflict.Severity `json:"severity" bson:"severity"`
}

// Recommendation is a remediation the report suggests, whether or not it was
// applied.
type Recommendation struct {
	Type    string `json:"type" bson:"type"`
	Message string `json:"message" bson:"message"`
}

// Report is the outcome of one evaluation.
type Report struct {
	RunID           string             `json:"runId" bson:"runId"`
	Timestamp       string             `json:"timestamp" bson:"timestamp"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	ProjectName     string             `json:"projectName" bson:"projectName"`
	ProjectDir      string             `json:"projectDir,omitempty" bson:"projectDir"`
	Conflicts       []Conflict         `json:"conflicts" bson:"conflicts"`
	Recommendations []Recommendation   `json:"recommendations" bson:"recommendations"`
	Findings        []logscan.Finding  `json:"findings,omitempty" bson:"findings"`
	Actions         []remediate.Action `json:"actions,omitempty" bson:"actions"`
	SkippedLookups  int                `json:"skippedLookups,omitempty" bson:"skippedLookups"`
	Issues          []string           `json:"issues,omitempty" bson:"issues"`
	MemoryIssues    bool               `json:"memoryIssues,omitempty" bson:"memoryIssues"`
	TimeoutIssues   bool               `json:"timeoutIssues,omitempty" bson:"timeoutIssues"`
	Partial         bool               `json:"partial,omitempty" bson:"partial"`
}

// New starts a report for projectName. An empty name is recorded as "unknown".
func New(projectName string, now time.Time) *Report {
	if projectName == "" {
		projectName = "unknown"
	}
	return &Report{
		RunID:           uuid.NewString(),
		Timestamp:       now.Format(TimestampLayout),
		CreatedAt:       now,
		ProjectName:     projectName,
		Conflicts:       []Conflict{},
		Recommendations: []Recommendation{},
	}
}

// FromRecords converts detector records into their persisted form.
func FromRecords(records []conflict.Record) []Conflict {
	out := make([]Conflict, 0, len(records))
	for _, r := range records {
		out = append(out, Conflict{
			Package:              r.Package,
			RequiredReactVersion: r.RequiredPeerRange,
			DeclaredRange:        r.DeclaredRange,
			Severity:             r.Severity,
		})
	}
	return out
}

// Blocking reports whether any recorded conflict is blocking.
func (r *Report) Blocking() bool {
	for _, c := range r.Conflicts {
		if c.Severity == conflict.SeverityBlocking {
			return true
		}
	}
	return false
}

// HasPeerFindings reports whether the analyzed build log showed a peer
// resolution failure.
func (r *Report) HasPeerFindings() bool {
	for _, f := range r.Findings {
		if f.Kind == logscan.KindPeerConflict {
			return true
		}
	}
	return false
}

// Recommend fills Recommendations from the conflicts and findings already on
// the report.
func (r *Report) Recommend(policy conflict.Policy) {
	r.Recommendations = []Recommendation{}
	if len(r.Conflicts) == 0 && !r.HasPeerFindings() {
		return
	}
	r.Recommendations = append(r.Recommendations, Recommendation{
		Type:    RecommendNpmrc,
		Message: "Add .npmrc with legacy-peer-deps=true",
	})
	if r.Blocking() {
		r.Recommendations = append(r.Recommendations, Recommendation{
			Type:    RecommendDowngrade,
			Message: fmt.Sprintf("Downgrade %s to %s for peer compatibility", policy.Subject, policy.PinRange),
		})
	}
}

// Validate checks the report before it is persisted: actions are only
// allowed when something justified them.
func (r *Report) Validate() error {
	if len(r.Actions) > 0 && len(r.Conflicts) == 0 && len(r.Findings) == 0 {
		return errors.New(errors.ErrCodeInternal, "report %s lists %d actions without a conflict or finding", r.RunID, len(r.Actions))
	}
	return nil
}
