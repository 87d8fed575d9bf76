package pipeline

import (
	"context"
	"path/filepath"

	"github.com/matzehuels/peerguard/pkg/conflict"
	"github.com/matzehuels/peerguard/pkg/logscan"
	"github.com/matzehuels/peerguard/pkg/manifest"
	"github.com/matzehuels/peerguard/pkg/project"
	"github.com/matzehuels/peerguard/pkg/remediate"
)

// The functions below are the surface an outer transport (an HTTP handler,
// a job queue worker) calls. They take no locks and write no reports.

// CheckConflicts returns the conflicts detected in m.
func CheckConflicts(ctx context.Context, d *conflict.Detector, m *manifest.Manifest) ([]conflict.Record, error) {
	res, err := d.Detect(ctx, m)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// FixConflicts detects conflicts in the manifest under projectDir and
// applies the remediation selected by fix.
func FixConflicts(ctx context.Context, d *conflict.Detector, e *remediate.Engine, projectDir string, fix remediate.FixType) ([]remediate.Action, error) {
	path := filepath.Join(projectDir, manifest.FileName)
	m, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	records, err := CheckConflicts(ctx, d, m)
	if err != nil {
		return nil, err
	}
	return e.Remediate(remediate.Request{Manifest: m, ManifestPath: path, Records: records, Fix: fix})
}

// AnalyzeLog extracts findings from raw build output.
func AnalyzeLog(text string) *logscan.Analysis {
	return logscan.Analyze(text)
}

// VerifyProjectStructure lists structural problems of the project at dir.
func VerifyProjectStructure(dir string) []string {
	return project.Verify(dir)
}
