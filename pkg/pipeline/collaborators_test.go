package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/peerguard/pkg/conflict"
	"github.com/matzehuels/peerguard/pkg/manifest"
	"github.com/matzehuels/peerguard/pkg/remediate"
)

func newDetector(src conflict.PeerSource) *conflict.Detector {
	return conflict.NewDetector(src, conflict.Options{Workers: 1, QueryTimeout: time.Second})
}

func TestCheckConflicts(t *testing.T) {
	m, err := manifest.Parse([]byte(scenarioA))
	if err != nil {
		t.Fatal(err)
	}

	records, err := CheckConflicts(context.Background(), newDetector(scenarioRegistry()), m)
	if err != nil {
		t.Fatalf("CheckConflicts() error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %+v, want 1", records)
	}
	if r := records[0]; r.Package != "cmdk" || r.Severity != conflict.SeverityBlocking {
		t.Errorf("record = %+v", r)
	}
}

func TestFixConflicts(t *testing.T) {
	dir := newProject(t, scenarioA)
	det := newDetector(scenarioRegistry())
	engine := remediate.NewEngine(det.Policy(), nil)

	actions, err := FixConflicts(context.Background(), det, engine, dir, remediate.FixAuto)
	if err != nil {
		t.Fatalf("FixConflicts() error: %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("actions = %+v, want 2", actions)
	}

	m, err := manifest.Load(filepath.Join(dir, manifest.FileName))
	if err != nil {
		t.Fatal(err)
	}
	if rng, _ := m.Range("react"); rng != "^18.2.0" {
		t.Errorf("react = %s, want ^18.2.0", rng)
	}

	// Already fixed: nothing left to do
	again, err := FixConflicts(context.Background(), det, engine, dir, remediate.FixAuto)
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != 0 {
		t.Errorf("second FixConflicts() = %+v, want no actions", again)
	}
}

func TestFixConflictsMissingManifest(t *testing.T) {
	det := newDetector(scenarioRegistry())
	_, err := FixConflicts(context.Background(), det, remediate.NewEngine(det.Policy(), nil), t.TempDir(), remediate.FixAuto)
	if err == nil {
		t.Error("FixConflicts() without a manifest should fail")
	}
}

func TestAnalyzeLog(t *testing.T) {
	a := AnalyzeLog("npm error ERESOLVE could not resolve\nnpm error peer react@\"^17\"\n")
	if len(a.PeerConflicts()) != 1 || a.MemoryIssues {
		t.Errorf("analysis = %+v", a)
	}
	if !AnalyzeLog("compiled successfully\n").Empty() {
		t.Error("a clean log should have no findings")
	}
}

func TestVerifyProjectStructure(t *testing.T) {
	if issues := VerifyProjectStructure(t.TempDir()); len(issues) == 0 {
		t.Error("an empty directory should report structural issues")
	}
}
