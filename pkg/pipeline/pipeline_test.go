package pipeline

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/peerguard/pkg/conflict"
	"github.com/matzehuels/peerguard/pkg/errors"
	"github.com/matzehuels/peerguard/pkg/manifest"
	"github.com/matzehuels/peerguard/pkg/observability"
	"github.com/matzehuels/peerguard/pkg/remediate"
	"github.com/matzehuels/peerguard/pkg/report"
	"github.com/matzehuels/peerguard/pkg/snapshot"
)

const scenarioA = `{
  "name": "storefront",
  "version": "1.0.0",
  "dependencies": {
    "react": "^19.0.0",
    "react-dom": "^19.0.0",
    "cmdk": "^0.2.0",
    "lodash": "^4.17.21"
  }
}
`

// registry answers peer lookups from a fixed table.
type registry struct {
	mu     sync.Mutex
	peers  map[string]string
	calls  int
	onCall func()
}

func (r *registry) PeerRequirement(ctx context.Context, pkg, versionRange, subject string) (string, bool, error) {
	r.mu.Lock()
	r.calls++
	hook := r.onCall
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	peer, ok := r.peers[pkg]
	return peer, ok, nil
}

func scenarioRegistry() *registry {
	return &registry{peers: map[string]string{"cmdk": "^18"}}
}

func newProject(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if content != "" {
		if err := os.WriteFile(filepath.Join(dir, manifest.FileName), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func newRunner(src conflict.PeerSource, dir string) (*Runner, *report.FileStore) {
	det := conflict.NewDetector(src, conflict.Options{Workers: 1, QueryTimeout: time.Second})
	reports := report.NewFileStore(filepath.Join(dir, "reports"))
	return NewRunner(det, snapshot.NewTracker(snapshot.NewFileStore("reports")), reports, nil), reports
}

func TestRunMissingManifest(t *testing.T) {
	dir := newProject(t, "")
	runner, reports := newRunner(scenarioRegistry(), dir)

	res, err := runner.Run(context.Background(), Options{ProjectDir: dir})
	if !errors.Is(err, errors.ErrCodeManifestNotFound) {
		t.Fatalf("Run() error = %v, want MANIFEST_NOT_FOUND", err)
	}
	if !errors.IsFatal(err) {
		t.Error("a missing manifest must fail the run")
	}
	if res.State != StateChecking {
		t.Errorf("State = %s, want checking", res.State)
	}
	if latest, _ := reports.Latest(context.Background()); latest != nil {
		t.Error("no report may be written without a manifest")
	}
}

func TestRunScenarioAutoFix(t *testing.T) {
	dir := newProject(t, scenarioA)
	runner, reports := newRunner(scenarioRegistry(), dir)

	res, err := runner.Run(context.Background(), Options{ProjectDir: dir, AutoFix: true})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.State != StateReported {
		t.Errorf("State = %s, want reported", res.State)
	}
	if len(res.Conflicts) != 1 || res.Conflicts[0].Package != "cmdk" || !res.Blocking() {
		t.Fatalf("Conflicts = %+v", res.Conflicts)
	}
	if len(res.Actions) != 2 || res.Actions[0].Kind != remediate.KindWriteConfig || res.Actions[1].Kind != remediate.KindPinVersion {
		t.Fatalf("Actions = %+v", res.Actions)
	}
	if res.Unresolved() {
		t.Error("remediated conflicts are not unresolved")
	}

	m, err := manifest.Load(filepath.Join(dir, manifest.FileName))
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"react", "react-dom"} {
		if rng, _ := m.Range(name); rng != "^18.2.0" {
			t.Errorf("%s = %s, want ^18.2.0", name, rng)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, remediate.NpmrcFileName)); err != nil {
		t.Errorf(".npmrc missing: %v", err)
	}

	saved, err := reports.Latest(context.Background())
	if err != nil || saved == nil {
		t.Fatalf("Latest() = %v, %v", saved, err)
	}
	if saved.RunID != res.Report.RunID || len(saved.Actions) != 2 || saved.ProjectName != "storefront" {
		t.Errorf("saved report = %+v", saved)
	}
	if res.ReportPath == "" || filepath.Dir(res.ReportPath) != reports.Dir() {
		t.Errorf("ReportPath = %q", res.ReportPath)
	}

	// The pin was recorded, so the rewrite does not count as a change
	again, err := runner.Run(context.Background(), Options{ProjectDir: dir, AutoFix: true})
	if err != nil || again.State != StateUnchanged {
		t.Errorf("second Run() = %v, %v; want unchanged", again.State, err)
	}
}

func TestRunCheckOnlyWritesNothing(t *testing.T) {
	dir := newProject(t, scenarioA)
	runner, reports := newRunner(scenarioRegistry(), dir)

	res, err := runner.Run(context.Background(), Options{ProjectDir: dir})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !res.Unresolved() || len(res.Actions) != 0 {
		t.Errorf("Unresolved() = %v, actions = %v", res.Unresolved(), res.Actions)
	}
	if _, err := os.Stat(filepath.Join(dir, remediate.NpmrcFileName)); !os.IsNotExist(err) {
		t.Error("check without auto-fix must not write .npmrc")
	}
	if len(res.Report.Recommendations) != 2 {
		t.Errorf("Recommendations = %+v", res.Report.Recommendations)
	}

	// Unchanged manifest: terminal without a second report
	second, err := runner.Run(context.Background(), Options{ProjectDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if second.State != StateUnchanged || second.Report != nil {
		t.Errorf("second run = %s, report %v", second.State, second.Report)
	}
	if all, _ := reports.List(context.Background()); len(all) != 1 {
		t.Errorf("reports = %d, want 1", len(all))
	}

	// Force re-evaluates
	forced, err := runner.Run(context.Background(), Options{ProjectDir: dir, Force: true})
	if err != nil || forced.State != StateReported {
		t.Errorf("forced run = %s, %v", forced.State, err)
	}
}

func TestRunCleanProject(t *testing.T) {
	dir := newProject(t, `{"name": "clean", "dependencies": {"react": "^18.2.0", "cmdk": "^0.2.0"}}`)
	runner, _ := newRunner(scenarioRegistry(), dir)

	res, err := runner.Run(context.Background(), Options{ProjectDir: dir, AutoFix: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Conflicts) != 0 || len(res.Actions) != 0 || res.Unresolved() {
		t.Errorf("result = %+v", res)
	}
	if len(res.Report.Recommendations) != 0 {
		t.Errorf("Recommendations = %+v", res.Report.Recommendations)
	}
}

func TestRunWithBuildLog(t *testing.T) {
	dir := newProject(t, `{"name": "clean", "dependencies": {"react": "^18.2.0"}}`)
	logPath := filepath.Join(dir, "build.log")
	logText := "npm error ERESOLVE could not resolve\nnpm error peer react@\"^17\"\nFATAL ERROR: JavaScript heap out of memory\n"
	if err := os.WriteFile(logPath, []byte(logText), 0o644); err != nil {
		t.Fatal(err)
	}
	runner, _ := newRunner(scenarioRegistry(), dir)

	// Prime the snapshot; a log still forces the second evaluation
	if _, err := runner.Run(context.Background(), Options{ProjectDir: dir}); err != nil {
		t.Fatal(err)
	}
	res, err := runner.Run(context.Background(), Options{ProjectDir: dir, LogPath: logPath, AutoFix: true, FixType: remediate.FixAuto})
	if err != nil {
		t.Fatal(err)
	}
	if res.State != StateReported || !res.Report.MemoryIssues {
		t.Fatalf("result = %s, report %+v", res.State, res.Report)
	}
	if len(res.Analysis.PeerConflicts()) != 1 {
		t.Errorf("peer findings = %d", len(res.Analysis.PeerConflicts()))
	}
	// A peer finding alone justifies the config file but not a pin
	if len(res.Actions) != 1 || res.Actions[0].Kind != remediate.KindWriteConfig {
		t.Errorf("Actions = %+v", res.Actions)
	}
}

func TestRunMissingLog(t *testing.T) {
	dir := newProject(t, scenarioA)
	runner, reports := newRunner(scenarioRegistry(), dir)
	_, err := runner.Run(context.Background(), Options{ProjectDir: dir, LogPath: filepath.Join(dir, "nope.log")})
	if !errors.Is(err, errors.ErrCodeLogFileNotFound) {
		t.Fatalf("Run() error = %v, want LOG_FILE_NOT_FOUND", err)
	}

	// Nothing was evaluated, so the next plain run must not be unchanged
	next, err := runner.Run(context.Background(), Options{ProjectDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if next.State != StateReported || len(next.Conflicts) != 1 || !next.Unresolved() {
		t.Errorf("next run = %s, conflicts %v", next.State, next.Conflicts)
	}
	if all, _ := reports.List(context.Background()); len(all) != 1 {
		t.Errorf("reports = %d, want 1", len(all))
	}
}

// failingStore refuses every save until ok is set.
type failingStore struct {
	report.Store
	ok bool
}

func (s *failingStore) Save(ctx context.Context, r *report.Report) (string, error) {
	if !s.ok {
		return "", errors.New(errors.ErrCodeReportPersist, "disk full")
	}
	return s.Store.Save(ctx, r)
}

func TestRunReportSaveFailure(t *testing.T) {
	dir := newProject(t, scenarioA)
	runner, reports := newRunner(scenarioRegistry(), dir)
	store := &failingStore{Store: reports}
	runner.Reports = store

	res, err := runner.Run(context.Background(), Options{ProjectDir: dir})
	if !errors.Is(err, errors.ErrCodeReportPersist) {
		t.Fatalf("Run() error = %v, want REPORT_PERSIST_FAILURE", err)
	}
	if res.State == StateReported || res.ReportPath != "" {
		t.Errorf("result = %s, path %q", res.State, res.ReportPath)
	}

	store.ok = true
	next, err := runner.Run(context.Background(), Options{ProjectDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if next.State != StateReported || !next.Unresolved() {
		t.Errorf("next run = %s, unresolved=%v; want a reported blocking conflict", next.State, next.Unresolved())
	}
	if latest, _ := reports.Latest(context.Background()); latest == nil {
		t.Error("the repeated evaluation should leave a report")
	}
}

func TestRunCancelledWritesPartialReport(t *testing.T) {
	dir := newProject(t, scenarioA)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := scenarioRegistry()
	src.onCall = cancel
	runner, reports := newRunner(src, dir)

	res, err := runner.Run(ctx, Options{ProjectDir: dir, AutoFix: true})
	if !stderrors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if !res.Partial || res.State != StateReported {
		t.Errorf("result = %s partial=%v", res.State, res.Partial)
	}
	if len(res.Actions) != 0 {
		t.Error("a cancelled run must not remediate")
	}
	saved, _ := reports.Latest(context.Background())
	if saved == nil || !saved.Partial {
		t.Fatalf("partial report not saved: %+v", saved)
	}

	// The cut-short evaluation is repeated on the next run
	src.onCall = nil
	next, err := runner.Run(context.Background(), Options{ProjectDir: dir})
	if err != nil || next.State != StateReported {
		t.Errorf("next run = %s, %v; want a full evaluation", next.State, err)
	}
}

func TestRunProjectLocked(t *testing.T) {
	dir := newProject(t, scenarioA)
	runner, _ := newRunner(scenarioRegistry(), dir)

	held, err := runner.Run(context.Background(), Options{ProjectDir: dir})
	if err != nil || held == nil {
		t.Fatal(err)
	}

	src := scenarioRegistry()
	other, _ := newRunner(src, dir)
	release := make(chan struct{})
	entered := make(chan struct{})
	var once sync.Once
	src.onCall = func() {
		once.Do(func() { close(entered) })
		<-release
	}

	done := make(chan error, 1)
	go func() {
		_, err := other.Run(context.Background(), Options{ProjectDir: dir, Force: true})
		done <- err
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, err = runner.Run(ctx, Options{ProjectDir: dir, Force: true})
	if !errors.Is(err, errors.ErrCodeProjectLocked) {
		t.Errorf("concurrent Run() error = %v, want PROJECT_LOCKED", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Errorf("lock holder failed: %v", err)
	}
}

func TestRunStateTransitions(t *testing.T) {
	rec := &transitions{}
	observability.SetPipelineHooks(rec)
	defer observability.Reset()

	dir := newProject(t, scenarioA)
	runner, _ := newRunner(scenarioRegistry(), dir)
	if _, err := runner.Run(context.Background(), Options{ProjectDir: dir, AutoFix: true}); err != nil {
		t.Fatal(err)
	}

	want := []State{StateChecking, StateEvaluating, StateRemediating, StateReported}
	if len(rec.states) != len(want) {
		t.Fatalf("states = %v, want %v", rec.states, want)
	}
	for i := range want {
		if rec.states[i] != want[i] {
			t.Errorf("states = %v, want %v", rec.states, want)
		}
	}
	if rec.summary.Blocking != 1 || rec.summary.Actions != 2 {
		t.Errorf("summary = %+v", rec.summary)
	}
}

type transitions struct {
	observability.NoopPipelineHooks
	states  []State
	summary observability.EvaluationSummary
}

func (tr *transitions) OnStateChange(_ context.Context, _, _, to string) {
	tr.states = append(tr.states, State(to))
}

func (tr *transitions) OnEvaluationComplete(_ context.Context, _ string, s observability.EvaluationSummary, _ time.Duration, _ error) {
	tr.summary = s
}

func TestOptionsValidate(t *testing.T) {
	if err := (&Options{}).ValidateAndSetDefaults(); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("empty ProjectDir: %v", err)
	}
	opts := Options{ProjectDir: ".", FixType: "downgrade"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(opts.ProjectDir) || opts.FixType != remediate.FixDowngrade {
		t.Errorf("opts = %+v", opts)
	}
	if err := (&Options{ProjectDir: ".", FixType: "bogus"}).ValidateAndSetDefaults(); err == nil {
		t.Error("unknown fix type should fail")
	}
}

func TestResultString(t *testing.T) {
	r := &Result{State: StateReported, Conflicts: []conflict.Record{{Package: "cmdk", Severity: conflict.SeverityBlocking}}, Stats: Stats{Skipped: 2}}
	if got, want := r.String(), "1 conflicts (1 blocking), 0 findings, 0 actions, 2 lookups skipped"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
