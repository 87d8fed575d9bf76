package pipeline

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/peerguard/pkg/conflict"
	"github.com/matzehuels/peerguard/pkg/fsutil"
	"github.com/matzehuels/peerguard/pkg/logscan"
	"github.com/matzehuels/peerguard/pkg/manifest"
	"github.com/matzehuels/peerguard/pkg/observability"
	"github.com/matzehuels/peerguard/pkg/project"
	"github.com/matzehuels/peerguard/pkg/remediate"
	"github.com/matzehuels/peerguard/pkg/report"
	"github.com/matzehuels/peerguard/pkg/snapshot"
)

// Runner executes evaluations against one set of collaborators. It holds no
// per-run state, so one Runner can evaluate several projects in sequence.
type Runner struct {
	Detector *conflict.Detector
	Tracker  *snapshot.Tracker
	Reports  report.Store
	Engine   *remediate.Engine
	Logger   *log.Logger

	// SaveTimeout bounds the report save after the run context ended.
	SaveTimeout time.Duration

	now func() time.Time
}

// NewRunner wires a runner. The remediation engine follows the detector's
// policy. A nil logger discards output.
func NewRunner(detector *conflict.Detector, tracker *snapshot.Tracker, reports report.Store, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{
		Detector:    detector,
		Tracker:     tracker,
		Reports:     reports,
		Engine:      remediate.NewEngine(detector.Policy(), logger),
		Logger:      logger,
		SaveTimeout: DefaultSaveTimeout,
		now:         time.Now,
	}
}

// Run performs one evaluation. Errors abort the run: a missing or malformed
// manifest, a missing log file, a held project lock or a failed report save.
// Registry and remediation failures do not; they show up in the result.
//
// When ctx ends during detection the partial result is still reported and
// Run returns it together with the context's error.
func (r *Runner) Run(ctx context.Context, opts Options) (res *Result, err error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	dir := opts.ProjectDir
	start := time.Now()
	res = &Result{State: StateIdle}

	hooks := observability.Pipeline()
	hooks.OnEvaluationStart(ctx, dir)
	defer func() {
		res.Stats.TotalTime = time.Since(start)
		hooks.OnEvaluationComplete(ctx, dir, res.Summary(), res.Stats.TotalTime, err)
	}()

	lock := fsutil.NewProjectLock(dir)
	if err := lock.Lock(ctx); err != nil {
		return res, err
	}
	defer func() {
		if uerr := lock.Unlock(); uerr != nil {
			r.Logger.Warn("release project lock", "path", lock.Path(), "error", uerr)
		}
	}()

	r.transition(ctx, res, dir, StateChecking)
	manifestPath := filepath.Join(dir, manifest.FileName)
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return res, err
	}

	changed, err := r.Tracker.HasChanged(ctx, m, dir)
	if err != nil {
		r.Logger.Warn("snapshot unavailable, evaluating anyway", "error", err)
		changed = true
	}
	if !changed && !opts.Force && opts.LogPath == "" {
		r.transition(ctx, res, dir, StateUnchanged)
		r.Logger.Info("dependencies unchanged", "project", m.Name)
		return res, nil
	}

	// An aborted evaluation leaves no report, so the next run must not
	// treat the hash stored above as evaluated.
	defer func() {
		if err == nil || res.Partial {
			return
		}
		ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.SaveTimeout)
		defer cancel()
		if ierr := r.Tracker.Invalidate(ictx, dir); ierr != nil {
			r.Logger.Warn("invalidate snapshot", "error", ierr)
		}
	}()

	r.transition(ctx, res, dir, StateEvaluating)
	rep := report.New(m.Name, r.now())
	rep.ProjectDir = dir

	if opts.LogPath != "" {
		analysis, err := logscan.AnalyzeFile(opts.LogPath)
		if err != nil {
			return res, err
		}
		res.Analysis = analysis
		rep.Findings = analysis.AllFindings()
		rep.MemoryIssues = analysis.MemoryIssues
		rep.TimeoutIssues = analysis.TimeoutIssues
		r.Logger.Debug("analyzed build log", "path", opts.LogPath, "findings", len(rep.Findings))
	}
	if opts.Verify {
		rep.Issues = project.Verify(dir)
	}

	detectStart := time.Now()
	detection, err := r.Detector.Detect(ctx, m)
	if err != nil {
		return res, err
	}
	res.Stats.DetectTime = time.Since(detectStart)
	res.Stats.Checked = detection.Checked
	res.Stats.Skipped = detection.Skipped
	res.Conflicts = detection.Records
	res.Partial = detection.Cancelled || ctx.Err() != nil

	rep.Conflicts = report.FromRecords(detection.Records)
	rep.SkippedLookups = detection.Skipped
	rep.Partial = res.Partial
	rep.Recommend(r.Detector.Policy())

	r.Logger.Info("checked dependencies",
		"conflicts", len(detection.Records),
		"checked", detection.Checked,
		"skipped", detection.Skipped,
		"duration", res.Stats.DetectTime)

	peerFindings := 0
	if res.Analysis != nil {
		peerFindings = len(res.Analysis.PeerConflicts())
	}
	if opts.AutoFix && !res.Partial && (len(detection.Records) > 0 || peerFindings > 0) {
		r.transition(ctx, res, dir, StateRemediating)
		actions, rerr := r.Engine.Remediate(remediate.Request{
			Manifest:     m,
			ManifestPath: manifestPath,
			Records:      detection.Records,
			PeerFindings: peerFindings,
			Fix:          opts.FixType,
		})
		res.Actions = actions
		res.RemediationErr = rerr
		rep.Actions = actions
		if rerr != nil {
			r.Logger.Warn("remediation incomplete", "error", rerr)
		}
		if pinned(actions) {
			if err := r.Tracker.Record(ctx, m, dir); err != nil {
				r.Logger.Warn("record remediated snapshot", "error", err)
			}
		}
	}

	saveCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		saveCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), r.SaveTimeout)
		defer cancel()
	}
	if res.Partial {
		// the next run has to repeat the evaluation
		if err := r.Tracker.Invalidate(saveCtx, dir); err != nil {
			r.Logger.Warn("invalidate snapshot", "error", err)
		}
	}

	path, err := r.Reports.Save(saveCtx, rep)
	if err != nil {
		return res, err
	}
	res.Report = rep
	res.ReportPath = path
	r.transition(ctx, res, dir, StateReported)
	r.Logger.Info("report saved", "path", path, "run", rep.RunID)

	if res.Partial {
		return res, ctx.Err()
	}
	return res, nil
}

func (r *Runner) transition(ctx context.Context, res *Result, dir string, to State) {
	from := res.State
	res.State = to
	r.Logger.Debug("state", "from", from, "to", to)
	observability.Pipeline().OnStateChange(ctx, dir, string(from), string(to))
}

func pinned(actions []remediate.Action) bool {
	for _, a := range actions {
		if a.Kind == remediate.KindPinVersion {
			return true
		}
	}
	return false
}
