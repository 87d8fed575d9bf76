// Package remediate applies the fixed, ordered set of structural fixes for
// peer-dependency conflicts.
//
// There are exactly two actions, always attempted in this order:
//
//  1. write_config: write .npmrc with directives that make npm tolerate peer
//     mismatches instead of failing the install
//  2. pin_version: when a blocking conflict exists and the declared subject
//     range admits an incompatible major, pin the subject and its companions
//     to the policy's compatible range
//
// Both compare before they write. Re-running the engine on its own output
// therefore returns no actions, which is what makes auto-fix safe to leave
// enabled in CI.
package remediate

import (
	stderrors "errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/peerguard/pkg/conflict"
	"github.com/matzehuels/peerguard/pkg/errors"
	"github.com/matzehuels/peerguard/pkg/fsutil"
	"github.com/matzehuels/peerguard/pkg/manifest"
	"github.com/matzehuels/peerguard/pkg/versions"
)

// NpmrcFileName is the package-manager config file written by write_config.
const NpmrcFileName = ".npmrc"

// NpmrcContent is the exact content written to .npmrc.
const NpmrcContent = `# Relax peer dependency resolution (managed by peerguard)
legacy-peer-deps=true
auto-install-peers=true
strict-peer-deps=false
`

// Kind identifies an action.
type Kind string

const (
	KindWriteConfig Kind = "write_config"
	KindPinVersion  Kind = "pin_version"
)

// Action records one applied fix.
type Action struct {
	Kind        Kind      `json:"kind"`
	Description string    `json:"description"`
	AppliedAt   time.Time `json:"appliedAt"`
}

// FixType selects which actions run.
type FixType string

const (
	FixAuto      FixType = "auto"
	FixNpmrc     FixType = "npmrc"
	FixDowngrade FixType = "downgrade"
)

// ParseFixType validates a fix type name. The empty string means auto.
func ParseFixType(s string) (FixType, error) {
	switch ft := FixType(strings.ToLower(strings.TrimSpace(s))); ft {
	case "":
		return FixAuto, nil
	case FixAuto, FixNpmrc, FixDowngrade:
		return ft, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidInput, "unknown fix type %q (want auto, npmrc or downgrade)", s)
	}
}

func (f FixType) writesConfig() bool { return f == FixAuto || f == FixNpmrc }
func (f FixType) pins() bool         { return f == FixAuto || f == FixDowngrade }

// Request is the input of one remediation run.
type Request struct {
	Manifest     *manifest.Manifest
	ManifestPath string
	Records      []conflict.Record
	// PeerFindings counts peer_conflict findings from build logs. They
	// justify write_config even when the detector found nothing.
	PeerFindings int
	Fix          FixType
}

// Engine applies remediation actions.
type Engine struct {
	policy conflict.Policy
	logger *log.Logger
	now    func() time.Time
}

// NewEngine creates an engine for policy. A nil logger discards output.
func NewEngine(policy conflict.Policy, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Engine{policy: policy, logger: logger, now: time.Now}
}

// Remediate runs the actions selected by req.Fix and returns those that
// changed something. With no records and no peer findings it does nothing.
// A failing action does not stop the other; failures are joined into the
// returned error, each carrying ErrCodeRemediationWrite.
func (e *Engine) Remediate(req Request) ([]Action, error) {
	if len(req.Records) == 0 && req.PeerFindings == 0 {
		return nil, nil
	}
	fix := req.Fix
	if fix == "" {
		fix = FixAuto
	}
	dir := filepath.Dir(req.ManifestPath)

	var (
		actions []Action
		errs    []error
	)
	if fix.writesConfig() {
		a, err := e.writeNpmrc(filepath.Join(dir, NpmrcFileName))
		if err != nil {
			errs = append(errs, err)
		} else if a != nil {
			actions = append(actions, *a)
		}
	}
	if fix.pins() {
		a, err := e.pinSubject(req)
		if err != nil {
			errs = append(errs, err)
		} else if a != nil {
			actions = append(actions, *a)
		}
	}
	return actions, stderrors.Join(errs...)
}

func (e *Engine) writeNpmrc(path string) (*Action, error) {
	same, err := fsutil.SameContent(path, []byte(NpmrcContent))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRemediationWrite, err, "inspect %s", path)
	}
	if same {
		e.logger.Debug("npmrc already relaxed", "path", path)
		return nil, nil
	}
	if err := fsutil.WriteFileAtomic(path, []byte(NpmrcContent), 0o644); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRemediationWrite, err, "write %s", path)
	}
	e.logger.Info("wrote npmrc", "path", path)
	return &Action{
		Kind:        KindWriteConfig,
		Description: fmt.Sprintf("Wrote %s with legacy-peer-deps=true", NpmrcFileName),
		AppliedAt:   e.now(),
	}, nil
}

func (e *Engine) pinSubject(req Request) (*Action, error) {
	if !hasBlocking(req.Records) || req.Manifest == nil {
		return nil, nil
	}
	declared, ok := req.Manifest.Range(e.policy.Subject)
	if !ok {
		return nil, nil
	}
	rng, err := versions.ParseRange(declared)
	if err != nil || !rng.AdmitsAny(e.policy.IncompatibleMajors) {
		return nil, nil
	}

	var pinned []string
	previous := map[string]string{}
	for _, name := range e.policy.Pinned() {
		old, _ := req.Manifest.Range(name)
		if req.Manifest.Set(name, e.policy.PinRange) {
			pinned = append(pinned, name)
			previous[name] = old
		}
	}
	if len(pinned) == 0 {
		return nil, nil
	}
	if err := manifest.Save(req.Manifest, req.ManifestPath); err != nil {
		// keep the in-memory manifest in step with the file on disk
		for name, old := range previous {
			req.Manifest.Set(name, old)
		}
		return nil, errors.Wrap(errors.ErrCodeRemediationWrite, err, "pin %s", strings.Join(pinned, ", "))
	}
	e.logger.Info("pinned compatible version", "packages", pinned, "range", e.policy.PinRange)
	return &Action{
		Kind:        KindPinVersion,
		Description: fmt.Sprintf("Pinned %s to %s", strings.Join(pinned, ", "), e.policy.PinRange),
		AppliedAt:   e.now(),
	}, nil
}

func hasBlocking(records []conflict.Record) bool {
	for _, r := range records {
		if r.Severity == conflict.SeverityBlocking {
			return true
		}
	}
	return false
}
