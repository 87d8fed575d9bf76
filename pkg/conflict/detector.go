package conflict

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/peerguard/pkg/errors"
	"github.com/matzehuels/peerguard/pkg/manifest"
	"github.com/matzehuels/peerguard/pkg/versions"
)

// Default detector settings.
const (
	DefaultQueryTimeout = 5 * time.Second
	DefaultWorkers      = 8
)

// Severity classifies a conflict.
type Severity string

const (
	// SeverityBlocking means the install will fail without intervention.
	SeverityBlocking Severity = "blocking"
	// SeverityAdvisory is accepted when reading reports written by other
	// tools; the detector itself only emits blocking records.
	SeverityAdvisory Severity = "advisory"
)

// Record is one classified conflict.
type Record struct {
	Package           string   `json:"package"`
	DeclaredRange     string   `json:"declaredRange"`
	RequiredPeerRange string   `json:"requiredPeerRange"`
	SubjectRange      string   `json:"subjectRange"`
	Severity          Severity `json:"severity"`
}

// Result is the outcome of a scan.
type Result struct {
	Records   []Record
	Checked   int  // lookups that returned an answer
	Skipped   int  // lookups that failed, timed out or could not be compared
	Cancelled bool // the context ended before every lookup was scheduled
}

// Blocking reports whether any record is blocking.
func (r *Result) Blocking() bool {
	for _, rec := range r.Records {
		if rec.Severity == SeverityBlocking {
			return true
		}
	}
	return false
}

// PeerSource answers peer-dependency questions, typically backed by the npm
// registry.
type PeerSource interface {
	// PeerRequirement returns the range pkg at versionRange declares for
	// subject in its peerDependencies. ok is false when it declares none.
	PeerRequirement(ctx context.Context, pkg, versionRange, subject string) (peer string, ok bool, err error)
}

// Options configures a Detector.
type Options struct {
	Policy       Policy
	QueryTimeout time.Duration
	Workers      int
	Logger       *log.Logger
}

// Detector classifies peer-dependency conflicts.
type Detector struct {
	source       PeerSource
	policy       Policy
	queryTimeout time.Duration
	workers      int
	logger       *log.Logger
}

// NewDetector creates a Detector. Zero options select [DefaultPolicy],
// [DefaultQueryTimeout] and [DefaultWorkers].
func NewDetector(source PeerSource, opts Options) *Detector {
	if opts.Policy.Subject == "" {
		opts.Policy = DefaultPolicy()
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = DefaultQueryTimeout
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Detector{
		source:       source,
		policy:       opts.Policy,
		queryTimeout: opts.QueryTimeout,
		workers:      opts.Workers,
		logger:       opts.Logger,
	}
}

// Policy returns the detector's policy.
func (d *Detector) Policy() Policy { return d.policy }

// Detect scans m. It returns an error only when the scan cannot start; lookup
// failures and cancellation are reported through the Result.
func (d *Detector) Detect(ctx context.Context, m *manifest.Manifest) (*Result, error) {
	if d.source == nil {
		return nil, errors.New(errors.ErrCodeInternal, "conflict detector has no peer source")
	}
	res := &Result{}

	declared, ok := m.Range(d.policy.Subject)
	if !ok {
		d.logger.Debug("subject not declared, nothing to check", "subject", d.policy.Subject)
		return res, nil
	}
	subject, err := versions.ParseRange(declared)
	if err != nil {
		d.logger.Warn("cannot compare against subject range", "subject", d.policy.Subject, "range", declared, "err", err)
		return res, nil
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(d.workers)

	for _, spec := range m.Specs() {
		if d.policy.Excludes(spec.Name) {
			continue
		}
		if ctx.Err() != nil {
			res.Cancelled = true
			break
		}
		g.Go(func() error {
			rec, outcome := d.check(ctx, spec, subject)
			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case outcomeChecked:
				res.Checked++
				if rec != nil {
					res.Records = append(res.Records, *rec)
				}
			case outcomeSkipped:
				res.Skipped++
			}
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		res.Cancelled = true
	}
	sort.Slice(res.Records, func(i, j int) bool {
		return res.Records[i].Package < res.Records[j].Package
	})
	return res, nil
}

type outcome int

const (
	outcomeChecked outcome = iota
	outcomeSkipped
)

func (d *Detector) check(ctx context.Context, spec manifest.Spec, subject *versions.Range) (*Record, outcome) {
	logger := d.logger.With("package", spec.Name, "range", spec.Range)

	if err := errors.ValidatePackageName(spec.Name); err != nil {
		logger.Warn("skipping invalid package name", "err", err)
		return nil, outcomeSkipped
	}

	qctx, cancel := context.WithTimeout(ctx, d.queryTimeout)
	defer cancel()

	peer, ok, err := d.source.PeerRequirement(qctx, spec.Name, spec.Range, d.policy.Subject)
	if err != nil {
		err = errors.Wrap(errors.ErrCodeRegistryQuery, err, "peer lookup for %s@%s", spec.Name, spec.Range)
		logger.Debug("lookup failed", "err", err)
		return nil, outcomeSkipped
	}
	if !ok {
		return nil, outcomeChecked
	}

	required, err := versions.ParseRange(peer)
	if err != nil {
		logger.Debug("unparseable peer range", "peer", peer, "err", err)
		return nil, outcomeSkipped
	}
	if versions.Intersects(subject, required) {
		return nil, outcomeChecked
	}

	logger.Debug("blocking conflict", "peer", peer, "peerMajors", versions.FormatMajors(required.Majors()))
	return &Record{
		Package:           spec.Name,
		DeclaredRange:     spec.Range,
		RequiredPeerRange: peer,
		SubjectRange:      subject.String(),
		Severity:          SeverityBlocking,
	}, outcomeChecked
}
