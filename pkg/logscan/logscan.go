package logscan

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/matzehuels/peerguard/pkg/errors"
)

// Scan limits.
const (
	// ContextLines is how many lines after a peer-resolution marker are
	// captured as evidence.
	ContextLines = 15

	// MaxEvidenceBytes caps the evidence of any single finding.
	MaxEvidenceBytes = 4 << 10

	maxLineBytes = 4 << 20
)

// Signatures.
const (
	markerPeerConflict = "npm error ERESOLVE could not resolve"
	markerMemory       = "JavaScript heap out of memory"
	markerTimeout      = "timed out"
	markerError        = "Error:"
	markerNpmError     = "npm error"
)

// Kind classifies a finding.
type Kind string

const (
	KindPeerConflict     Kind = "peer_conflict"
	KindBuildError       Kind = "build_error"
	KindMemoryExhaustion Kind = "memory_exhaustion"
	KindTimeout          Kind = "timeout"
)

// Finding is one piece of evidence extracted from a log.
type Finding struct {
	Kind     Kind   `json:"kind"`
	Evidence string `json:"evidence"`
	Line     int    `json:"line"` // 1-based line of the marker
}

// Analysis is the result of scanning one log.
type Analysis struct {
	// Findings holds peer_conflict and build_error findings in log order.
	Findings      []Finding `json:"findings"`
	MemoryIssues  bool      `json:"memoryIssues"`
	TimeoutIssues bool      `json:"timeoutIssues"`

	memoryLine  Finding
	timeoutLine Finding
}

// PeerConflicts returns the peer_conflict findings.
func (a *Analysis) PeerConflicts() []Finding { return a.byKind(KindPeerConflict) }

// BuildErrors returns the build_error findings.
func (a *Analysis) BuildErrors() []Finding { return a.byKind(KindBuildError) }

func (a *Analysis) byKind(k Kind) []Finding {
	var out []Finding
	for _, f := range a.Findings {
		if f.Kind == k {
			out = append(out, f)
		}
	}
	return out
}

// AllFindings returns Findings followed by one memory_exhaustion and one
// timeout finding when the respective flag is set, carrying the first line
// that set it. Reports store flags in this form.
func (a *Analysis) AllFindings() []Finding {
	out := append([]Finding(nil), a.Findings...)
	if a.MemoryIssues {
		out = append(out, a.memoryLine)
	}
	if a.TimeoutIssues {
		out = append(out, a.timeoutLine)
	}
	return out
}

// Empty reports whether nothing was found.
func (a *Analysis) Empty() bool {
	return len(a.Findings) == 0 && !a.MemoryIssues && !a.TimeoutIssues
}

// Analyze scans log text.
func Analyze(text string) *Analysis {
	a, _ := AnalyzeReader(strings.NewReader(text))
	return a
}

// AnalyzeFile scans the log at path.
func AnalyzeFile(path string) (*Analysis, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeLogFileNotFound, err, "log file not found: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer f.Close()
	return AnalyzeReader(f)
}

// window collects evidence lines for an open peer_conflict finding.
type window struct {
	index     int
	lines     []string
	remaining int
}

// AnalyzeReader scans r line by line. On a read error the findings gathered
// so far are returned along with the error.
func AnalyzeReader(r io.Reader) (*Analysis, error) {
	a := &Analysis{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64<<10), maxLineBytes)

	var open []*window
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")

		open = feed(a, open, line)

		if strings.Contains(line, markerPeerConflict) {
			a.Findings = append(a.Findings, Finding{Kind: KindPeerConflict, Line: lineNo})
			open = append(open, &window{
				index:     len(a.Findings) - 1,
				lines:     []string{line},
				remaining: ContextLines,
			})
		}
		if strings.Contains(line, markerMemory) && !a.MemoryIssues {
			a.MemoryIssues = true
			a.memoryLine = Finding{Kind: KindMemoryExhaustion, Evidence: bound(strings.TrimSpace(line)), Line: lineNo}
		}
		if strings.Contains(strings.ToLower(line), markerTimeout) && !a.TimeoutIssues {
			a.TimeoutIssues = true
			a.timeoutLine = Finding{Kind: KindTimeout, Evidence: bound(strings.TrimSpace(line)), Line: lineNo}
		}
		if strings.Contains(line, markerError) && !strings.Contains(line, markerNpmError) {
			a.Findings = append(a.Findings, Finding{
				Kind:     KindBuildError,
				Evidence: bound(strings.TrimSpace(line)),
				Line:     lineNo,
			})
		}
	}
	for _, w := range open {
		a.Findings[w.index].Evidence = bound(strings.Join(w.lines, "\n"))
	}
	return a, sc.Err()
}

// feed appends line to every open window and closes the full ones.
func feed(a *Analysis, open []*window, line string) []*window {
	kept := open[:0]
	for _, w := range open {
		w.lines = append(w.lines, line)
		w.remaining--
		if w.remaining == 0 {
			a.Findings[w.index].Evidence = bound(strings.Join(w.lines, "\n"))
			continue
		}
		kept = append(kept, w)
	}
	return kept
}

// bound truncates s to MaxEvidenceBytes without splitting a rune.
func bound(s string) string {
	if len(s) <= MaxEvidenceBytes {
		return s
	}
	cut := MaxEvidenceBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
