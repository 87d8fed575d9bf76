package versions

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// maxEnumeratedMajor bounds [Range.Majors]. Ranges mentioning larger majors
// (date-based versions) report only their representative majors.
const maxEnumeratedMajor = 256

const probeCeiling = 9999

var literalPattern = regexp.MustCompile(`\d+(?:\.\d+){0,2}(?:-[0-9A-Za-z][0-9A-Za-z.-]*)?`)

// Range is a parsed npm version range.
type Range struct {
	raw        string
	constraint *semver.Constraints
	literals   []*semver.Version
}

// ParseRange parses an npm range. An empty range means any version, as it
// does for npm. Dist-tags ("latest") and protocol specifiers ("git+...",
// "workspace:...") are not ranges and fail to parse.
func ParseRange(s string) (*Range, error) {
	raw := strings.TrimSpace(s)
	expr := raw
	if expr == "" {
		expr = "*"
	}
	c, err := semver.NewConstraint(expr)
	if err != nil {
		return nil, fmt.Errorf("parse range %q: %w", raw, err)
	}
	r := &Range{raw: raw, constraint: c}
	for _, tok := range literalPattern.FindAllString(expr, -1) {
		if v, err := semver.NewVersion(tok); err == nil {
			r.literals = append(r.literals, v)
		}
	}
	return r, nil
}

// MustParseRange is like ParseRange but panics on error.
func MustParseRange(s string) *Range {
	r, err := ParseRange(s)
	if err != nil {
		panic(err)
	}
	return r
}

// String returns the range as written.
func (r *Range) String() string { return r.raw }

// AdmitsMajor reports whether some version with the given major satisfies r.
func (r *Range) AdmitsMajor(major uint64) bool {
	for _, v := range r.probes(major) {
		if r.constraint.Check(v) {
			return true
		}
	}
	return false
}

func (r *Range) probes(major uint64) []*semver.Version {
	out := []*semver.Version{
		semver.New(major, 0, 0, "", ""),
		semver.New(major, probeCeiling, probeCeiling, "", ""),
	}
	for _, lit := range r.literals {
		if lit.Major() != major {
			continue
		}
		out = append(out,
			lit,
			semver.New(major, lit.Minor(), lit.Patch(), "", ""),
			semver.New(major, lit.Minor(), lit.Patch()+1, "", ""),
			semver.New(major, lit.Minor()+1, 0, "", ""),
		)
	}
	return out
}

func (r *Range) maxLiteralMajor() uint64 {
	var m uint64
	for _, lit := range r.literals {
		m = max(m, lit.Major())
	}
	return m
}

// Majors returns the sorted set of majors r admits. Open-ended ranges
// (">=16", "*") are reported up to one past their highest literal major.
func (r *Range) Majors() []uint64 {
	top := r.maxLiteralMajor() + 1
	var candidates []uint64
	if top <= maxEnumeratedMajor {
		for m := uint64(0); m <= top; m++ {
			candidates = append(candidates, m)
		}
	} else {
		candidates = representatives(r)
	}
	var out []uint64
	for _, m := range candidates {
		if r.AdmitsMajor(m) {
			out = append(out, m)
		}
	}
	return out
}

// representatives returns zero plus every literal major of the given ranges
// and its successor. Between two consecutive literal majors every range
// behaves uniformly, so these points cover every distinct behaviour.
func representatives(ranges ...*Range) []uint64 {
	set := map[uint64]struct{}{0: {}}
	for _, r := range ranges {
		for _, lit := range r.literals {
			set[lit.Major()] = struct{}{}
			set[lit.Major()+1] = struct{}{}
		}
	}
	out := make([]uint64, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	slices.Sort(out)
	return out
}

// Intersects reports whether a and b admit at least one common major.
func Intersects(a, b *Range) bool {
	for _, m := range representatives(a, b) {
		if a.AdmitsMajor(m) && b.AdmitsMajor(m) {
			return true
		}
	}
	return false
}

// MajorsOverlap parses both ranges and reports whether their major sets
// intersect.
func MajorsOverlap(a, b string) (bool, error) {
	ra, err := ParseRange(a)
	if err != nil {
		return false, err
	}
	rb, err := ParseRange(b)
	if err != nil {
		return false, err
	}
	return Intersects(ra, rb), nil
}

// AdmitsAny reports whether r admits any of the given majors.
func (r *Range) AdmitsAny(majors []uint64) bool {
	return slices.ContainsFunc(majors, r.AdmitsMajor)
}

// FormatMajors renders a major set as "{16,17,18}".
func FormatMajors(majors []uint64) string {
	parts := make([]string, len(majors))
	for i, m := range majors {
		parts[i] = fmt.Sprint(m)
	}
	return "{" + strings.Join(parts, ",") + "}"
}
