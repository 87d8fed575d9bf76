// Package versions answers one question about npm version ranges: which
// major versions can a range admit?
//
// Ranges are parsed with Masterminds/semver, which understands the npm range
// grammar peerguard meets in practice (caret, tilde, x-ranges, hyphen
// ranges, comparator sets joined by "||"). A range's major set is computed
// by probing, not by symbolic interval math: for each candidate major the
// range is checked against the lowest and highest versions of that major
// and against every version literal the range itself mentions. Comparator
// ranges only change behaviour at their literals, so probing the literal
// majors, their successors and zero decides overlap exactly.
//
// Two ranges conflict, in the sense used by the conflict detector, when
// their major sets are disjoint.
package versions
