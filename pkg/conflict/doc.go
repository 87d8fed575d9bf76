// Package conflict classifies peer-dependency conflicts between a project's
// declared dependencies and a subject package such as react.
//
// # Algorithm
//
// [Detector.Detect] merges the runtime and development groups, drops the
// subject and its companions, and asks a [PeerSource] what each remaining
// package, at its declared range, requires of the subject. When the major
// set of that requirement and the major set of the project's declared
// subject range are disjoint, the package gets a blocking [Record]. Overlap,
// missing peer metadata and failed lookups all produce no record.
//
// # Failure isolation
//
// Every lookup runs under its own timeout. A lookup that fails or times out
// is counted in [Result.Skipped] and the scan continues. Cancelling the
// context stops scheduling further lookups and returns what was gathered
// with [Result.Cancelled] set.
//
// # Policy
//
// [Policy] names the subject, its companions, the range remediation pins to
// and the majors considered incompatible. [DefaultPolicy] is the React 19
// migration the tool was built for; other ecosystems configure their own.
package conflict
