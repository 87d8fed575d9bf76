// Package logscan extracts structured findings from raw build logs.
//
// The scan is line oriented and looks for fixed signatures that npm, Node
// and hosting platforms print when a build fails:
//
//   - "npm error ERESOLVE could not resolve" starts a peer_conflict finding
//     whose evidence is that line plus the next [ContextLines] lines
//   - "JavaScript heap out of memory" sets [Analysis.MemoryIssues]
//   - "timed out", in any case, sets [Analysis.TimeoutIssues]
//   - any other line containing "Error:" that is not an npm error line is a
//     build_error finding
//
// Evidence is bounded twice: by line count and by [MaxEvidenceBytes]. The
// scan streams, so multi-megabyte logs are never held in memory.
package logscan
