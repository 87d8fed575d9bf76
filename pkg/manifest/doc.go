// Package manifest loads and saves package.json files without disturbing
// anything peerguard does not own.
//
// A [Manifest] keeps every top-level field as the raw JSON it was read from,
// in file order. Only the "dependencies" and "devDependencies" objects are
// decoded, into ordered [Spec] lists, and only those two objects are
// re-encoded by [Save]. A pinned React version therefore shows up in a diff
// as a one-line change.
//
// Callers serialize access to a given file themselves; the pipeline does so
// with [fsutil.ProjectLock].
//
// [fsutil.ProjectLock]: github.com/matzehuels/peerguard/pkg/fsutil.ProjectLock
package manifest
