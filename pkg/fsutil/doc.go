// Package fsutil holds the two filesystem primitives every peerguard writer
// relies on.
//
// [WriteFileAtomic] replaces a file by writing a sibling temp file and
// renaming it over the target, so a crash mid-write leaves either the old or
// the new content on disk, never a truncated manifest.
//
// [ProjectLock] is an advisory, cross-process exclusive lock keyed by project
// directory. The pipeline holds it for the whole evaluation so two CI jobs
// sharing a checkout cannot interleave manifest and report writes.
package fsutil
