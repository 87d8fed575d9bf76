// Package pkg holds the peerguard libraries.
//
// # Overview
//
// peerguard decides, before a JavaScript project is installed, whether its
// declared dependencies will fail peer resolution, explains failed builds
// from their logs and applies a bounded set of idempotent fixes. The
// packages are layered:
//
//  1. Domain: [manifest], [versions], [conflict], [logscan], [remediate],
//     [snapshot], [report], [project]
//  2. Orchestration: [pipeline] runs one evaluation as a state machine
//  3. Infrastructure: [cache], [fsutil], [httputil], [config],
//     [observability], [errors], [buildinfo]
//  4. Integrations: [integrations] and its npm registry client
//
// # Data flow
//
//	package.json
//	     ↓  manifest.Load
//	snapshot.Tracker.HasChanged ──unchanged──→ done
//	     ↓  changed, forced, or a build log was given
//	conflict.Detector.Detect  ←── npm registry (cached)
//	     ↓
//	remediate.Engine.Remediate (auto-fix only)
//	     ↓
//	report.Store.Save
//
// The command-line interface in internal/cli wires these together from a
// resolved [config.Config].
package pkg
