// Package buildinfo holds the version stamped into the peerguard binary.
//
// Release builds set the variables with ldflags:
//
//	go build -ldflags "-X github.com/matzehuels/peerguard/pkg/buildinfo.Version=v1.0.0 \
//	    -X github.com/matzehuels/peerguard/pkg/buildinfo.Commit=$(git rev-parse HEAD) \
//	    -X github.com/matzehuels/peerguard/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package buildinfo

import "fmt"

var (
	Version = "dev"  // semantic version, e.g. "v1.2.3"
	Commit  = "none" // git commit SHA
	Date    = "unknown"
)

// Template is the cobra version template printed by --version.
func Template() string {
	return fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date)
}
