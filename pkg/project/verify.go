// Package project checks a JavaScript project directory for the files and
// settings that make a CI build reproducible. Nothing here writes to the
// project; every problem is reported as a human-readable issue.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/matzehuels/peerguard/pkg/manifest"
)

// LockFileName is npm's lockfile.
const LockFileName = "package-lock.json"

type requiredFile struct {
	names       []string
	description string
}

var requiredFiles = []requiredFile{
	{[]string{manifest.FileName}, "Node.js project configuration"},
	{[]string{".npmrc"}, "npm configuration for peer dependency handling"},
	{[]string{"next.config.js", "next.config.mjs", "next.config.ts"}, "Next.js configuration"},
	{[]string{"tsconfig.json"}, "TypeScript configuration"},
}

// BuildDirs are the output directories of the common JavaScript bundlers.
var BuildDirs = []string{".next", "dist", "build", "out"}

// Verify inspects dir and returns the issues found, in a stable order. A
// clean project yields an empty slice.
func Verify(dir string) []string {
	issues := []string{}

	for _, rf := range requiredFiles {
		if !anyExists(dir, rf.names, false) {
			issues = append(issues, fmt.Sprintf("missing %s: %s", rf.names[0], rf.description))
		}
	}

	issues = append(issues, manifestIssues(dir)...)

	if !anyExists(dir, BuildDirs, true) {
		issues = append(issues, "no build directory found (.next, dist, build, out)")
	}

	if issue := lockfileIssue(dir); issue != "" {
		issues = append(issues, issue)
	}
	return issues
}

func anyExists(dir string, names []string, wantDir bool) bool {
	for _, name := range names {
		info, err := os.Stat(filepath.Join(dir, name))
		if err == nil && info.IsDir() == wantDir {
			return true
		}
	}
	return false
}

func manifestIssues(dir string) []string {
	data, err := os.ReadFile(filepath.Join(dir, manifest.FileName))
	if err != nil {
		return nil
	}
	m, err := manifest.Parse(data)
	if err != nil {
		return []string{"package.json could not be parsed"}
	}

	var issues []string
	if _, ok := m.Field("engines"); !ok {
		issues = append(issues, `specify the Node.js version under "engines" in package.json`)
	}
	if raw, ok := m.Field("scripts"); ok {
		var scripts map[string]json.RawMessage
		if json.Unmarshal(raw, &scripts) == nil {
			_, hasBuild := scripts["build"]
			_, hasPrebuild := scripts["prebuild"]
			if hasBuild && !hasPrebuild {
				issues = append(issues, `add a "prebuild" script that checks dependencies before "build"`)
			}
		}
	}
	return issues
}

func lockfileIssue(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, LockFileName))
	if err != nil {
		return ""
	}
	var lock struct {
		LockfileVersion *int `json:"lockfileVersion"`
	}
	if err := json.Unmarshal(data, &lock); err != nil {
		return LockFileName + " could not be parsed"
	}
	if lock.LockfileVersion != nil && *lock.LockfileVersion < 2 {
		return fmt.Sprintf("%s uses lockfileVersion %d; regenerate it with npm 7 or newer", LockFileName, *lock.LockfileVersion)
	}
	return ""
}
