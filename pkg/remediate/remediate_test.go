package remediate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/peerguard/pkg/conflict"
	"github.com/matzehuels/peerguard/pkg/errors"
	"github.com/matzehuels/peerguard/pkg/manifest"
)

const scenarioA = `{
  "name": "storefront",
  "dependencies": {
    "react": "^19.0.0",
    "react-dom": "^19.0.0",
    "cmdk": "^0.2.0"
  }
}
`

var cmdkConflict = []conflict.Record{{
	Package:           "cmdk",
	DeclaredRange:     "^0.2.0",
	RequiredPeerRange: "^18",
	SubjectRange:      "^19.0.0",
	Severity:          conflict.SeverityBlocking,
}}

func setup(t *testing.T, content string) (string, *manifest.Manifest) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, manifest.FileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := manifest.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	return path, m
}

func kinds(actions []Action) []Kind {
	var out []Kind
	for _, a := range actions {
		out = append(out, a.Kind)
	}
	return out
}

func TestRemediateScenarioA(t *testing.T) {
	path, m := setup(t, scenarioA)
	engine := NewEngine(conflict.DefaultPolicy(), nil)

	actions, err := engine.Remediate(Request{Manifest: m, ManifestPath: path, Records: cmdkConflict, Fix: FixAuto})
	if err != nil {
		t.Fatalf("Remediate() error: %v", err)
	}
	if got := kinds(actions); len(got) != 2 || got[0] != KindWriteConfig || got[1] != KindPinVersion {
		t.Fatalf("actions = %v, want [write_config pin_version]", got)
	}
	for _, a := range actions {
		if a.AppliedAt.IsZero() || a.Description == "" {
			t.Errorf("incomplete action %+v", a)
		}
	}

	npmrc, err := os.ReadFile(filepath.Join(filepath.Dir(path), NpmrcFileName))
	if err != nil || string(npmrc) != NpmrcContent {
		t.Errorf(".npmrc = %q, %v", npmrc, err)
	}
	for _, line := range []string{"legacy-peer-deps=true", "auto-install-peers=true", "strict-peer-deps=false"} {
		if !strings.Contains(string(npmrc), line+"\n") {
			t.Errorf(".npmrc missing %q", line)
		}
	}

	reloaded, _ := manifest.Load(path)
	for _, name := range []string{"react", "react-dom"} {
		if rng, _ := reloaded.Range(name); rng != "^18.2.0" {
			t.Errorf("%s = %q, want ^18.2.0", name, rng)
		}
	}
	if rng, _ := reloaded.Range("cmdk"); rng != "^0.2.0" {
		t.Errorf("cmdk changed to %q", rng)
	}

	// Second run on the updated manifest is a no-op
	again, err := engine.Remediate(Request{Manifest: reloaded, ManifestPath: path, Records: cmdkConflict, Fix: FixAuto})
	if err != nil {
		t.Fatalf("second Remediate() error: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second run actions = %v, want none", kinds(again))
	}
}

func TestRemediateWithoutCompanion(t *testing.T) {
	path, m := setup(t, `{"dependencies": {"react": "^19.0.0", "cmdk": "^0.2.0"}}`)
	actions, err := NewEngine(conflict.DefaultPolicy(), nil).Remediate(Request{
		Manifest: m, ManifestPath: path, Records: cmdkConflict, Fix: FixDowngrade,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(actions) != 1 || actions[0].Description != "Pinned react to ^18.2.0" {
		t.Errorf("actions = %+v", actions)
	}
	if m.Has("react-dom") {
		t.Error("react-dom must not be added")
	}
}

func TestRemediateNothingToJustify(t *testing.T) {
	path, m := setup(t, scenarioA)
	actions, err := NewEngine(conflict.DefaultPolicy(), nil).Remediate(Request{Manifest: m, ManifestPath: path, Fix: FixAuto})
	if err != nil || len(actions) != 0 {
		t.Errorf("Remediate() = %v, %v; want no actions", actions, err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(path), NpmrcFileName)); !os.IsNotExist(err) {
		t.Error(".npmrc must not be written without a detection")
	}
}

func TestRemediatePeerFindingsOnlyWriteConfig(t *testing.T) {
	path, m := setup(t, scenarioA)
	actions, err := NewEngine(conflict.DefaultPolicy(), nil).Remediate(Request{
		Manifest: m, ManifestPath: path, PeerFindings: 1, Fix: FixAuto,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := kinds(actions); len(got) != 1 || got[0] != KindWriteConfig {
		t.Errorf("actions = %v, want only write_config", got)
	}
	if rng, _ := m.Range("react"); rng != "^19.0.0" {
		t.Error("pinning requires a blocking conflict record")
	}
}

func TestRemediateFixTypes(t *testing.T) {
	tests := []struct {
		fix  FixType
		want []Kind
	}{
		{FixNpmrc, []Kind{KindWriteConfig}},
		{FixDowngrade, []Kind{KindPinVersion}},
		{FixAuto, []Kind{KindWriteConfig, KindPinVersion}},
		{"", []Kind{KindWriteConfig, KindPinVersion}},
	}
	for _, tt := range tests {
		t.Run(string(tt.fix), func(t *testing.T) {
			path, m := setup(t, scenarioA)
			actions, err := NewEngine(conflict.DefaultPolicy(), nil).Remediate(Request{
				Manifest: m, ManifestPath: path, Records: cmdkConflict, Fix: tt.fix,
			})
			if err != nil {
				t.Fatal(err)
			}
			got := kinds(actions)
			if len(got) != len(tt.want) {
				t.Fatalf("actions = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("actions = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestRemediateAlreadyCompatible(t *testing.T) {
	path, m := setup(t, `{"dependencies": {"react": "^18.3.0", "cmdk": "^0.2.0"}}`)
	actions, _ := NewEngine(conflict.DefaultPolicy(), nil).Remediate(Request{
		Manifest: m, ManifestPath: path, Records: cmdkConflict, Fix: FixDowngrade,
	})
	if len(actions) != 0 {
		t.Errorf("actions = %v; a non-incompatible major must not be pinned", kinds(actions))
	}
}

func TestRemediateExistingDifferentNpmrc(t *testing.T) {
	path, m := setup(t, scenarioA)
	npmrc := filepath.Join(filepath.Dir(path), NpmrcFileName)
	_ = os.WriteFile(npmrc, []byte("registry=https://example.invalid\n"), 0o644)

	actions, _ := NewEngine(conflict.DefaultPolicy(), nil).Remediate(Request{
		Manifest: m, ManifestPath: path, Records: cmdkConflict, Fix: FixNpmrc,
	})
	if len(actions) != 1 {
		t.Fatalf("actions = %v, want write_config", kinds(actions))
	}
	data, _ := os.ReadFile(npmrc)
	if string(data) != NpmrcContent {
		t.Errorf(".npmrc = %q", data)
	}
}

func TestRemediateFailureIsolation(t *testing.T) {
	path, m := setup(t, scenarioA)
	// A directory where the config file should be makes write_config fail
	if err := os.Mkdir(filepath.Join(filepath.Dir(path), NpmrcFileName), 0o755); err != nil {
		t.Fatal(err)
	}

	actions, err := NewEngine(conflict.DefaultPolicy(), nil).Remediate(Request{
		Manifest: m, ManifestPath: path, Records: cmdkConflict, Fix: FixAuto,
	})
	if !errors.Is(err, errors.ErrCodeRemediationWrite) {
		t.Fatalf("error = %v, want REMEDIATION_WRITE_FAILURE", err)
	}
	if got := kinds(actions); len(got) != 1 || got[0] != KindPinVersion {
		t.Errorf("actions = %v; pin_version should still run", got)
	}
}

func TestParseFixType(t *testing.T) {
	for in, want := range map[string]FixType{"": FixAuto, "auto": FixAuto, "NPMRC": FixNpmrc, " downgrade ": FixDowngrade} {
		got, err := ParseFixType(in)
		if err != nil || got != want {
			t.Errorf("ParseFixType(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFixType("nuke"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("ParseFixType(nuke) error = %v", err)
	}
}
