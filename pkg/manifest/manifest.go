package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/peerguard/pkg/errors"
)

// FileName is the manifest file name inside a project directory.
const FileName = "package.json"

// Dependency group keys.
const (
	GroupRuntime     = "dependencies"
	GroupDevelopment = "devDependencies"
)

// Spec is a declared dependency.
type Spec struct {
	Name  string
	Range string
}

// Manifest is a parsed package.json.
type Manifest struct {
	Name            string
	Dependencies    []Spec
	DevDependencies []Spec

	fields []field
}

type field struct {
	key string
	raw json.RawMessage
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeManifestNotFound, err, "manifest not found: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeManifestParse, err, "invalid manifest %s", path)
	}
	return m, nil
}

// Parse decodes package.json content. The document must be a JSON object and
// both dependency groups, when present, must be objects of strings.
func Parse(data []byte) (*Manifest, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, fmt.Errorf("top level: %w", err)
	}

	m := &Manifest{}
	for dec.More() {
		key, err := stringToken(dec)
		if err != nil {
			return nil, err
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		m.setField(key, raw)
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after top-level object")
	}

	var err error
	if raw, ok := m.Field(GroupRuntime); ok {
		if m.Dependencies, err = parseGroup(raw); err != nil {
			return nil, fmt.Errorf("%s: %w", GroupRuntime, err)
		}
	}
	if raw, ok := m.Field(GroupDevelopment); ok {
		if m.DevDependencies, err = parseGroup(raw); err != nil {
			return nil, fmt.Errorf("%s: %w", GroupDevelopment, err)
		}
	}
	if raw, ok := m.Field("name"); ok {
		_ = json.Unmarshal(raw, &m.Name)
	}
	return m, nil
}

func parseGroup(raw json.RawMessage) ([]Spec, error) {
	if string(bytes.TrimSpace(raw)) == "null" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	var specs []Spec
	index := map[string]int{}
	for dec.More() {
		name, err := stringToken(dec)
		if err != nil {
			return nil, err
		}
		rng, err := stringToken(dec)
		if err != nil {
			return nil, fmt.Errorf("%s: range must be a string", name)
		}
		if i, dup := index[name]; dup {
			specs[i].Range = rng
			continue
		}
		index[name] = len(specs)
		specs = append(specs, Spec{Name: name, Range: rng})
	}
	return specs, expectDelim(dec, '}')
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func stringToken(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	s, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %v", tok)
	}
	return s, nil
}

// Field returns the raw JSON of a top-level field.
func (m *Manifest) Field(key string) (json.RawMessage, bool) {
	for _, f := range m.fields {
		if f.key == key {
			return f.raw, true
		}
	}
	return nil, false
}

// setField replaces key in place, or appends it when absent.
func (m *Manifest) setField(key string, raw json.RawMessage) {
	for i := range m.fields {
		if m.fields[i].key == key {
			m.fields[i].raw = raw
			return
		}
	}
	m.fields = append(m.fields, field{key: key, raw: raw})
}

// Merged returns runtime and development dependencies as one map.
// Development ranges win when a package is declared in both groups.
func (m *Manifest) Merged() map[string]string {
	out := make(map[string]string, len(m.Dependencies)+len(m.DevDependencies))
	for _, s := range m.Dependencies {
		out[s.Name] = s.Range
	}
	for _, s := range m.DevDependencies {
		out[s.Name] = s.Range
	}
	return out
}

// Specs returns runtime then development specs. A package declared in both
// groups appears once, with its development range, at its runtime position.
func (m *Manifest) Specs() []Spec {
	merged := m.Merged()
	seen := make(map[string]bool, len(merged))
	out := make([]Spec, 0, len(merged))
	for _, group := range [][]Spec{m.Dependencies, m.DevDependencies} {
		for _, s := range group {
			if seen[s.Name] {
				continue
			}
			seen[s.Name] = true
			out = append(out, Spec{Name: s.Name, Range: merged[s.Name]})
		}
	}
	return out
}

// Range returns the effective declared range of name.
func (m *Manifest) Range(name string) (string, bool) {
	rng, ok := m.Merged()[name]
	return rng, ok
}

// Has reports whether name is declared in either group.
func (m *Manifest) Has(name string) bool {
	_, ok := m.Range(name)
	return ok
}

// Set rewrites the range of name in every group that declares it, keeping
// its position. It reports whether any range changed; undeclared packages
// are left alone.
func (m *Manifest) Set(name, rng string) bool {
	changed := false
	for _, group := range [][]Spec{m.Dependencies, m.DevDependencies} {
		for i := range group {
			if group[i].Name == name && group[i].Range != rng {
				group[i].Range = rng
				changed = true
			}
		}
	}
	return changed
}
