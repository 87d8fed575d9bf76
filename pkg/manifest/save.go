package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/matzehuels/peerguard/pkg/fsutil"
)

const indent = "  "

// Save writes m to path atomically. Fields other than the dependency groups
// are written back byte-for-byte apart from re-indentation.
func Save(m *Manifest, path string) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}
	perm := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	if err := fsutil.WriteFileAtomic(path, data, perm); err != nil {
		return fmt.Errorf("write manifest %s: %w", path, err)
	}
	return nil
}

// Encode renders m the way npm formats package.json: two-space indentation
// and a trailing newline.
func (m *Manifest) Encode() ([]byte, error) {
	fields := append([]field(nil), m.fields...)
	fields = withGroup(fields, GroupRuntime, m.Dependencies)
	fields = withGroup(fields, GroupDevelopment, m.DevDependencies)

	var buf bytes.Buffer
	if len(fields) == 0 {
		buf.WriteString("{}\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("{\n")
	for i, f := range fields {
		buf.WriteString(indent)
		buf.WriteString(quote(f.key))
		buf.WriteString(": ")
		if err := json.Indent(&buf, f.raw, indent, indent); err != nil {
			return nil, fmt.Errorf("field %q: %w", f.key, err)
		}
		if i < len(fields)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// withGroup replaces the raw value of a dependency group with the encoding of
// specs. A group that was never in the file is only added when non-empty.
func withGroup(fields []field, key string, specs []Spec) []field {
	raw := encodeGroup(specs)
	for i := range fields {
		if fields[i].key == key {
			fields[i].raw = raw
			return fields
		}
	}
	if len(specs) == 0 {
		return fields
	}
	return append(fields, field{key: key, raw: raw})
}

func encodeGroup(specs []Spec) json.RawMessage {
	if len(specs) == 0 {
		return json.RawMessage("{}")
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range specs {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(quote(s.Name))
		buf.WriteByte(':')
		buf.WriteString(quote(s.Range))
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

// quote encodes s as a JSON string without HTML escaping, as npm does.
func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}
