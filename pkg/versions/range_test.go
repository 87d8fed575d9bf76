package versions

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMajors(t *testing.T) {
	tests := []struct {
		rng  string
		want []uint64
	}{
		{"^18", []uint64{18}},
		{"^18.2.0", []uint64{18}},
		{"^16.8 || ^17.0 || ^18.0", []uint64{16, 17, 18}},
		{"^18 || ^19", []uint64{18, 19}},
		{">=16", []uint64{16, 17}},
		{">=16.8.0 <19", []uint64{16, 17, 18}},
		{"~18.2.0", []uint64{18}},
		{"18.x", []uint64{18}},
		{"^0.2.0", []uint64{0}},
		{"16.8.0 - 18.2.0", []uint64{16, 17, 18}},
		{"19.0.0-rc.1", []uint64{19}},
		{"<18.0.0", []uint64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17}},
	}
	for _, tt := range tests {
		t.Run(tt.rng, func(t *testing.T) {
			r, err := ParseRange(tt.rng)
			if err != nil {
				t.Fatalf("ParseRange(%q) error: %v", tt.rng, err)
			}
			if diff := cmp.Diff(tt.want, r.Majors()); diff != "" {
				t.Errorf("Majors() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIntersects(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"^19.0.0", "^18", false},
		{"^19.0.0", "^16.8 || ^17.0 || ^18.0", false},
		{"^19.0.0", "^18 || ^19", true},
		{"^19.0.0", ">=16", true},
		{"^19.0.0", "<19", false},
		{"~18.2.0", "^18.3.0", true},
		{"^18.2.0", "^18", true},
		{"19.0.0-rc.1", "^19", true},
		{"*", "^17", true},
		{"", "^17", true},
		{">=20240101", ">=20240601", true},
		{"<20240101", ">=20240601", false},
	}
	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			got, err := MajorsOverlap(tt.a, tt.b)
			if err != nil {
				t.Fatalf("MajorsOverlap() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("MajorsOverlap(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			// Overlap is symmetric
			if back, _ := MajorsOverlap(tt.b, tt.a); back != got {
				t.Errorf("MajorsOverlap is not symmetric for %q, %q", tt.a, tt.b)
			}
		})
	}
}

func TestParseRangeRejectsNonRanges(t *testing.T) {
	for _, s := range []string{"latest", "github:pacocoursey/cmdk", "workspace:^1.0.0", "file:../lib"} {
		if _, err := ParseRange(s); err == nil {
			t.Errorf("ParseRange(%q) should fail", s)
		}
	}
}

func TestAdmitsAny(t *testing.T) {
	r := MustParseRange("^19.0.0")
	if !r.AdmitsAny([]uint64{19}) {
		t.Error("^19.0.0 should admit major 19")
	}
	if r.AdmitsAny([]uint64{17, 18}) {
		t.Error("^19.0.0 should not admit 17 or 18")
	}
}

func TestFormatMajors(t *testing.T) {
	if got := FormatMajors([]uint64{16, 17, 18}); got != "{16,17,18}" {
		t.Errorf("FormatMajors() = %q", got)
	}
	if got := FormatMajors(nil); got != "{}" {
		t.Errorf("FormatMajors(nil) = %q", got)
	}
}
