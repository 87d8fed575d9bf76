//go:build integration

package npm

import (
	"context"
	"testing"
	"time"
)

func TestPeerRequirement_Integration(t *testing.T) {
	client := NewClient(Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tests := []struct {
		name    string
		pkg     string
		rng     string
		wantErr bool
	}{
		{"react-redux", "react-redux", "^8.0.0", false},
		{"cmdk", "cmdk", "^0.2.0", false},
		{"nonexistent", "this-package-should-not-exist-12345", "^1.0.0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			peer, ok, err := client.PeerRequirement(ctx, tt.pkg, tt.rng, "react")
			if (err != nil) != tt.wantErr {
				t.Fatalf("PeerRequirement(%q) error = %v, wantErr %v", tt.pkg, err, tt.wantErr)
			}
			if !tt.wantErr && (!ok || peer == "") {
				t.Errorf("%s should declare a react peer, got %q", tt.pkg, peer)
			}
		})
	}
}
