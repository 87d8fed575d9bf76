// Package npm provides an HTTP client for peer-dependency lookups against the
// npm registry API.
//
// # Overview
//
// The client fetches abbreviated packuments from an npm-compatible registry
// (https://registry.npmjs.org by default, or a private mirror) and answers
// one question: which range does package P, installed at the range the
// project declares, require for peer package S?
//
// # Usage
//
//	client := npm.NewClient(npm.Options{Cache: c, CacheTTL: 24 * time.Hour})
//	peer, ok, err := client.PeerRequirement(ctx, "cmdk", "^0.2.0", "react")
//	// peer == "^18.0.0", ok == true
//
// # Version Selection
//
// The declared range is resolved to the highest published version that
// satisfies it, mirroring "npm info <pkg>@<range>". Dist-tag names such as
// "latest" or "next" resolve through dist-tags. Protocol specifiers
// (git+, file:, workspace:) are not resolvable and return an error.
//
// # Caching
//
// Results, including "declares no peer", are cached under
// [cache.Keyer.PeerKey] for the configured TTL. Failed lookups are never
// cached.
//
// [cache.Keyer.PeerKey]: github.com/matzehuels/peerguard/pkg/cache.Keyer
package npm
