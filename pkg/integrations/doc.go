// Package integrations provides the HTTP plumbing shared by registry clients.
//
// # Overview
//
// peerguard talks to exactly one kind of remote service: a package registry
// that serves npm packuments. The registry-specific client lives in [npm];
// this package holds what such a client needs regardless of registry:
//
//   - [Client]: GET with default headers, JSON decoding, status mapping
//   - [Client.Cached]: read-through caching over an injected [cache.Cache]
//   - [ErrNotFound], [ErrNetwork]: sentinel errors callers classify on
//
// # Retries
//
// Connection failures, 429 and 5xx responses are wrapped in
// [httputil.RetryableError] so [Client.Cached] retries them with backoff.
// A 404 maps to [ErrNotFound] and is never retried.
//
// # Observability
//
// Every request emits [observability.HTTPHooks] events and every cached
// lookup emits [observability.CacheHooks] events.
//
// [npm]: github.com/matzehuels/peerguard/pkg/integrations/npm
// [cache.Cache]: github.com/matzehuels/peerguard/pkg/cache.Cache
// [httputil.RetryableError]: github.com/matzehuels/peerguard/pkg/httputil.RetryableError
// [observability.HTTPHooks]: github.com/matzehuels/peerguard/pkg/observability.HTTPHooks
// [observability.CacheHooks]: github.com/matzehuels/peerguard/pkg/observability.CacheHooks
package integrations
