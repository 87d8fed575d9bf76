// Package httputil provides retry helpers for registry clients.
//
// # Retry
//
// [Retry] re-runs an operation with exponential backoff when it fails with a
// [RetryableError]. Registry clients wrap transient failures (connection
// errors, 5xx responses) in [RetryableError] and leave everything else
// unwrapped so a 404 fails fast:
//
//	err := httputil.Retry(ctx, 3, 200*time.Millisecond, func() error {
//	    return client.Get(ctx, url, &doc)
//	})
//
// Cancellation of ctx interrupts the backoff wait. The conflict detector relies
// on this to stop lookups promptly when its per-query deadline expires.
package httputil
