package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/peerguard/pkg/observability"
)

// logHooks reports cache and registry traffic at debug level. It is
// registered only with --verbose.
type logHooks struct {
	logger *log.Logger
}

func (h logHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h logHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h logHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h logHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("registry request", "method", method, "host", host, "path", path)
}

func (h logHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("registry response", "path", path, "status", status, "duration", d.Round(time.Millisecond))
}

func (h logHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("registry error", "host", host, "path", path, "error", err)
}

func registerLogHooks(l *log.Logger) {
	h := logHooks{logger: l}
	observability.SetCacheHooks(h)
	observability.SetHTTPHooks(h)
}

var (
	_ observability.CacheHooks = logHooks{}
	_ observability.HTTPHooks  = logHooks{}
)
