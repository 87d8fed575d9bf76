package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates the logger every command shares. Timestamps are
// formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs how long a monitor pass took.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time rounded to the millisecond, for
// example "evaluation finished (1.234s)".
func (p *progress) done(msg string, keyvals ...any) {
	keyvals = append(keyvals, "elapsed", time.Since(p.start).Round(time.Millisecond))
	p.logger.Info(msg, keyvals...)
}

// verbose reports whether debug output is enabled.
func (c *CLI) verbose() bool {
	return c.Logger.GetLevel() <= log.DebugLevel
}
