package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a logger writing to w with "HH:MM:SS.ms" timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress measures one CLI stage. Not safe for concurrent use.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg at info level with the total elapsed time first, so lines
// from different stages line up: "rendered took=12ms formats=[svg]".
func (p *progress) done(msg string, keyvals ...any) {
	kv := make([]any, 0, len(keyvals)+2)
	kv = append(kv, "took", time.Since(p.start).Round(time.Millisecond))
	p.logger.Info(msg, append(kv, keyvals...)...)
}

// lap returns the time since the last lap (or start) and restarts the clock.
func (p *progress) lap() time.Duration {
	now := time.Now()
	d := now.Sub(p.start)
	p.start = now
	return d
}

type loggerKey struct{}

// withLogger attaches l to ctx. RootCommand does this for every command.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// loggerFromContext returns the logger attached by withLogger, or log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
