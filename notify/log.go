package notify

import (
	"github.com/rs/zerolog"
)

// Log writes notifications to a zerolog logger, for headless runs
type Log struct {
	logger zerolog.Logger
}

func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Notify(message string, opts Options) {
	ev := l.logger.Info()
	if opts.Severity == SeverityError {
		ev = l.logger.Warn()
	}
	ev.Str("severity", string(opts.Severity)).
		Dur("duration", opts.Duration).
		Msg(message)
}
