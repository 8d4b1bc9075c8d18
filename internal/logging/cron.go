package logging

import "go.uber.org/zap"

// CronLogger adapts zap to the cron.Logger interface. Scheduler chatter goes
// to debug; skipped runs are surfaced at info.
type CronLogger struct {
	sugar *zap.SugaredLogger
}

// NewCronLogger wraps logger.
func NewCronLogger(logger *zap.Logger) CronLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return CronLogger{sugar: logger.Named("cron").Sugar()}
}

// Info logs routine scheduler events.
func (l CronLogger) Info(msg string, keysAndValues ...any) {
	if msg == "skip" {
		l.sugar.Infow("previous batch still running, skipping tick", keysAndValues...)
		return
	}
	l.sugar.Debugw(msg, keysAndValues...)
}

// Error logs scheduler failures, including recovered job panics.
func (l CronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
