package msr

import "log/slog"

// NewSlogLogger routes operation events to logger. Failures log at warn
// level, successes at debug. A nil logger falls back to slog.Default().
func NewSlogLogger(logger *slog.Logger) Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return LoggerFunc(func(event OperationLogEvent) {
		attrs := []any{
			slog.String("op", event.Op),
			slog.String("caller", describeCaller(event.Caller)),
			slog.Duration("duration", event.Duration),
		}
		if event.Target != "" {
			attrs = append(attrs, slog.String("target", event.Target))
		}
		if event.Err != nil {
			logger.Warn("msr: operation failed", append(attrs, slog.Any("error", event.Err))...)
			return
		}
		logger.Debug("msr: operation", attrs...)
	})
}
