package msr

import "time"

// OperationLogEvent describes one registry operation for logging.
type OperationLogEvent struct {
	Op       string
	Caller   Principal
	Target   string
	Duration time.Duration
	Err      error
}

// Logger records registry operations.
type Logger interface {
	LogOperation(OperationLogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(OperationLogEvent)

// LogOperation implements Logger.
func (f LoggerFunc) LogOperation(event OperationLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) LogOperation(OperationLogEvent) {}
