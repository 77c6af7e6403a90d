package engine

import (
	"log/slog"
)

// ScriptEvent describes a script at a lifecycle point.
type ScriptEvent struct {
	RunID      string
	Seq        int64 // from the engine clock; executing < executed
	DocumentID string
	ScriptID   string
	Executor   string
	Text       string
}

// Observer receives lifecycle notifications.
//
// ScriptExecuting fires immediately before the executor is invoked;
// ScriptExecuted fires after the completion has been persisted. Nothing fires
// for a failed script; failures travel through Run's error.
//
// Delivery is synchronous on the Run goroutine. A slow or panicking observer
// is not guarded against.
type Observer interface {
	ScriptExecuting(ev ScriptEvent)
	ScriptExecuted(ev ScriptEvent)
}

// ObserverFuncs adapts optional callbacks to the Observer interface.
type ObserverFuncs struct {
	Executing func(ScriptEvent)
	Executed  func(ScriptEvent)
}

// ScriptExecuting calls Executing if set.
func (o ObserverFuncs) ScriptExecuting(ev ScriptEvent) {
	if o.Executing != nil {
		o.Executing(ev)
	}
}

// ScriptExecuted calls Executed if set.
func (o ObserverFuncs) ScriptExecuted(ev ScriptEvent) {
	if o.Executed != nil {
		o.Executed(ev)
	}
}

// LogObserver writes lifecycle lines to a structured logger.
// A nil Logger uses slog.Default().
type LogObserver struct {
	Logger *slog.Logger
}

func (o LogObserver) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// ScriptExecuting logs at debug level.
func (o LogObserver) ScriptExecuting(ev ScriptEvent) {
	o.logger().Debug("script executing",
		"run_id", ev.RunID,
		"document", ev.DocumentID,
		"script", ev.ScriptID,
		"executor", ev.Executor,
		"seq", ev.Seq,
	)
}

// ScriptExecuted logs at info level.
func (o LogObserver) ScriptExecuted(ev ScriptEvent) {
	o.logger().Info("script executed",
		"run_id", ev.RunID,
		"document", ev.DocumentID,
		"script", ev.ScriptID,
		"executor", ev.Executor,
	)
}
