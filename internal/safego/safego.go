// Package safego launches background goroutines that survive their own panics.
package safego

import (
	"log/slog"
	"runtime/debug"

	"github.com/philanthrohub/directory/internal/telemetry"
)

// Go runs fn in a new goroutine under the given task name. A panic in fn is
// recovered, logged with its stack and counted in background_panics_total;
// the goroutine then exits. Callers that need the task to keep running must
// restart it themselves.
func Go(task string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				telemetry.BackgroundPanicsTotal.WithLabelValues(task).Inc()
				slog.Error("recovered panic in background goroutine",
					"task", task,
					"panic", r,
					"stack", string(debug.Stack()),
				)
			}
		}()
		fn()
	}()
}
