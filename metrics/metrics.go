// Package metrics defines the instrumentation contract for the bridge:
// counters for session transition events and latency observations for the
// suspended operations (login, analysis, settlement, top-up).
package metrics

import "time"

type Recorder interface {
	// IncCounter bumps the named event counter. The session engine passes
	// the current view as a label.
	IncCounter(name string, labels map[string]string)

	// ObserveLatency records how long a suspended operation took.
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}
