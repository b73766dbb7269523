package health

import "sync/atomic"

// ready gates the readiness probe during startup and graceful shutdown.
// Dependency probes still run; a false flag short-circuits to 503 so load
// balancers drain traffic before in-flight requests are cut off.
var ready atomic.Bool

func init() { ready.Store(true) }

// SetReady flips the readiness gate. The API entrypoint sets it false as the
// first step of graceful shutdown.
func SetReady(v bool) { ready.Store(v) }

// Ready reports the current gate state.
func Ready() bool { return ready.Load() }
