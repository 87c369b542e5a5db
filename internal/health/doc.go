// Package health provides composable probes and the HTTP handlers behind the
// liveness and readiness endpoints.
//
// [ShutdownGate] fails readiness as soon as draining starts so load
// balancers stop routing before in-flight renders finish. [Latch] stays
// failing until the server has proven it can reach WordPress.
package health
