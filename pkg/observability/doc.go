/*
Package observability exposes launchpad runs as Prometheus metrics.

Metrics are fed by lifecycle hooks, so any engine configured with
Metrics.Hooks reports steps, sessions and trigger resolutions.
*/
package observability
