/*
Package observability turns orchestrator lifecycle hooks into Prometheus metrics and
structured logs.

Each render emits attempt_start and attempt_end per strategy tried and one render_end.
Metrics and LogHooks translate those events; merge them with domain.LifecycleHooks.Merge.
*/
package observability
