/*
Package metrics provides Prometheus instrumentation for pacwrap.

Metrics are registered at package init and exposed via an HTTP handler
for scraping; pacwrap itself is a short-lived CLI process, so the
handler is meant to be mounted by long-running wrappers (a user's own
supervisor, or a future daemon front-end) rather than served by every
invocation.

# Metrics Catalog

Registry:

	pacwrap_containers_total{type}        Gauge   registered containers by type (base/slice/link)
	pacwrap_schema_version{container}     Gauge   currently extracted schema version

Cache:

	pacwrap_cache_hit_ratio               Gauge   running hit ratio for the process
	pacwrap_cache_hits_total              Counter package cache hits during staging
	pacwrap_cache_misses_total            Counter package cache misses during staging

Transactions:

	pacwrap_containers_committed_total          Counter reached complete after a successful commit
	pacwrap_containers_failed_total{container}  Counter transaction failed
	pacwrap_containers_skipped_total            Counter skipped due to a failed dependency
	pacwrap_container_commit_duration_seconds   Histogram prepare -> complete wall time
	pacwrap_schema_extract_duration_seconds     Histogram schema archive extraction time
	pacwrap_lock_wait_duration_seconds{scope}   Histogram time blocked acquiring a lock

Sandbox and agent:

	pacwrap_sandbox_launches_total{status}        Counter bwrap launches by exit status
	pacwrap_agent_roundtrip_duration_seconds      Histogram envelope write to final event

# Usage

	timer := metrics.NewTimer()
	results, err := aggregator.Run(names)
	timer.ObserveDuration(metrics.ContainerCommitDuration)

	metrics.CacheHitRatio.Set(hitCounter.Ratio())

A Collector can be started alongside a long-running process to sample
the registry and cache on a fixed interval instead of only at
transaction boundaries:

	collector := metrics.NewCollector(registry, hitCounter)
	collector.Start()
	defer collector.Stop()
*/
package metrics
