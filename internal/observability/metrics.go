package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// namespace defines the global prefix for all metrics (e.g., pollconf_...).
const namespace = "pollconf"

var (
	// -------------------------------------------------------------------------
	// CONTROL API (HTTP)
	// -------------------------------------------------------------------------

	// ControlAPIReqDuration measures the latency of HTTP requests.
	// Metric: pollconf_control_api_http_handling_seconds
	ControlAPIReqDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "control_api",
		Name:      "http_handling_seconds",
		Help:      "Time taken to handle HTTP requests in the Control API",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// ControlAPIReqTotal counts the total number of HTTP requests.
	// Metric: pollconf_control_api_http_requests_total
	ControlAPIReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "control_api",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests in the Control API",
	}, []string{"method", "route", "code"})

	// -------------------------------------------------------------------------
	// RESOLVER
	// -------------------------------------------------------------------------

	// ResolverFallbacks counts values replaced by the next value in precedence.
	// scope is "global" (hard-coded default used) or "tenant" (global default used).
	// Metric: pollconf_resolver_fallbacks_total
	ResolverFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "resolver",
		Name:      "fallbacks_total",
		Help:      "Total poll values that fell back to a lower precedence value",
	}, []string{"scope", "field", "reason"})

	// ResolverReloads counts global configuration reloads by result (success, error).
	// Metric: pollconf_resolver_reloads_total
	ResolverReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "resolver",
		Name:      "reloads_total",
		Help:      "Total global poll configuration reloads",
	}, []string{"result"})

	// -------------------------------------------------------------------------
	// DATABASE (Tenant metadata pool)
	// -------------------------------------------------------------------------

	// DBPoolConnections reports pool connections by state (max, total, idle, in_use).
	// Metric: pollconf_database_pool_connections
	DBPoolConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "pool_connections",
		Help:      "Current number of pool connections by state",
	}, []string{"state"})

	DBPoolAcquireCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "pool_acquire_count_total",
		Help:      "Total successful connection acquisitions",
	})

	// DBPoolWaitCount counts acquisitions that had to wait for a free connection.
	DBPoolWaitCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "pool_wait_count_total",
		Help:      "Total acquisitions that waited because the pool was empty",
	})

	DBPoolAcquireDuration = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "pool_acquire_duration_seconds_total",
		Help:      "Cumulative time spent acquiring connections",
	})

	// -------------------------------------------------------------------------
	// RELOADER (Worker)
	// -------------------------------------------------------------------------

	// ReloadEventsReceived counts reload notifications consumed from the Redis channel.
	ReloadEventsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reloader",
		Name:      "events_received_total",
		Help:      "Total reload events received via PubSub",
	})
)
