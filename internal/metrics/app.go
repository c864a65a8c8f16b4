package metrics

import (
	"strconv"
	"time"

	"github.com/tokenlens/tokenlens/internal/observability"
)

// Application-level metrics following Prometheus conventions
var (
	// Upstream metrics
	UpstreamRequestsTotal        = "upstream_requests_total"
	UpstreamCandidateMissesTotal = "upstream_candidate_misses_total"
	UpstreamRequestDuration      = "upstream_request_duration_ms"

	// Cache metrics
	CacheHitsTotal        = "cache_hits_total"
	CacheStaleServedTotal = "cache_stale_served_total"
	CacheEntries          = "cache_entries"

	// Pacer metrics
	PacerWait = "pacer_wait_ms"

	// Kline fallback metrics
	MockKlinesServedTotal = "kline_mock_served_total"

	// Health check metrics
	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"

	// Server lifecycle metrics
	ServerStartTime = "app_server_start_time_seconds"
)

// RecordUpstreamAttempt records one candidate attempt against the upstream API.
// status is the HTTP status, or 0 when the request never produced a response.
func RecordUpstreamAttempt(category string, status int, matched bool, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	outcome := "match"
	if !matched {
		outcome = "miss"
	}

	_ = observability.TelemetrySystem.Counter(
		UpstreamRequestsTotal,
		1,
		map[string]string{
			"category": category,
			"status":   strconv.Itoa(status),
			"outcome":  outcome,
		},
	)

	_ = observability.TelemetrySystem.Histogram(
		UpstreamRequestDuration,
		duration,
		map[string]string{
			"category": category,
		},
	)

	if !matched {
		_ = observability.TelemetrySystem.Counter(
			UpstreamCandidateMissesTotal,
			1,
			map[string]string{
				"category": category,
			},
		)
	}
}

// RecordCacheLookup records how a cache lookup was answered (hit, miss, stale).
func RecordCacheLookup(category string, lookup string) {
	if observability.TelemetrySystem == nil {
		return
	}

	switch lookup {
	case "hit":
		_ = observability.TelemetrySystem.Counter(
			CacheHitsTotal,
			1,
			map[string]string{"category": category},
		)
	case "stale":
		_ = observability.TelemetrySystem.Counter(
			CacheStaleServedTotal,
			1,
			map[string]string{"category": category},
		)
	}
}

// SetCacheEntries sets the number of cached entries.
func SetCacheEntries(count int) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			CacheEntries,
			float64(count),
			nil,
		)
	}
}

// RecordPacerWait records how long a call waited for its pacing slot.
func RecordPacerWait(category string, wait time.Duration) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Histogram(
			PacerWait,
			wait,
			map[string]string{
				"category": category,
			},
		)
	}
}

// RecordMockKlines records a synthetic kline series served in place of upstream data.
func RecordMockKlines(interval string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			MockKlinesServedTotal,
			1,
			map[string]string{
				"interval": interval,
			},
		)
	}
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			HealthCheckTotal,
			1,
			map[string]string{
				"check":  checkName,
				"status": status,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			HealthCheckDuration,
			duration,
			map[string]string{
				"check": checkName,
			},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTime,
			float64(timestamp),
			nil,
		)
	}
}
