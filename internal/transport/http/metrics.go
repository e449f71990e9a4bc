package httptransport

import "expvar"

var (
	metricHTTPErrors       = expvar.NewInt("http_errors_total")
	metricRateLimited      = expvar.NewInt("http_rate_limited_total")
	metricAuthFailures     = expvar.NewInt("http_auth_failures_total")
	metricInteractionTotal = expvar.NewMap("arena_interactions_total")
)
