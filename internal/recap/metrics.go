package recap

import "expvar"

var (
	metricRecapPublishedTotal = expvar.NewInt("recap_published_total")
	metricRecapFailedTotal    = expvar.NewInt("recap_failed_total")
)
